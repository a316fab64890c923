package server

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/gofiber/fiber/v2"

	"github.com/deliveryeta/registryops/pkg/cleaning"
	"github.com/deliveryeta/registryops/pkg/contract"
	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/pipeline"
	"github.com/deliveryeta/registryops/pkg/preprocess"
)

const Greeting = "Welcome to the Swiggy Food Delivery Time Prediction App"

type Predictor interface {
	Predict(ctx context.Context, records []entities.Record) ([]float64, error)
}

type PredictionResponse struct {
	Prediction float64 `json:"prediction"`
}

type NotLoadedResponse struct {
	Error string `json:"error"`
}

// PredictionService answers prediction requests with a pipeline that is
// loaded once before the service is constructed and never replaced.
type PredictionService struct {
	parser    contract.HTTPRequestParser
	predictor Predictor
}

// NewPredictionService treats a nil predictor, typed or not, as a model that
// is not loaded.
func NewPredictionService(parser contract.HTTPRequestParser, predictor Predictor) *PredictionService {
	if value := reflect.ValueOf(predictor); predictor != nil && value.Kind() == reflect.Ptr && value.IsNil() {
		predictor = nil
	}

	return &PredictionService{
		parser:    parser,
		predictor: predictor,
	}
}

func (s *PredictionService) Home(c *fiber.Ctx) error {
	return c.JSON(Greeting)
}

func (s *PredictionService) Predict(c *fiber.Ctx) error {
	if s.predictor == nil {
		return c.JSON(NotLoadedResponse{Error: "Model not loaded yet"})
	}

	var order cleaning.Order
	if err := s.parser.ParseBody(c, &order); err != nil {
		return err
	}

	record, err := cleaning.Clean(&order)
	if err != nil {
		return contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("order %s could not be cleaned: %v", order.ID, err),
		)
	}

	predictions, err := s.predictor.Predict(c.UserContext(), []entities.Record{record})
	if err != nil {
		return newPredictionError(err)
	}

	return c.JSON(PredictionResponse{Prediction: predictions[0]})
}

func newPredictionError(err error) *contract.Error {
	switch {
	case errors.Is(err, preprocess.ErrMissingValue):
		return contract.NewError(contract.ErrorCodeInvalidParameterValue, err.Error())
	case errors.Is(err, pipeline.ErrScoring):
		return contract.NewErrorWith(contract.ErrorCodeTemporarilyUnavailable, "model server did not answer", err)
	default:
		return contract.NewErrorWith(contract.ErrorCodeInternalError, "prediction failed", err)
	}
}

func (s *PredictionService) RegisterRoutes(app *fiber.App) {
	app.Get("/", s.Home)
	app.Post("/predict", s.Predict)
}

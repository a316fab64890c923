package server

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deliveryeta/registryops/pkg/cleaning"
	"github.com/deliveryeta/registryops/pkg/entities"
)

func NewValidator() (*validator.Validate, error) {
	validate := validator.New()

	// Order dates use the day first layout of the delivery dataset.
	if err := validate.RegisterValidation("orderDate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("02-01-2006", fl.Field().String())

		return err == nil
	}); err != nil {
		return nil, err
	}

	// Times of day may be missing, otherwise they need an hour and a minute.
	if err := validate.RegisterValidation("timeOfDayOrMissing", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if entities.IsMissing(value) {
			return true
		}

		_, err := cleaning.ParseTimeOfDay(value)

		return err == nil
	}); err != nil {
		return nil, err
	}

	return validate, nil
}

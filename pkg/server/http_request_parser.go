package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"github.com/deliveryeta/registryops/pkg/contract"
)

// HTTPRequestParser decodes JSON bodies and validates them, reporting
// problems with the field names the client sent.
type HTTPRequestParser struct {
	validator *validator.Validate
}

var _ contract.HTTPRequestParser = (*HTTPRequestParser)(nil)

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}

	return name
}

func NewHTTPRequestParser() (*HTTPRequestParser, error) {
	validate, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	validate.RegisterTagNameFunc(jsonFieldName)

	return &HTTPRequestParser{validator: validate}, nil
}

func (p *HTTPRequestParser) ParseBody(ctx *fiber.Ctx, input interface{}) *contract.Error {
	err := ctx.BodyParser(input)

	var typeErr *json.UnmarshalTypeError

	switch {
	case err == nil:
	case errors.As(err, &typeErr):
		// The decoder only knows the expected type, the raw value comes from the body.
		offending := gjson.GetBytes(ctx.Body(), typeErr.Field).Raw

		return contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("Invalid value %s for field '%s', expected %s", offending, typeErr.Field, typeErr.Type),
		)
	default:
		return contract.NewError(contract.ErrorCodeBadRequest, fmt.Sprintf("Malformed request body: %v", err))
	}

	if err := p.validator.Struct(input); err != nil {
		return newErrorFromValidationError(err)
	}

	return nil
}

func describeFieldError(fieldErr validator.FieldError) string {
	field := fieldErr.Field()

	value := fieldErr.Value()
	if v := reflect.ValueOf(value); v.Kind() == reflect.Ptr && !v.IsNil() {
		value = v.Elem().Interface()
	}

	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("Missing value for required field '%s'", field)
	case "orderDate":
		return fmt.Sprintf("Invalid date %q for field '%s', expected dd-mm-yyyy", value, field)
	case "timeOfDayOrMissing":
		return fmt.Sprintf("Invalid time %q for field '%s', expected hh:mm[:ss]", value, field)
	case "gte", "lte":
		return fmt.Sprintf("Value %v for field '%s' is out of range", value, field)
	default:
		return fmt.Sprintf("Invalid value %v for field '%s'", value, field)
	}
}

func newErrorFromValidationError(err error) *contract.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to validate request", err)
	}

	messages := make([]string, len(errs))
	for i, fieldErr := range errs {
		messages[i] = describeFieldError(fieldErr)
	}

	return contract.NewError(contract.ErrorCodeInvalidParameterValue, strings.Join(messages, ", "))
}

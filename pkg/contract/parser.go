package contract

import "github.com/gofiber/fiber/v2"

// HTTPRequestParser decodes and validates a request body into out.
type HTTPRequestParser interface {
	ParseBody(ctx *fiber.Ctx, out interface{}) *Error
}

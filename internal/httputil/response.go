// Package httputil provides the thin JSON envelope and access-logging
// middleware the REST collaborator (out of SPEC_FULL.md's core scope,
// spec.md §1) is expected to build on top of, grounded on the teacher's
// internal/httputil in the same shape.
package httputil

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/uncord-chat/uncord-server/internal/command"
)

// SuccessResponse wraps successful API responses.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorBody holds structured error details. Code is the CommandAPI
// Kind string (spec.md §7) rather than a bespoke REST error taxonomy —
// the wire grammar (internal/gateway) and the REST surface report the
// same vocabulary for the same failures.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps failed API responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Success sends a 200 JSON response with the given data.
func Success(c fiber.Ctx, data any) error {
	return c.JSON(SuccessResponse{Data: data})
}

// SuccessStatus sends a JSON response with a custom status code.
func SuccessStatus(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(SuccessResponse{Data: data})
}

// Fail sends a JSON error response with the given status, code, and message.
func Fail(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

// FailCommand renders a *command.CommandError at the status
// command.HTTPStatus assigns its Kind, so every REST handler needs only
// one line for the failure path:
//
//	if err != nil { return httputil.FailCommand(c, err) }
func FailCommand(c fiber.Ctx, err error) error {
	var ce *command.CommandError
	if errors.As(err, &ce) {
		return Fail(c, command.HTTPStatus(ce.ErrKind), string(ce.ErrKind), ce.Error())
	}
	return Fail(c, fiber.StatusInternalServerError, string(command.KindInternalError), err.Error())
}

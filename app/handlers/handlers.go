// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/middleware"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

func ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind businessflow.ErrorKind) int {
	switch kind {
	case businessflow.KindValidation:
		return fiber.StatusBadRequest
	case businessflow.KindNotFound:
		return fiber.StatusNotFound
	case businessflow.KindPermission:
		return fiber.StatusForbidden
	case businessflow.KindConflict:
		return fiber.StatusConflict
	case businessflow.KindUnauthenticated:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// flowErrorResponse writes a flow error. Internal errors are logged and their message hidden.
func flowErrorResponse(c fiber.Ctx, logger *zap.Logger, err error, fallbackMessage, fallbackCode string) error {
	kind := businessflow.KindOf(err)
	status := StatusForKind(kind)

	code, message := fallbackCode, fallbackMessage
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code = be.Code
		if kind != businessflow.KindInternal {
			message = be.Message
		}
	}
	if kind == businessflow.KindCascadeFailed {
		code = "CASCADE_FAILED"
	}

	var details any
	if fields := businessflow.FieldErrors(err); len(fields) > 0 {
		details = fields
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("code", code),
			zap.String("request_id", requestid.FromContext(c)),
			zap.Error(err),
		)
	}
	return ErrorResponse(c, status, message, code, details)
}

// createRequestContext detaches the flow from the fiber context and carries request-scoped values
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	md := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	md.SetRequestID(requestid.FromContext(c))
	return md
}

// actor is the caller placed in the request by the auth middleware, or Anonymous
func actor(c fiber.Ctx) businessflow.Actor {
	if a, ok := middleware.ActorFromContext(c); ok {
		return a
	}
	return businessflow.Anonymous
}

func idParam(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", c.Params("id"))
	}
	return uint(id), nil
}

// bindJSON decodes and validates the body. It writes the error response itself and reports false on failure.
func bindJSON(c fiber.Ctx, v *validator.Validate, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return false, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, getValidationErrorMessage(fe))
		}
		return false, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
	}
	return true, nil
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "url":
		return err.Field() + " must be a valid URL"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

package utils

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/geo"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

type Meta struct {
	Total    int     `json:"total,omitempty"`
	Skip     int     `json:"skip,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Cached   bool    `json:"cached,omitempty"`
	TimeMSec float64 `json:"time_ms,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendCreated - ответ 201 для созданных ресурсов
func SendCreated(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusCreated).JSON(SuccessResponse{
		Data: data,
	})
}

func SendError(c *fiber.Ctx, err error) error {
	appErr := ToAppError(err)
	return c.Status(appErr.StatusCode).JSON(ErrorResponse{
		Error: appErr,
	})
}

// ToAppError приводит произвольную ошибку к AppError из каталога
func ToAppError(err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}

	var validationErrs validator.ValidationErrors
	if stderrors.As(err, &validationErrs) {
		fields := make(map[string]interface{}, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = fe.Tag()
		}
		return errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"fields": fields})
	}

	if stderrors.Is(err, geo.ErrInvalidArgument) {
		return errors.ErrInvalidArgument.WithDetails(map[string]interface{}{"reason": err.Error()})
	}

	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fiberErr.Code), " ", "_"))
		return errors.New(code, fiberErr.Message, fiberErr.Code)
	}

	// Unknown error - return 500
	return errors.ErrInternalServer
}

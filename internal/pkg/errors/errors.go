package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
)

type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is сравнивает ошибки по коду, чтобы копии из каталога совпадали с оригиналом
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) clone() *AppError {
	c := *e
	if e.Details != nil {
		c.Details = maps.Clone(e.Details)
	}
	return &c
}

// WithDetails возвращает копию ошибки с дополнительными деталями
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	c := e.clone()
	if c.Details == nil {
		c.Details = make(map[string]interface{}, len(details))
	}
	maps.Copy(c.Details, details)
	return c
}

// WithMessage возвращает копию ошибки с другим текстом
func (e *AppError) WithMessage(message string) *AppError {
	c := e.clone()
	c.Message = message
	return c
}

// Wrap возвращает копию ошибки с причиной (видна в логах, не в ответе)
func (e *AppError) Wrap(cause error) *AppError {
	c := e.clone()
	c.cause = cause
	return c
}

// As - обёртка над errors.As для поиска AppError в цепочке
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

package validator

import (
	"github.com/accessibility-reports/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("report_category", validateReportCategory)
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// GetValidator - получить валидатор для кастомной конфигурации
func GetValidator() *validator.Validate {
	return validate
}

// validateReportCategory - тег report_category: одна из четырёх категорий препятствий
func validateReportCategory(fl validator.FieldLevel) bool {
	return domain.Category(fl.Field().String()).IsValid()
}

// Package docs Accessibility Reports API.
//
// Сервис отчётов о препятствиях для пешеходов. Принимает отчёты с фотографиями,
// отдаёт их на карту и строит пешеходные маршруты в обход зон вокруг отчётов.
//
// Спецификация регистрируется в swag при импорте пакета и отдаётся по /swagger/*.
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//	- multipart/form-data
//
//	Produces:
//	- application/json
//	- image/jpeg
//	- image/png
//
// swagger:meta
package docs

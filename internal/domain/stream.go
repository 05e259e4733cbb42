package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stream names
const (
	StreamReportCreated  = "stream:report:created"
	StreamReportEnriched = "stream:report:enriched"
)

// ReportCreatedEvent - публикуется после сохранения отчёта
type ReportCreatedEvent struct {
	ReportID  uuid.UUID `json:"report_id"`
	Category  Category  `json:"category"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportEnrichedEvent - результат обогащения отчёта адресом
type ReportEnrichedEvent struct {
	ReportID uuid.UUID `json:"report_id"`
	Address  *Address  `json:"address,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}

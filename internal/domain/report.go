package domain

import (
	"errors"
	"time"
)

// ErrReportNotFound is returned when a report id does not exist
var ErrReportNotFound = errors.New("report not found")

// ReportStatus is the lifecycle state of a citizen report
type ReportStatus string

const (
	ReportPending       ReportStatus = "pending"
	ReportInvestigating ReportStatus = "investigating"
	ReportResolved      ReportStatus = "resolved"
	ReportRejected      ReportStatus = "rejected"
)

// PollutionReport is a citizen-submitted pollution incident
type PollutionReport struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Mobile      string       `json:"mobile"`
	Email       string       `json:"email"`
	Location    string       `json:"location"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	Severity    int          `json:"severity"`
	Description string       `json:"description,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ReportCreate is the payload for submitting a report
type ReportCreate struct {
	Name        string   `json:"name" validate:"required"`
	Mobile      string   `json:"mobile" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Location    string   `json:"location" validate:"required"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Severity    int      `json:"severity" validate:"required,min=1,max=5"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty" validate:"omitempty,url"`
}

// StatusUpdate is the payload for changing a report's status
type StatusUpdate struct {
	Status ReportStatus `json:"status" validate:"required,oneof=pending investigating resolved rejected"`
}

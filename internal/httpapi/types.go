package httpapi

import (
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/search"
)

type searchRequest struct {
	Filters search.Filters `json:"filters"`
	MaxJobs int            `json:"maxJobs"`
}

type searchResponse struct {
	Success   bool               `json:"success"`
	Platform  string             `json:"platform"`
	Count     int                `json:"count"`
	Data      []domain.JobRecord `json:"data"`
	Error     string             `json:"error,omitempty"`
	Timestamp string             `json:"timestamp"`
}

package domain

import "time"

// DashboardStats aggregates catalog metrics derived from a product snapshot.
type DashboardStats struct {
	TotalProducts   int            `json:"total_products"`
	CompletedModels int            `json:"completed_models"`
	ProcessingOnly  int            `json:"processing_models"`
	PendingModels   int            `json:"pending_models"`
	FailedModels    int            `json:"failed_models"`
	InFlightModels  int            `json:"in_flight_models"`
	ByCategory      map[string]int `json:"by_category"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// CategorySummary mirrors the figures shown on the categories page.
type CategorySummary struct {
	Categories         int    `json:"categories"`
	TotalProducts      int    `json:"total_products"`
	AveragePerCategory string `json:"average_per_category"`
}

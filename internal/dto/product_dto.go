package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// BindProductEntry is one observed unit code reported by the production line,
// addressed to a batch by its natural key.
type BindProductEntry struct {
	EknCode     string   `json:"ekn_code"     validate:"required"`
	BatchNumber int      `json:"batch_number" validate:"required"`
	BatchDate   DateTime `json:"batch_date"   validate:"required"`
}

type AggregateRequest struct {
	TaskID  string `json:"task_id"  validate:"required,uuid"`
	EknCode string `json:"ekn_code" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// BindProductResult is returned only for entries that were actually bound.
type BindProductResult struct {
	EknCode string `json:"ekn_code"`
	TaskID  string `json:"task_id"`
}

type AggregateResponse struct {
	EknCode string `json:"ekn_code"`
}

type ProductResponse struct {
	ID           string     `json:"id"`
	Nomenclature string     `json:"nomenclature"`
	EknCode      *string    `json:"ekn_code"`
	IsAggregated bool       `json:"is_aggregated"`
	AggregatedAt *time.Time `json:"aggregated_at"`
	TaskID       string     `json:"task_id"`
}

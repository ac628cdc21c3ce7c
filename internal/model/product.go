package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is one physical unit produced under a Task. EknCode is the
// externally assigned unique code; it may be absent at creation but once set
// it is unique across all products. IsAggregated is terminal: it flips to
// true exactly once and never reverts. IsAggregated == true iff AggregatedAt
// is non-null.
type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nomenclature string    `gorm:"not null;default:''"`
	EknCode      *string   `gorm:"uniqueIndex"`
	IsAggregated bool      `gorm:"not null;default:false"`
	AggregatedAt *time.Time
	// TaskID is set at creation and never changes afterwards.
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time

	Task *Task `gorm:"foreignKey:TaskID"`
}

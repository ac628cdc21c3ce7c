package model

import (
	"time"

	"github.com/google/uuid"
)

// Task is one shift's unit of work (a production batch). The pair
// (BatchNumber, BatchDate) is the natural key external systems use to
// reference a batch; it is enforced unique so out-of-band product binding
// always resolves to at most one task.
type Task struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StatusClose     bool      `gorm:"not null;default:false"`
	ClosedDate      *time.Time
	TaskDescription *string
	Shift           *string
	ShiftStart      time.Time  `gorm:"not null"`
	ShiftEnd        time.Time  `gorm:"not null"`
	BatchNumber     int        `gorm:"not null;uniqueIndex:idx_batch_key"`
	BatchDate       time.Time  `gorm:"not null;uniqueIndex:idx_batch_key"`
	BrigadeID       *uuid.UUID `gorm:"type:uuid;index"`
	WorkCenterID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Brigade    *Brigade    `gorm:"foreignKey:BrigadeID"`
	WorkCenter *WorkCenter `gorm:"foreignKey:WorkCenterID"`
	Products   []Product   `gorm:"foreignKey:TaskID"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Brigade is a named work crew. Resolved by name with implicit
// create-if-absent on every write that supplies one.
type Brigade struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time
}

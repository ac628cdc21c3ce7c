package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkCenter is a named production work center, resolved the same way as Brigade.
type WorkCenter struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time
}

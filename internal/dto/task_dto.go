package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// NameRef carries a brigade or work-center reference by name. The name is
// resolved-or-created server side.
type NameRef struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// ProductSpec is an inline product entry on task creation or replacement.
type ProductSpec struct {
	Nomenclature string  `json:"nomenclature" validate:"required"`
	EknCode      *string `json:"ekn_code"`
}

// CreateTaskRequest is one element of the bulk task creation payload.
// Required fields are checked in the service so a single response can
// enumerate every offending field across the whole batch.
type CreateTaskRequest struct {
	StatusClose     bool          `json:"status_close"`
	TaskDescription *string       `json:"task_description"`
	Shift           *string       `json:"shift"`
	ShiftStart      *DateTime     `json:"shift_start"`
	ShiftEnd        *DateTime     `json:"shift_end"`
	BatchNumber     *int          `json:"batch_number"`
	BatchDate       *DateTime     `json:"batch_date"`
	Brigade         *NameRef      `json:"brigade"`
	WorkCenter      *NameRef      `json:"work_center"`
	Products        []ProductSpec `json:"product"`
}

// UpdateTaskRequest is a PATCH payload. Plain pointers mean absent-or-value;
// Optional fields additionally distinguish an explicit null, which clears the
// stored value.
type UpdateTaskRequest struct {
	StatusClose     *bool            `json:"status_close"`
	TaskDescription Optional[string] `json:"task_description"`
	Shift           Optional[string] `json:"shift"`
	ShiftStart      *DateTime        `json:"shift_start"`
	ShiftEnd        *DateTime        `json:"shift_end"`
	BatchNumber     *int             `json:"batch_number"`
	BatchDate       *DateTime        `json:"batch_date"`
	Brigade         *NameRef         `json:"brigade"`
	WorkCenter      *NameRef         `json:"work_center"`
	// Products, when present, wholesale replaces the task's product list.
	Products *[]ProductSpec `json:"products"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type TaskFilter struct {
	StatusClose    *bool     `form:"status_close"`
	BatchNumber    *int      `form:"batch_number"`
	BatchDate      time.Time `form:"batch_date"      time_format:"2006-01-02"`
	WorkCenterID   string    `form:"work_center_id"  validate:"omitempty,uuid"`
	BrigadeID      string    `form:"brigade_id"      validate:"omitempty,uuid"`
	ShiftStartFrom time.Time `form:"shift_start_from" time_format:"2006-01-02T15:04:05Z07:00"`
	ShiftStartTo   time.Time `form:"shift_start_to"   time_format:"2006-01-02T15:04:05Z07:00"`
	Skip           int       `form:"skip,default=0"    validate:"min=0"`
	Limit          int       `form:"limit,default=100" validate:"min=1,max=1000"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TaskResponse struct {
	ID              string            `json:"id"`
	StatusClose     bool              `json:"status_close"`
	ClosedDate      *time.Time        `json:"closed_date"`
	TaskDescription *string           `json:"task_description"`
	Shift           *string           `json:"shift"`
	ShiftStart      time.Time         `json:"shift_start"`
	ShiftEnd        time.Time         `json:"shift_end"`
	BatchNumber     int               `json:"batch_number"`
	BatchDate       time.Time         `json:"batch_date"`
	Brigade         *RefResponse      `json:"brigade"`
	WorkCenter      *RefResponse      `json:"work_center"`
	Products        []ProductResponse `json:"products,omitempty"`
}

package repository

import (
	"context"
	"time"

	"batchtrack/internal/dto"
	"batchtrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskRepository defines the data access contract for shift tasks.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type TaskRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	FindByBatchKey(ctx context.Context, batchNumber int, batchDate time.Time) (*model.Task, error)
	List(ctx context.Context, filter dto.TaskFilter) ([]model.Task, error)

	// Used inside transactions — callers must pass the tx instance
	CreateTx(tx *gorm.DB, t *model.Task) error
	SaveTx(tx *gorm.DB, t *model.Task) error
	ExistsBatchKeyTx(tx *gorm.DB, batchNumber int, batchDate time.Time, excludeID uuid.UUID) (bool, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type taskRepo struct{ db *gorm.DB }

func NewTaskRepository(db *gorm.DB) TaskRepository { return &taskRepo{db: db} }

func (r *taskRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var t model.Task
	err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("Brigade").
		Preload("WorkCenter").
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepo) FindByBatchKey(ctx context.Context, batchNumber int, batchDate time.Time) (*model.Task, error) {
	var t model.Task
	err := r.db.WithContext(ctx).
		Where("batch_number = ? AND batch_date = ?", batchNumber, batchDate).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepo) List(ctx context.Context, filter dto.TaskFilter) ([]model.Task, error) {
	var tasks []model.Task

	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Preload("Products").
		Preload("Brigade").
		Preload("WorkCenter")

	if filter.StatusClose != nil {
		q = q.Where("status_close = ?", *filter.StatusClose)
	}
	if filter.BatchNumber != nil {
		q = q.Where("batch_number = ?", *filter.BatchNumber)
	}
	if !filter.BatchDate.IsZero() {
		q = q.Where("batch_date = ?", filter.BatchDate)
	}
	if filter.WorkCenterID != "" {
		q = q.Where("work_center_id = ?", filter.WorkCenterID)
	}
	if filter.BrigadeID != "" {
		q = q.Where("brigade_id = ?", filter.BrigadeID)
	}
	if !filter.ShiftStartFrom.IsZero() {
		q = q.Where("shift_start >= ?", filter.ShiftStartFrom)
	}
	if !filter.ShiftStartTo.IsZero() {
		q = q.Where("shift_start <= ?", filter.ShiftStartTo)
	}

	err := q.Order("batch_date ASC, batch_number ASC").
		Offset(filter.Skip).Limit(filter.Limit).
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepo) CreateTx(tx *gorm.DB, t *model.Task) error {
	return tx.Create(t).Error
}

func (r *taskRepo) SaveTx(tx *gorm.DB, t *model.Task) error {
	return tx.Save(t).Error
}

// ExistsBatchKeyTx reports whether a task other than excludeID already holds
// the given batch key. excludeID is uuid.Nil on creation.
func (r *taskRepo) ExistsBatchKeyTx(tx *gorm.DB, batchNumber int, batchDate time.Time, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&model.Task{}).
		Where("batch_number = ? AND batch_date = ? AND id <> ?", batchNumber, batchDate, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *taskRepo) DB() *gorm.DB { return r.db }

package repository

import (
	"context"
	"time"

	"batchtrack/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository defines the data access contract for product units.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByCode(ctx context.Context, eknCode string) (*model.Product, error)

	// MarkAggregated performs the terminal pending → aggregated transition as
	// a single conditional update. It returns false when the row was already
	// aggregated, which is how a concurrent loser observes the winner: the
	// store's row-level locking guarantees at most one caller flips the flag.
	MarkAggregated(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// Used inside transactions — callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.Product) error
	ReplaceForTaskTx(tx *gorm.DB, taskID uuid.UUID, products []model.Product) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByCode(ctx context.Context, eknCode string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("ekn_code = ?", eknCode).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) MarkAggregated(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND is_aggregated = ?", id, false).
		Updates(map[string]interface{}{
			"is_aggregated": true,
			"aggregated_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Create(p).Error
}

// ReplaceForTaskTx drops the task's current product list and recreates it
// from the given specs, all inside the caller's transaction.
func (r *productRepo) ReplaceForTaskTx(tx *gorm.DB, taskID uuid.UUID, products []model.Product) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&model.Product{}).Error; err != nil {
		return err
	}
	for i := range products {
		products[i].TaskID = taskID
		if err := tx.Create(&products[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *productRepo) DB() *gorm.DB { return r.db }

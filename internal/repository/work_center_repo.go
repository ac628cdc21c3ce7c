package repository

import (
	"context"
	"errors"

	"batchtrack/internal/model"

	"gorm.io/gorm"
)

// WorkCenterRepository resolves work centers by name, same contract and race
// handling as BrigadeRepository.
type WorkCenterRepository interface {
	FindOrCreate(ctx context.Context, name string) (*model.WorkCenter, error)
	FindOrCreateTx(tx *gorm.DB, name string) (*model.WorkCenter, error)
}

type workCenterRepo struct{ db *gorm.DB }

func NewWorkCenterRepository(db *gorm.DB) WorkCenterRepository { return &workCenterRepo{db: db} }

func (r *workCenterRepo) FindOrCreate(ctx context.Context, name string) (*model.WorkCenter, error) {
	return r.FindOrCreateTx(r.db.WithContext(ctx), name)
}

func (r *workCenterRepo) FindOrCreateTx(tx *gorm.DB, name string) (*model.WorkCenter, error) {
	var wc model.WorkCenter
	err := tx.Where("name = ?", name).First(&wc).Error
	if err == nil {
		return &wc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wc = model.WorkCenter{Name: name}
	if createErr := tx.Create(&wc).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			if err := tx.Where("name = ?", name).First(&wc).Error; err == nil {
				return &wc, nil
			}
		}
		return nil, createErr
	}
	return &wc, nil
}

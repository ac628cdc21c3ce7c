package repository

import (
	"context"
	"errors"

	"batchtrack/internal/model"

	"gorm.io/gorm"
)

// BrigadeRepository resolves brigades by name with implicit create-if-absent.
// Two concurrent resolutions of the same new name may race; the unique index
// on name makes the second insert fail, after which the loser re-reads the
// winner's row.
type BrigadeRepository interface {
	FindOrCreate(ctx context.Context, name string) (*model.Brigade, error)
	FindOrCreateTx(tx *gorm.DB, name string) (*model.Brigade, error)
}

type brigadeRepo struct{ db *gorm.DB }

func NewBrigadeRepository(db *gorm.DB) BrigadeRepository { return &brigadeRepo{db: db} }

func (r *brigadeRepo) FindOrCreate(ctx context.Context, name string) (*model.Brigade, error) {
	return r.FindOrCreateTx(r.db.WithContext(ctx), name)
}

func (r *brigadeRepo) FindOrCreateTx(tx *gorm.DB, name string) (*model.Brigade, error) {
	var b model.Brigade
	err := tx.Where("name = ?", name).First(&b).Error
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	b = model.Brigade{Name: name}
	if createErr := tx.Create(&b).Error; createErr != nil {
		// Lost the upsert race: the name now exists, re-read it.
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			if err := tx.Where("name = ?", name).First(&b).Error; err == nil {
				return &b, nil
			}
		}
		return nil, createErr
	}
	return &b, nil
}

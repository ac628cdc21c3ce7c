package service_test

import (
	"context"
	"sync"
	"time"

	"batchtrack/internal/dto"
	"batchtrack/internal/model"
	"batchtrack/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// In-memory repositories for service unit tests. DB() returns nil so runTx
// degrades to a direct call; transactional rollback behavior is covered by the
// integration suite against real Postgres.

type stubTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*model.Task
}

func newStubTaskRepo() *stubTaskRepo {
	return &stubTaskRepo{tasks: make(map[uuid.UUID]*model.Task)}
}

func (r *stubTaskRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *stubTaskRepo) FindByBatchKey(_ context.Context, batchNumber int, batchDate time.Time) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.BatchNumber == batchNumber && t.BatchDate.Equal(batchDate) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubTaskRepo) List(_ context.Context, filter dto.TaskFilter) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Task
	for _, t := range r.tasks {
		if filter.StatusClose != nil && t.StatusClose != *filter.StatusClose {
			continue
		}
		if filter.BatchNumber != nil && t.BatchNumber != *filter.BatchNumber {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *stubTaskRepo) CreateTx(_ *gorm.DB, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *stubTaskRepo) SaveTx(_ *gorm.DB, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *stubTaskRepo) ExistsBatchKeyTx(_ *gorm.DB, batchNumber int, batchDate time.Time, excludeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID != excludeID && t.BatchNumber == batchNumber && t.BatchDate.Equal(batchDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubTaskRepo) DB() *gorm.DB { return nil }

var _ repository.TaskRepository = (*stubTaskRepo)(nil)

type stubProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
	codeIdx  map[string]uuid.UUID
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{
		products: make(map[uuid.UUID]*model.Product),
		codeIdx:  make(map[string]uuid.UUID),
	}
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.EknCode != nil {
		if _, exists := r.codeIdx[*p.EknCode]; exists {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.products[p.ID] = &cp
	if p.EknCode != nil {
		r.codeIdx[*p.EknCode] = p.ID
	}
	return nil
}

func (r *stubProductRepo) CreateTx(_ *gorm.DB, p *model.Product) error {
	return r.Create(context.Background(), p)
}

func (r *stubProductRepo) FindByCode(_ context.Context, eknCode string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.codeIdx[eknCode]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r.products[id]
	return &cp, nil
}

// MarkAggregated mirrors the store's conditional update: the mutex stands in
// for row-level locking, so exactly one concurrent caller can win.
func (r *stubProductRepo) MarkAggregated(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.IsAggregated {
		return false, nil
	}
	p.IsAggregated = true
	stamp := at
	p.AggregatedAt = &stamp
	return true, nil
}

func (r *stubProductRepo) ReplaceForTaskTx(_ *gorm.DB, taskID uuid.UUID, products []model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.products {
		if p.TaskID == taskID {
			if p.EknCode != nil {
				delete(r.codeIdx, *p.EknCode)
			}
			delete(r.products, id)
		}
	}
	for i := range products {
		products[i].TaskID = taskID
		if products[i].ID == uuid.Nil {
			products[i].ID = uuid.New()
		}
		cp := products[i]
		r.products[cp.ID] = &cp
		if cp.EknCode != nil {
			r.codeIdx[*cp.EknCode] = cp.ID
		}
	}
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

type stubBrigadeRepo struct {
	mu      sync.Mutex
	byName  map[string]*model.Brigade
	creates int
}

func newStubBrigadeRepo() *stubBrigadeRepo {
	return &stubBrigadeRepo{byName: make(map[string]*model.Brigade)}
}

func (r *stubBrigadeRepo) FindOrCreate(_ context.Context, name string) (*model.Brigade, error) {
	return r.FindOrCreateTx(nil, name)
}

func (r *stubBrigadeRepo) FindOrCreateTx(_ *gorm.DB, name string) (*model.Brigade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byName[name]; ok {
		return b, nil
	}
	b := &model.Brigade{ID: uuid.New(), Name: name}
	r.byName[name] = b
	r.creates++
	return b, nil
}

var _ repository.BrigadeRepository = (*stubBrigadeRepo)(nil)

type stubWorkCenterRepo struct {
	mu     sync.Mutex
	byName map[string]*model.WorkCenter
}

func newStubWorkCenterRepo() *stubWorkCenterRepo {
	return &stubWorkCenterRepo{byName: make(map[string]*model.WorkCenter)}
}

func (r *stubWorkCenterRepo) FindOrCreate(_ context.Context, name string) (*model.WorkCenter, error) {
	return r.FindOrCreateTx(nil, name)
}

func (r *stubWorkCenterRepo) FindOrCreateTx(_ *gorm.DB, name string) (*model.WorkCenter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wc, ok := r.byName[name]; ok {
		return wc, nil
	}
	wc := &model.WorkCenter{ID: uuid.New(), Name: name}
	r.byName[name] = wc
	return wc, nil
}

var _ repository.WorkCenterRepository = (*stubWorkCenterRepo)(nil)

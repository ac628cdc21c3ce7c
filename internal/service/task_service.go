package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"batchtrack/internal/apierror"
	"batchtrack/internal/dto"
	"batchtrack/internal/model"
	"batchtrack/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskService owns shift-task ingestion: bulk creation, single lookup,
// partial update, and filtered listing.
type TaskService interface {
	CreateTasks(ctx context.Context, reqs []dto.CreateTaskRequest) ([]dto.TaskResponse, error)
	GetTask(ctx context.Context, id uuid.UUID) (*dto.TaskResponse, error)
	UpdateTask(ctx context.Context, id uuid.UUID, req dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	ListTasks(ctx context.Context, filter dto.TaskFilter) ([]dto.TaskResponse, error)
}

type taskService struct {
	taskRepo    repository.TaskRepository
	productRepo repository.ProductRepository
	brigadeRepo repository.BrigadeRepository
	wcRepo      repository.WorkCenterRepository
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	productRepo repository.ProductRepository,
	brigadeRepo repository.BrigadeRepository,
	wcRepo repository.WorkCenterRepository,
) TaskService {
	return &taskService{
		taskRepo:    taskRepo,
		productRepo: productRepo,
		brigadeRepo: brigadeRepo,
		wcRepo:      wcRepo,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── CreateTasks ───────────────────────────────────────────────────────────────
// All-or-nothing bulk ingestion: every spec is validated up front and one
// offending field anywhere voids the whole batch. Valid batches then commit
// in a single transaction — brigade/work-center resolution, task inserts, and
// inline product inserts together.

func (s *taskService) CreateTasks(ctx context.Context, reqs []dto.CreateTaskRequest) ([]dto.TaskResponse, error) {
	if len(reqs) == 0 {
		return nil, apierror.NewValidation(map[string]string{"tasks": "must not be empty"})
	}

	fields := make(map[string]string)
	type batchKey struct {
		number int
		date   time.Time
	}
	seen := make(map[batchKey]int)

	for i, req := range reqs {
		if req.BatchNumber == nil {
			fields[fmt.Sprintf("tasks[%d].batch_number", i)] = "required"
		}
		if req.BatchDate == nil {
			fields[fmt.Sprintf("tasks[%d].batch_date", i)] = "required"
		}
		if req.ShiftStart == nil {
			fields[fmt.Sprintf("tasks[%d].shift_start", i)] = "required"
		}
		if req.ShiftEnd == nil {
			fields[fmt.Sprintf("tasks[%d].shift_end", i)] = "required"
		}
		if req.ShiftStart != nil && req.ShiftEnd != nil && !req.ShiftStart.Time.Before(req.ShiftEnd.Time) {
			fields[fmt.Sprintf("tasks[%d].shift_start", i)] = "must be before shift_end"
		}
		if req.Brigade != nil && req.Brigade.Name == "" {
			fields[fmt.Sprintf("tasks[%d].brigade.name", i)] = "required"
		}
		if req.WorkCenter != nil && req.WorkCenter.Name == "" {
			fields[fmt.Sprintf("tasks[%d].work_center.name", i)] = "required"
		}
		for j, p := range req.Products {
			if p.Nomenclature == "" {
				fields[fmt.Sprintf("tasks[%d].product[%d].nomenclature", i, j)] = "required"
			}
		}
		if req.BatchNumber != nil && req.BatchDate != nil {
			key := batchKey{*req.BatchNumber, req.BatchDate.Time}
			if first, dup := seen[key]; dup {
				fields[fmt.Sprintf("tasks[%d].batch_number", i)] =
					fmt.Sprintf("duplicate batch key, already used by tasks[%d]", first)
			} else {
				seen[key] = i
			}
		}
	}
	if len(fields) > 0 {
		return nil, apierror.NewValidation(fields)
	}

	created := make([]*model.Task, 0, len(reqs))
	txErr := runTx(ctx, s.taskRepo.DB(), func(tx *gorm.DB) error {
		for i, req := range reqs {
			exists, err := s.taskRepo.ExistsBatchKeyTx(tx, *req.BatchNumber, req.BatchDate.Time, uuid.Nil)
			if err != nil {
				return err
			}
			if exists {
				return apierror.NewValidation(map[string]string{
					fmt.Sprintf("tasks[%d].batch_number", i): "batch key already in use",
				})
			}

			t := &model.Task{
				StatusClose:     req.StatusClose,
				TaskDescription: req.TaskDescription,
				Shift:           req.Shift,
				ShiftStart:      req.ShiftStart.Time,
				ShiftEnd:        req.ShiftEnd.Time,
				BatchNumber:     *req.BatchNumber,
				BatchDate:       req.BatchDate.Time,
			}
			if req.Brigade != nil {
				b, err := s.brigadeRepo.FindOrCreateTx(tx, req.Brigade.Name)
				if err != nil {
					return err
				}
				t.BrigadeID = &b.ID
				t.Brigade = b
			}
			if req.WorkCenter != nil {
				wc, err := s.wcRepo.FindOrCreateTx(tx, req.WorkCenter.Name)
				if err != nil {
					return err
				}
				t.WorkCenterID = &wc.ID
				t.WorkCenter = wc
			}

			if err := s.taskRepo.CreateTx(tx, t); err != nil {
				return err
			}

			for _, spec := range req.Products {
				p := &model.Product{
					Nomenclature: spec.Nomenclature,
					EknCode:      spec.EknCode,
					IsAggregated: false,
					TaskID:       t.ID,
				}
				if err := s.productRepo.CreateTx(tx, p); err != nil {
					return err
				}
				t.Products = append(t.Products, *p)
			}
			created = append(created, t)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	out := make([]dto.TaskResponse, 0, len(created))
	for _, t := range created {
		out = append(out, *taskToResponse(t))
	}
	return out, nil
}

// ── GetTask ───────────────────────────────────────────────────────────────────

func (s *taskService) GetTask(ctx context.Context, id uuid.UUID) (*dto.TaskResponse, error) {
	t, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NewNotFound("task %s not found", id)
		}
		return nil, err
	}
	return taskToResponse(t), nil
}

// ── UpdateTask ────────────────────────────────────────────────────────────────
// Patch semantics: absent fields stay untouched, explicit nulls clear the
// clearable fields, values overwrite. closed_date follows status_close
// transitions only — re-setting the same value leaves it alone. The merged
// task must still satisfy shift_start < shift_end.

func (s *taskService) UpdateTask(ctx context.Context, id uuid.UUID, req dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	t, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NewNotFound("task %s not found", id)
		}
		return nil, err
	}

	if req.StatusClose != nil && *req.StatusClose != t.StatusClose {
		if *req.StatusClose {
			now := time.Now().UTC()
			t.ClosedDate = &now
		} else {
			t.ClosedDate = nil
		}
		t.StatusClose = *req.StatusClose
	}
	if req.TaskDescription.Set {
		t.TaskDescription = req.TaskDescription.Value
	}
	if req.Shift.Set {
		t.Shift = req.Shift.Value
	}
	if req.ShiftStart != nil {
		t.ShiftStart = req.ShiftStart.Time
	}
	if req.ShiftEnd != nil {
		t.ShiftEnd = req.ShiftEnd.Time
	}
	batchKeyChanged := false
	if req.BatchNumber != nil && *req.BatchNumber != t.BatchNumber {
		t.BatchNumber = *req.BatchNumber
		batchKeyChanged = true
	}
	if req.BatchDate != nil && !req.BatchDate.Time.Equal(t.BatchDate) {
		t.BatchDate = req.BatchDate.Time
		batchKeyChanged = true
	}

	if !t.ShiftStart.Before(t.ShiftEnd) {
		return nil, apierror.NewValidation(map[string]string{
			"shift_start": "must be before shift_end",
		})
	}

	txErr := runTx(ctx, s.taskRepo.DB(), func(tx *gorm.DB) error {
		if batchKeyChanged {
			exists, err := s.taskRepo.ExistsBatchKeyTx(tx, t.BatchNumber, t.BatchDate, t.ID)
			if err != nil {
				return err
			}
			if exists {
				return apierror.NewValidation(map[string]string{
					"batch_number": "batch key already in use",
				})
			}
		}

		if req.Brigade != nil {
			b, err := s.brigadeRepo.FindOrCreateTx(tx, req.Brigade.Name)
			if err != nil {
				return err
			}
			t.BrigadeID = &b.ID
			t.Brigade = b
		}
		if req.WorkCenter != nil {
			wc, err := s.wcRepo.FindOrCreateTx(tx, req.WorkCenter.Name)
			if err != nil {
				return err
			}
			t.WorkCenterID = &wc.ID
			t.WorkCenter = wc
		}

		if err := s.taskRepo.SaveTx(tx, t); err != nil {
			return err
		}

		if req.Products != nil {
			replacements := make([]model.Product, 0, len(*req.Products))
			for _, spec := range *req.Products {
				replacements = append(replacements, model.Product{
					Nomenclature: spec.Nomenclature,
					EknCode:      spec.EknCode,
					IsAggregated: false,
				})
			}
			if err := s.productRepo.ReplaceForTaskTx(tx, t.ID, replacements); err != nil {
				return err
			}
			t.Products = replacements
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return taskToResponse(t), nil
}

// ── ListTasks ─────────────────────────────────────────────────────────────────

func (s *taskService) ListTasks(ctx context.Context, filter dto.TaskFilter) ([]dto.TaskResponse, error) {
	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, *taskToResponse(&tasks[i]))
	}
	return out, nil
}

// ── Mappers ───────────────────────────────────────────────────────────────────

func taskToResponse(t *model.Task) *dto.TaskResponse {
	resp := &dto.TaskResponse{
		ID:              t.ID.String(),
		StatusClose:     t.StatusClose,
		ClosedDate:      t.ClosedDate,
		TaskDescription: t.TaskDescription,
		Shift:           t.Shift,
		ShiftStart:      t.ShiftStart,
		ShiftEnd:        t.ShiftEnd,
		BatchNumber:     t.BatchNumber,
		BatchDate:       t.BatchDate,
	}
	if t.Brigade != nil {
		resp.Brigade = &dto.RefResponse{ID: t.Brigade.ID.String(), Name: t.Brigade.Name}
	}
	if t.WorkCenter != nil {
		resp.WorkCenter = &dto.RefResponse{ID: t.WorkCenter.ID.String(), Name: t.WorkCenter.Name}
	}
	for i := range t.Products {
		resp.Products = append(resp.Products, *productToResponse(&t.Products[i]))
	}
	return resp
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:           p.ID.String(),
		Nomenclature: p.Nomenclature,
		EknCode:      p.EknCode,
		IsAggregated: p.IsAggregated,
		AggregatedAt: p.AggregatedAt,
		TaskID:       p.TaskID.String(),
	}
}

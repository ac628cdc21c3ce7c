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
	"batchtrack/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProductService owns product binding and the aggregation state machine.
type ProductService interface {
	BindProducts(ctx context.Context, entries []dto.BindProductEntry) ([]dto.BindProductResult, error)
	Aggregate(ctx context.Context, req dto.AggregateRequest) (*dto.AggregateResponse, error)
}

type productService struct {
	productRepo repository.ProductRepository
	taskRepo    repository.TaskRepository
	rdb         *redis.Client // nil in unit test mode: cache disabled
	cacheTTL    time.Duration
	dispatcher  *worker.Dispatcher // nil in unit test mode: events dropped
}

func NewProductService(
	productRepo repository.ProductRepository,
	taskRepo repository.TaskRepository,
	rdb *redis.Client,
	cacheTTL time.Duration,
	dispatcher *worker.Dispatcher,
) ProductService {
	return &productService{
		productRepo: productRepo,
		taskRepo:    taskRepo,
		rdb:         rdb,
		cacheTTL:    cacheTTL,
		dispatcher:  dispatcher,
	}
}

// ── BindProducts ──────────────────────────────────────────────────────────────
// Best-effort batch fed by the production line as unit codes are minted.
// Unmatched batch keys and duplicate codes are steady-state noise, not
// errors: those entries are skipped silently and only the successfully bound
// ones are returned. Store failures still abort the whole call.

func (s *productService) BindProducts(ctx context.Context, entries []dto.BindProductEntry) ([]dto.BindProductResult, error) {
	results := make([]dto.BindProductResult, 0, len(entries))

	for _, entry := range entries {
		// Incomplete entries are dropped like unmatched ones.
		if entry.EknCode == "" || entry.BatchNumber == 0 || entry.BatchDate.IsZero() {
			continue
		}

		taskID, err := s.resolveBatchTask(ctx, entry.BatchNumber, entry.BatchDate.Time)
		if err != nil {
			return nil, err
		}
		if taskID == uuid.Nil {
			log.Debug().
				Int("batch_number", entry.BatchNumber).
				Time("batch_date", entry.BatchDate.Time).
				Msg("bind skipped: no task for batch key")
			continue
		}

		code := entry.EknCode
		if _, err := s.productRepo.FindByCode(ctx, code); err == nil {
			log.Debug().Str("ekn_code", code).Msg("bind skipped: code already exists")
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		p := &model.Product{
			EknCode:      &code,
			IsAggregated: false,
			TaskID:       taskID,
		}
		if err := s.productRepo.Create(ctx, p); err != nil {
			// A concurrent bind of the same code got there first.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				log.Debug().Str("ekn_code", code).Msg("bind skipped: lost creation race")
				continue
			}
			return nil, err
		}

		results = append(results, dto.BindProductResult{
			EknCode: code,
			TaskID:  taskID.String(),
		})
	}

	return results, nil
}

// resolveBatchTask maps a batch key to its task ID, consulting the Redis
// cache first. Only positive resolutions are cached: a batch may appear in
// the store at any moment, so misses always fall through. Returns uuid.Nil
// when no task holds the key.
func (s *productService) resolveBatchTask(ctx context.Context, batchNumber int, batchDate time.Time) (uuid.UUID, error) {
	cacheKey := fmt.Sprintf("batch:%d:%s", batchNumber, batchDate.UTC().Format(time.RFC3339))

	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			if id, err := uuid.Parse(val); err == nil {
				return id, nil
			}
		}
	}

	t, err := s.taskRepo.FindByBatchKey(ctx, batchNumber, batchDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, cacheKey, t.ID.String(), s.cacheTTL).Err(); err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache batch key resolution")
		}
	}
	return t.ID, nil
}

// ── Aggregate ─────────────────────────────────────────────────────────────────
// Terminal pending → aggregated transition, exactly once per code. The batch
// mismatch check runs before the already-aggregated check. The flip itself is
// a conditional update in the store, so two concurrent calls on the same code
// serialize there: the loser sees zero rows affected, re-reads, and reports
// the winner's timestamp.

func (s *productService) Aggregate(ctx context.Context, req dto.AggregateRequest) (*dto.AggregateResponse, error) {
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return nil, apierror.NewValidation(map[string]string{"task_id": "must be a UUID"})
	}

	p, err := s.productRepo.FindByCode(ctx, req.EknCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NewNotFound("product with unique code %s not found", req.EknCode)
		}
		return nil, err
	}

	if p.TaskID != taskID {
		return nil, apierror.NewConflict("unique code is attached to another batch")
	}
	if p.IsAggregated {
		return nil, alreadyUsed(p.AggregatedAt)
	}

	now := time.Now().UTC()
	won, err := s.productRepo.MarkAggregated(ctx, p.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race: fetch the winner's timestamp.
		current, err := s.productRepo.FindByCode(ctx, req.EknCode)
		if err != nil {
			return nil, err
		}
		return nil, alreadyUsed(current.AggregatedAt)
	}

	if s.dispatcher != nil {
		ev := worker.AggregationEvent{
			TaskID:       taskID.String(),
			EknCode:      req.EknCode,
			AggregatedAt: now,
		}
		if err := s.dispatcher.EnqueueAggregation(ctx, ev); err != nil {
			// Observational only, never surfaced to the caller.
			log.Warn().Err(err).Str("ekn_code", req.EknCode).Msg("failed to enqueue aggregation event")
		}
	}

	return &dto.AggregateResponse{EknCode: req.EknCode}, nil
}

func alreadyUsed(at *time.Time) *apierror.ConflictError {
	stamp := ""
	if at != nil {
		stamp = at.UTC().Format(time.RFC3339)
	}
	return apierror.NewConflict("unique code already used at %s", stamp)
}

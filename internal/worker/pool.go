package worker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// QueueAggregation is the Redis list aggregation events are pushed to.
	QueueAggregation = "jobs:aggregation"
	// countersKey is the Redis hash holding per-task aggregation counters,
	// maintained by the worker pool and read by the stats endpoint.
	countersKey = "agg:task_counters"

	popTimeout = 5 * time.Second
)

// AggregationEvent records one successful aggregation. Events are purely
// observational: aggregation correctness never depends on the queue.
type AggregationEvent struct {
	TaskID       string    `json:"task_id"`
	EknCode      string    `json:"ekn_code"`
	AggregatedAt time.Time `json:"aggregated_at"`
}

// Dispatcher enqueues aggregation events into a Redis list.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAggregation pushes an aggregation event to Redis.
func (d *Dispatcher) EnqueueAggregation(ctx context.Context, ev AggregationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueAggregation, data).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the aggregation
// event queue until ctx is cancelled.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i)
	}
	log.Info().Int("workers", numWorkers).Msg("aggregation worker pool started")
}

func runWorker(ctx context.Context, rdb *redis.Client, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := rdb.BRPop(ctx, popTimeout, QueueAggregation).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Int("worker", id).Msg("failed to pop aggregation event")
			time.Sleep(time.Second)
			continue
		}

		// BRPop returns [key, value]
		var ev AggregationEvent
		if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
			log.Error().Err(err).Int("worker", id).Msg("malformed aggregation event dropped")
			continue
		}

		if err := rdb.HIncrBy(ctx, countersKey, ev.TaskID, 1).Err(); err != nil {
			log.Error().Err(err).Str("task_id", ev.TaskID).Msg("failed to bump aggregation counter")
			continue
		}
		log.Debug().
			Int("worker", id).
			Str("task_id", ev.TaskID).
			Str("ekn_code", ev.EknCode).
			Time("aggregated_at", ev.AggregatedAt).
			Msg("aggregation event processed")
	}
}

// TaskCounter returns how many aggregation events have been processed for the
// given task. Zero when no event was seen yet.
func TaskCounter(ctx context.Context, rdb *redis.Client, taskID string) (int64, error) {
	val, err := rdb.HGet(ctx, countersKey, taskID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

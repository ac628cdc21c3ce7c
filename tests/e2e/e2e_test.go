//go:build integration

package e2e

// End-to-end tests for batchtrack using real Postgres + Redis via
// testcontainers. Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   - bulk task creation, validation atomicity, duplicate batch keys
//   - partial update (absent vs null, status_close transitions)
//   - product binding with silent skips
//   - aggregation: happy path, conflicts, concurrency burst
//   - aggregation event counters via the worker pool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"batchtrack/internal/config"
	"batchtrack/internal/infra"
	"batchtrack/internal/router"
	"batchtrack/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

func setupTestEnv(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcPostgres.WithDatabase("batchtrack_test"),
		tcPostgres.WithUsername("batchtrack"),
		tcPostgres.WithPassword("batchtrack"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	redisURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(redisURL)
	require.NoError(t, err)

	workerCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	worker.StartWorkerPool(workerCtx, rdb, 2)

	cfg := &config.Config{
		Port:                 8000,
		Env:                  "test",
		DatabaseURL:          dsn,
		RedisURL:             redisURL,
		WorkerPoolSize:       2,
		BatchCacheTTLSeconds: 60,
	}
	engine := router.New(cfg, db, rdb, worker.NewDispatcher(rdb))
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func createTask(t *testing.T, srv *httptest.Server, batchNumber int, products []map[string]any) map[string]any {
	t.Helper()
	payload := []map[string]any{{
		"shift":        "night",
		"shift_start":  "2026-02-01T20:00:00Z",
		"shift_end":    "2026-02-02T08:00:00Z",
		"batch_number": batchNumber,
		"batch_date":   "2026-02-01",
		"brigade":      map[string]string{"name": "brigade-7"},
		"work_center":  map[string]string{"name": "press-3"},
		"product":      products,
	}}
	resp := do(t, srv, http.MethodPost, "/v1/tasks", jsonBody(t, payload))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created []map[string]any
	decodeJSON(t, resp, &created)
	require.Len(t, created, 1)
	return created[0]
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestTaskLifecycle(t *testing.T) {
	srv := setupTestEnv(t)

	task := createTask(t, srv, 100, []map[string]any{
		{"nomenclature": "valve body", "ekn_code": "EKN-001"},
	})
	id := task["id"].(string)
	require.NotNil(t, task["brigade"])

	// Read back with products.
	resp := do(t, srv, http.MethodGet, "/v1/tasks/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]any
	decodeJSON(t, resp, &got)
	products := got["products"].([]any)
	require.Len(t, products, 1)

	// Close it: closed_date stamped.
	resp = do(t, srv, http.MethodPatch, "/v1/tasks/"+id, jsonBody(t, map[string]any{"status_close": true}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &got)
	assert.Equal(t, true, got["status_close"])
	assert.NotNil(t, got["closed_date"])

	// Absent field untouched, explicit null clears.
	resp = do(t, srv, http.MethodPatch, "/v1/tasks/"+id, jsonBody(t, map[string]any{"shift": nil}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &got)
	assert.Nil(t, got["shift"])
	assert.Equal(t, true, got["status_close"])

	// Filtered listing.
	resp = do(t, srv, http.MethodGet, "/v1/tasks?status_close=true&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []map[string]any
	decodeJSON(t, resp, &listed)
	require.Len(t, listed, 1)

	// Unknown id is a 404.
	resp = do(t, srv, http.MethodGet, "/v1/tasks/6a9d25a1-93ff-4f8e-b2c1-000000000000", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateTasksAtomicity(t *testing.T) {
	srv := setupTestEnv(t)

	// One bad spec voids the whole batch.
	payload := []map[string]any{
		{
			"shift_start": "2026-02-01T20:00:00Z", "shift_end": "2026-02-02T08:00:00Z",
			"batch_number": 300, "batch_date": "2026-02-01",
		},
		{
			"shift_start": "2026-02-02T08:00:00Z", "shift_end": "2026-02-01T20:00:00Z",
			"batch_number": 301, "batch_date": "2026-02-01",
		},
	}
	resp := do(t, srv, http.MethodPost, "/v1/tasks", jsonBody(t, payload))
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Nothing from the batch is visible.
	resp = do(t, srv, http.MethodGet, "/v1/tasks?batch_number=300", nil)
	var listed []map[string]any
	decodeJSON(t, resp, &listed)
	assert.Empty(t, listed)
}

func TestDuplicateBatchKeyRejected(t *testing.T) {
	srv := setupTestEnv(t)
	createTask(t, srv, 100, nil)

	payload := []map[string]any{{
		"shift_start": "2026-02-01T20:00:00Z", "shift_end": "2026-02-02T08:00:00Z",
		"batch_number": 100, "batch_date": "2026-02-01",
	}}
	resp := do(t, srv, http.MethodPost, "/v1/tasks", jsonBody(t, payload))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBindAndAggregate(t *testing.T) {
	srv := setupTestEnv(t)
	task := createTask(t, srv, 100, nil)
	taskID := task["id"].(string)

	// Bind: one match, one unknown batch, then a duplicate code.
	entries := []map[string]any{
		{"ekn_code": "EKN-100", "batch_number": 100, "batch_date": "2026-02-01"},
		{"ekn_code": "EKN-LOST", "batch_number": 999, "batch_date": "2026-02-01"},
	}
	resp := do(t, srv, http.MethodPost, "/v1/products/bind", jsonBody(t, entries))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bound []map[string]any
	decodeJSON(t, resp, &bound)
	require.Len(t, bound, 1)
	assert.Equal(t, "EKN-100", bound[0]["ekn_code"])
	assert.Equal(t, taskID, bound[0]["task_id"])

	resp = do(t, srv, http.MethodPost, "/v1/products/bind", jsonBody(t, entries[:1]))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &bound)
	assert.Empty(t, bound)

	// Aggregate once.
	agg := map[string]any{"task_id": taskID, "ekn_code": "EKN-100"}
	resp = do(t, srv, http.MethodPost, "/v1/products/aggregate", jsonBody(t, agg))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var aggResp map[string]any
	decodeJSON(t, resp, &aggResp)
	assert.Equal(t, "EKN-100", aggResp["ekn_code"])

	// Re-aggregation conflicts citing the original timestamp.
	resp = do(t, srv, http.MethodPost, "/v1/products/aggregate", jsonBody(t, agg))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr map[string]any
	decodeJSON(t, resp, &apiErr)
	assert.Contains(t, apiErr["detail"], "unique code already used at ")

	// Unknown code is a 404.
	resp = do(t, srv, http.MethodPost, "/v1/products/aggregate",
		jsonBody(t, map[string]any{"task_id": taskID, "ekn_code": "NO-SUCH"}))
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Worker pool eventually bumps the counter.
	require.Eventually(t, func() bool {
		resp := do(t, srv, http.MethodGet, "/v1/tasks/"+taskID+"/aggregation-stats", nil)
		var stats map[string]any
		decodeJSON(t, resp, &stats)
		return stats["aggregated_count"] == float64(1)
	}, 10*time.Second, 200*time.Millisecond)
}

func TestAggregateWrongBatch(t *testing.T) {
	srv := setupTestEnv(t)
	createTask(t, srv, 100, []map[string]any{
		{"nomenclature": "valve body", "ekn_code": "EKN-X"},
	})
	other := createTask(t, srv, 200, nil)

	resp := do(t, srv, http.MethodPost, "/v1/products/aggregate",
		jsonBody(t, map[string]any{"task_id": other["id"], "ekn_code": "EKN-X"}))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr map[string]any
	decodeJSON(t, resp, &apiErr)
	assert.Equal(t, "unique code is attached to another batch", apiErr["detail"])
}

func TestAggregateConcurrencyBurst(t *testing.T) {
	srv := setupTestEnv(t)
	task := createTask(t, srv, 100, []map[string]any{
		{"nomenclature": "valve body", "ekn_code": "EKN-RACE"},
	})
	taskID := task["id"].(string)

	const n = 10
	statuses := make([]int, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			body := jsonBody(t, map[string]any{"task_id": taskID, "ekn_code": "EKN-RACE"})
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/products/aggregate", body)
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := srv.Client().Do(req)
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, s := range statuses {
		switch s {
		case http.StatusOK:
			wins++
		case http.StatusBadRequest:
			conflicts++
		}
	}
	assert.Equal(t, 1, wins, fmt.Sprintf("statuses: %v", statuses))
	assert.Equal(t, n-1, conflicts)
}

package handler

import (
	"net/http"

	"batchtrack/internal/apierror"
	"batchtrack/internal/dto"
	"batchtrack/internal/service"
	"batchtrack/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type ProductsHandler struct {
	svc service.ProductService
	rdb *redis.Client
}

func NewProductsHandler(svc service.ProductService, rdb *redis.Client) *ProductsHandler {
	return &ProductsHandler{svc: svc, rdb: rdb}
}

// Bind attaches observed unit codes to their batches. Per-entry failures are
// expected noise and never surface; only store failures produce an error.
func (h *ProductsHandler) Bind(c *gin.Context) {
	var entries []dto.BindProductEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return
	}
	resp, err := h.svc.BindProducts(c.Request.Context(), entries)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Aggregate(c *gin.Context) {
	var req dto.AggregateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Aggregate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AggregationStats reports how many aggregation events the worker pool has
// processed for a task.
func (h *ProductsHandler) AggregationStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid task id"))
		return
	}
	count, err := worker.TaskCounter(c.Request.Context(), h.rdb, id.String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": id.String(), "aggregated_count": count})
}

package handler

import (
	"net/http"

	"batchtrack/internal/apierror"
	"batchtrack/internal/dto"
	"batchtrack/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TasksHandler struct{ svc service.TaskService }

func NewTasksHandler(svc service.TaskService) *TasksHandler {
	return &TasksHandler{svc: svc}
}

// Create ingests a batch of shift tasks. The payload is a JSON array; field
// validation happens in the service so one response can enumerate every
// offending field across the batch.
func (h *TasksHandler) Create(c *gin.Context) {
	var reqs []dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return
	}
	resp, err := h.svc.CreateTasks(c.Request.Context(), reqs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TasksHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid task id"))
		return
	}
	resp, err := h.svc.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TasksHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid task id"))
		return
	}
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return
	}
	resp, err := h.svc.UpdateTask(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TasksHandler) List(c *gin.Context) {
	var filter dto.TaskFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("malformed filter: "+err.Error()))
		return
	}
	if err := validate.Struct(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("malformed filter: "+err.Error()))
		return
	}
	resp, err := h.svc.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

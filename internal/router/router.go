package router

import (
	"time"

	"batchtrack/internal/config"
	"batchtrack/internal/handler"
	"batchtrack/internal/middleware"
	"batchtrack/internal/repository"
	"batchtrack/internal/service"
	"batchtrack/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	taskRepo := repository.NewTaskRepository(db)
	productRepo := repository.NewProductRepository(db)
	brigadeRepo := repository.NewBrigadeRepository(db)
	wcRepo := repository.NewWorkCenterRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	taskSvc := service.NewTaskService(taskRepo, productRepo, brigadeRepo, wcRepo)
	productSvc := service.NewProductService(productRepo, taskRepo, rdb, cfg.BatchCacheTTL(), dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	tasksH := handler.NewTasksHandler(taskSvc)
	productsH := handler.NewProductsHandler(productSvc, rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	v1 := r.Group("/v1")
	{
		v1.POST("/tasks", tasksH.Create)
		v1.GET("/tasks", tasksH.List)
		v1.GET("/tasks/:id", tasksH.GetByID)
		v1.PATCH("/tasks/:id", tasksH.Update)
		v1.GET("/tasks/:id/aggregation-stats", productsH.AggregationStats)

		v1.POST("/products/bind", productsH.Bind)
		v1.POST("/products/aggregate", productsH.Aggregate)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

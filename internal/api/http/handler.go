package http

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/toolsascode/shift/internal/api/http/dto"
	"github.com/toolsascode/shift/internal/auth"
	"github.com/toolsascode/shift/internal/executor"
	"github.com/toolsascode/shift/internal/history"
	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/metrics"
	"github.com/toolsascode/shift/internal/migrator"
	"github.com/toolsascode/shift/internal/operations"
	"github.com/toolsascode/shift/internal/queue"
	"github.com/toolsascode/shift/internal/registry"
	"github.com/toolsascode/shift/internal/worker"
)

// Migrator is the orchestrator surface the API drives
type Migrator interface {
	Migrate(ctx context.Context, target string) (*migrator.Result, error)
	GenerateScript(ctx context.Context, from, to string, opts migrator.ScriptOptions) (string, error)
	DryRun(ctx context.Context, target string, opts migrator.ScriptOptions) (string, error)
	List(ctx context.Context) ([]migrator.Status, error)
}

// Config wires a Handler. Producer, Results, Loader, Metrics and
// HealthCheck are optional.
type Config struct {
	Migrator    Migrator
	Registry    registry.Registry
	Loader      *registry.Loader
	Producer    queue.Producer
	Results     *worker.Results
	Auth        *auth.TokenValidator
	Metrics     *metrics.Collector
	HealthCheck func(ctx context.Context) error
}

// Handler handles HTTP API requests
type Handler struct {
	migrator    Migrator
	registry    registry.Registry
	loader      *registry.Loader
	producer    queue.Producer
	results     *worker.Results
	auth        *auth.TokenValidator
	metrics     *metrics.Collector
	healthCheck func(ctx context.Context) error
}

// NewHandler creates a new HTTP handler
func NewHandler(cfg Config) *Handler {
	return &Handler{
		migrator:    cfg.Migrator,
		registry:    cfg.Registry,
		loader:      cfg.Loader,
		producer:    cfg.Producer,
		results:     cfg.Results,
		auth:        cfg.Auth,
		metrics:     cfg.Metrics,
		healthCheck: cfg.HealthCheck,
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.instrument)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := router.Group("/api/v1")
	{
		// Handle OPTIONS for all routes
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		api.GET("/migrations", h.authenticate, h.listMigrations)
		api.GET("/migrations/:id", h.authenticate, h.getMigration)
		api.POST("/migrations/apply", h.authenticate, h.applyMigrations)
		api.POST("/migrations/script", h.authenticate, h.generateScript)
		api.POST("/migrations/reindex", h.authenticate, h.reindexMigrations)
		api.GET("/jobs/:id", h.authenticate, h.getJob)
		api.GET("/health", h.Health)
		api.GET("/openapi.yaml", h.OpenAPISpec)
		api.GET("/openapi.json", h.OpenAPISpecJSON)
	}
}

// instrument records request count and latency per route
func (h *Handler) instrument(c *gin.Context) {
	start := time.Now()
	c.Next()

	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	h.metrics.HTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
}

// authenticate middleware validates API token
func (h *Handler) authenticate(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrNotConfigured.Error()})
		c.Abort()
		return
	}
	if err := h.auth.ValidateHeader(c.GetHeader("Authorization")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	c.Next()
}

// getExecutionMethod determines execution method from request
func getExecutionMethod(c *gin.Context) string {
	clientType := c.GetHeader("X-Client-Type")
	if clientType == "frontend" || c.GetHeader("Origin") != "" {
		return "manual"
	}
	return "api"
}

// getExecutedBy prefers an explicit X-Executed-By header
func getExecutedBy(c *gin.Context) string {
	if by := strings.TrimSpace(c.GetHeader("X-Executed-By")); by != "" {
		return by
	}
	return "api_user"
}

// setExecutionContext sets execution context in the request context
func (h *Handler) setExecutionContext(c *gin.Context, extra map[string]interface{}) context.Context {
	executionContext := map[string]interface{}{
		"endpoint": c.Request.URL.Path,
		"method":   c.Request.Method,
	}
	for k, v := range extra {
		executionContext[k] = v
	}

	return executor.SetExecutionContext(c.Request.Context(), getExecutedBy(c), getExecutionMethod(c), executionContext)
}

// errorStatus maps orchestrator errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, migrator.ErrMigrationNotFound):
		return http.StatusNotFound
	case errors.Is(err, migrator.ErrAmbiguousTarget), errors.Is(err, history.ErrIdempotentUnsupported):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// applyMigrations migrates the database to the requested target
func (h *Handler) applyMigrations(c *gin.Context) {
	var req dto.MigrateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if _, err := migrator.ResolveTarget(h.registry.GetAll(), defaultTarget(req.Target)); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	if req.Async && h.producer != nil {
		h.enqueue(c, &req)
		return
	}

	ctx := h.setExecutionContext(c, req.Metadata)

	response := dto.MigrateResponse{Applied: []string{}, Reverted: []string{}, Errors: []string{}}
	if req.DryRun {
		script, err := h.migrator.DryRun(ctx, req.Target, migrator.ScriptOptions{})
		response.Script = script
		if err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		response.Success = true
		c.JSON(http.StatusOK, response)
		return
	}

	result, err := h.migrator.Migrate(ctx, req.Target)
	if result != nil {
		response.Applied = append(response.Applied, result.Applied...)
		response.Reverted = append(response.Reverted, result.Reverted...)
	}
	if err != nil {
		logger.Errorf("Migration to %q failed: %v", req.Target, err)
		response.Errors = append(response.Errors, err.Error())
		statusCode := errorStatus(err)
		// some units went through before the failure
		if statusCode == http.StatusInternalServerError && (len(response.Applied) > 0 || len(response.Reverted) > 0) {
			statusCode = http.StatusPartialContent
		}
		c.JSON(statusCode, response)
		return
	}

	response.Success = true
	c.JSON(http.StatusOK, response)
}

func defaultTarget(target string) string {
	if target == "" {
		return migrator.InitialDatabase
	}
	return target
}

// enqueue publishes the request as a job and answers 202 with its ID
func (h *Handler) enqueue(c *gin.Context, req *dto.MigrateRequest) {
	job := queue.NewJob(req.Target)
	job.DryRun = req.DryRun
	job.ExecutedBy = getExecutedBy(c)
	job.Metadata = req.Metadata

	if err := h.producer.PublishJob(c.Request.Context(), job); err != nil {
		logger.Errorf("Failed to publish migration job: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	h.results.Queued(job.ID)

	c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{JobID: job.ID, Status: worker.StatusQueued})
}

// generateScript renders SQL for a range of units without touching the database
func (h *Handler) generateScript(c *gin.Context) {
	var req dto.ScriptRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	script, err := h.migrator.GenerateScript(c.Request.Context(), req.From, req.To, migrator.ScriptOptions{
		Idempotent:     req.Idempotent,
		NoTransactions: req.NoTransactions,
		ScriptOnly:     req.ScriptOnly,
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "text/plain") {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(script))
		return
	}
	c.JSON(http.StatusOK, dto.ScriptResponse{Script: script})
}

func listItem(s migrator.Status) dto.MigrationListItem {
	item := dto.MigrationListItem{
		MigrationID:    s.ID,
		Name:           s.Name,
		Applied:        s.Applied,
		ProductVersion: s.ProductVersion,
		ExecutedBy:     s.ExecutedBy,
	}
	switch {
	case s.Orphaned:
		item.Status = "orphaned"
	case s.Applied:
		item.Status = "applied"
	default:
		item.Status = "pending"
	}
	if s.Applied && !s.AppliedAt.IsZero() {
		appliedAt := s.AppliedAt
		item.AppliedAt = &appliedAt
	}
	return item
}

// listMigrations lists all migrations with their status
func (h *Handler) listMigrations(c *gin.Context) {
	var filters dto.MigrationListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses, err := h.migrator.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]dto.MigrationListItem, 0, len(statuses))
	for _, s := range statuses {
		item := listItem(s)
		if filters.Status != "" && !strings.EqualFold(filters.Status, item.Status) {
			continue
		}
		if filters.Name != "" && !strings.EqualFold(filters.Name, item.Name) {
			continue
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, dto.MigrationListResponse{Items: items, Total: len(items)})
}

// getMigration gets a specific migration by ID
func (h *Handler) getMigration(c *gin.Context) {
	migrationID := c.Param("id")

	unit, ok := h.registry.GetByID(migrationID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "migration not found"})
		return
	}

	statuses, err := h.migrator.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := dto.MigrationDetailResponse{
		MigrationListItem: listItem(migrator.Status{ID: unit.ID, Name: unit.Name()}),
		Up:                describeAll(unit.Up),
		Down:              describeAll(unit.Down),
	}
	for _, s := range statuses {
		if strings.EqualFold(s.ID, unit.ID) {
			response.MigrationListItem = listItem(s)
			break
		}
	}

	c.JSON(http.StatusOK, response)
}

func describeAll(ops operations.List) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, operations.Describe(op))
	}
	return out
}

// getJob reports the state of a queued apply
func (h *Handler) getJob(c *gin.Context) {
	status, ok := h.results.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Health handles health check requests
func (h *Handler) Health(c *gin.Context) {
	healthStatus := gin.H{
		"status": "healthy",
		"checks": gin.H{},
	}

	if h.healthCheck != nil {
		if err := h.healthCheck(c.Request.Context()); err != nil {
			healthStatus["status"] = "unhealthy"
			healthStatus["checks"].(gin.H)["database"] = err.Error()
		} else {
			healthStatus["checks"].(gin.H)["database"] = "ok"
		}
	}

	statusCode := http.StatusOK
	if healthStatus["status"] == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthStatus)
}

// reindexMigrations reloads the migrations directory into the registry
func (h *Handler) reindexMigrations(c *gin.Context) {
	if h.loader == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no migrations directory configured"})
		return
	}

	before := len(h.registry.GetAll())
	if err := h.loader.LoadAll(h.registry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total := len(h.registry.GetAll())

	c.JSON(http.StatusOK, dto.ReindexResponse{Total: total, Added: total - before})
}

//go:embed openapi.yaml
var openAPISpecYAML []byte

// OpenAPISpec serves the OpenAPI specification in YAML format
func (h *Handler) OpenAPISpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/x-yaml", openAPISpecYAML)
}

// OpenAPISpecJSON serves the OpenAPI specification in JSON format
func (h *Handler) OpenAPISpecJSON(c *gin.Context) {
	var spec map[string]interface{}
	if err := yaml.Unmarshal(openAPISpecYAML, &spec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse OpenAPI spec"})
		return
	}
	c.JSON(http.StatusOK, spec)
}

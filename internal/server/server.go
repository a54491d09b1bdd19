// Package server exposes the automation runtime over HTTP: deploy,
// validate, preflight, and execute endpoints built on gin-gonic/gin — a
// *gin.Engine assembled by one New function, handlers as plain methods on
// a receiver holding the app's dependencies.
package server

import (
	"net/http"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/core"
	"github.com/fluxline-dev/fluxline/engine/executor"
	"github.com/fluxline-dev/fluxline/engine/preflight"
	"github.com/fluxline-dev/fluxline/engine/storage"
	"github.com/fluxline-dev/fluxline/engine/validator"
	"github.com/fluxline-dev/fluxline/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	fieldvalidator "github.com/go-playground/validator/v10"
)

// Server holds the app dependencies every handler needs.
type Server struct {
	app      *app.App
	validate *fieldvalidator.Validate
}

// New builds a Server over a, ready to have Router called.
func New(a *app.App) *Server {
	return &Server{app: a, validate: fieldvalidator.New()}
}

// Router assembles the gin.Engine exposing this runtime's HTTP surface.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealthz)
	v1 := r.Group("/v1/automations")
	v1.POST("/validate", s.handleValidate)
	v1.POST("/preflight", s.handlePreflight)
	v1.POST("", s.handleDeploy)
	v1.GET("/:id", s.handleGet)
	v1.POST("/:id/execute", s.handleExecute)

	return r
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type validateRequest struct {
	Spec           automation.Spec                  `json:"spec" binding:"required"`
	FetchedSchemas map[string]validator.ToolSchema   `json:"fetched_schemas,omitempty"`
}

func (s *Server) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := validator.Validate(req.Spec, validator.Options{
		Registry:       s.app.Registry,
		FetchedSchemas: req.FetchedSchemas,
	})
	status := http.StatusOK
	if !result.OK {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

type preflightRequest struct {
	UserID        string                            `json:"user_id" binding:"required"`
	TriggerConfig automation.PollingTriggerConfig    `json:"trigger_config" binding:"required"`
	Actions       []automation.Action                `json:"actions"`
}

func (s *Server) handlePreflight(c *gin.Context) {
	var req preflightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := preflight.Run(c.Request.Context(), s.app.Registry, req.UserID, req.TriggerConfig, req.Actions)
	status := http.StatusOK
	if !result.OK {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

type deployRequest struct {
	UserID string           `json:"user_id" binding:"required"`
	Spec   automation.Spec  `json:"spec" binding:"required"`
}

func (s *Server) handleDeploy(c *gin.Context) {
	var req deployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(req.Spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if result := validator.Validate(req.Spec, validator.Options{Registry: s.app.Registry}); !result.OK {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": result.Errors})
		return
	}
	id, err := s.app.Store.CreateAutomation(c.Request.Context(), req.UserID, req.Spec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleGet(c *gin.Context) {
	id, err := core.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.Query("user_id")
	deployment, ok, err := s.app.Store.GetAutomation(c.Request.Context(), id.String(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "automation not found"})
		return
	}
	c.JSON(http.StatusOK, deployment)
}

type executeRequest struct {
	UserID      string         `json:"user_id" binding:"required"`
	TriggerData map[string]any `json:"trigger_data"`
	RequestID   string         `json:"request_id,omitempty"`
}

func (s *Server) handleExecute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	id, err := core.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	deployment, ok, err := s.app.Store.GetAutomation(ctx, id.String(), req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "automation not found"})
		return
	}
	user := s.app.ResolveUser(ctx, req.UserID)

	result := executor.Execute(ctx, executor.Dependencies{
		Registry:  s.app.Registry,
		Notifier:  s.app.Notifier,
		Templates: s.app.Templates,
		Condition: s.app.Condition,
		Log:       s.app.Log,
		Metrics:   s.app.Metrics,
	}, executor.Request{
		Actions:        deployment.Spec.Actions,
		Variables:      deployment.Spec.Variables,
		TriggerData:    req.TriggerData,
		User:           user,
		AutomationID:   deployment.ID,
		AutomationName: deployment.Spec.Name,
		RequestID:      req.RequestID,
	})

	logEntry := storage.LogEntry{AutomationID: deployment.ID, UserID: req.UserID, Result: result}
	if _, err := s.app.Store.LogExecution(ctx, deployment.ID, req.UserID, logEntry); err != nil {
		s.app.Log.Warn("failed to persist execution log", "error", err.Error(), "automation_id", deployment.ID)
	}
	c.JSON(http.StatusOK, result)
}

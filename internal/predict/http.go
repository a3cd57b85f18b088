package predict

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Request is the body of POST /api/predict.
type Request struct {
	NodeID     string `json:"node_id" binding:"required"`
	Screen     string `json:"screen" binding:"required"`
	Functional string `json:"functional" binding:"required"`
	Action     string `json:"action" binding:"required"`
}

// Handlers exposes the service over HTTP.
type Handlers struct {
	Service *Service
}

// NewHandlers wraps a service for gin.
func NewHandlers(s *Service) *Handlers {
	return &Handlers{Service: s}
}

// Predict handles POST /api/predict.
func (h *Handlers) Predict(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("predict: bad request", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	est, err := h.Service.Predict(req.NodeID, req.Screen, req.Functional, req.Action)
	if errors.Is(err, ErrNodeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node_id"})
		return
	}
	if err != nil {
		slog.Error("predict failed", "node_id", req.NodeID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}

	c.JSON(http.StatusOK, est)
}

// Health handles GET /api/health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"nodes":      h.Service.Nodes(),
		"mean_churn": h.Service.MeanChurn(),
	})
}

// Router builds the gin engine with all routes registered.
func Router(s *Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	h := NewHandlers(s)
	api := r.Group("/api")
	{
		api.POST("/predict", h.Predict)
		api.GET("/health", h.Health)
	}
	return r
}

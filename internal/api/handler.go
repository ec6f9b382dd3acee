package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pkgscout/pkgscout/internal/errors"
	"github.com/pkgscout/pkgscout/internal/search"
	"github.com/pkgscout/pkgscout/internal/storage"
)

// Handler handles API requests
type Handler struct {
	ranker *search.Ranker
	store  storage.Storage
}

// NewHandler creates a new API handler
func NewHandler(ranker *search.Ranker, store storage.Storage) *Handler {
	return &Handler{
		ranker: ranker,
		store:  store,
	}
}

// Index describes the service and its entry points
// GET /
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "pkgscout",
		"usage":   "/search?query=<text>&limit=<n>&order=downloads|stars|forks|latest_upload",
	})
}

// Search runs a package search
// GET /search
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("query")
	limit := parseIntQuery(c, "limit", 0)
	order := c.Query("order")

	result, err := h.ranker.Search(c.Request.Context(), query, limit, order)
	if errors.Is(err, search.ErrEmptyQuery) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// GetPackage returns a single package by exact name
// GET /api/v1/packages/:name
func (h *Handler) GetPackage(c *gin.Context) {
	name := c.Param("name")

	pkg, err := h.store.GetPackage(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": pkg,
	})
}

// Stats returns store-level counts
// GET /api/v1/stats
func (h *Handler) Stats(c *gin.Context) {
	count, err := h.store.CountPackages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"packages": count,
		},
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrCodeRateLimited:
			status = http.StatusTooManyRequests
		case apperrors.ErrCodeUpstream:
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": err.Error(),
		},
	})
}

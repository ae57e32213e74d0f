package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmerrifield20/intelshare/internal/trust"
)

type trustResolver interface {
	Resolve(ctx context.Context, sourceOrg, targetOrg string) trust.Resolution
}

// TrustHandler exposes read-only trust lookups.
type TrustHandler struct {
	resolver trustResolver
}

// NewTrustHandler creates a TrustHandler.
func NewTrustHandler(resolver trustResolver) *TrustHandler {
	return &TrustHandler{resolver: resolver}
}

// Register mounts the trust routes on the given router group.
func (h *TrustHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/trust", h.Resolve)
}

// Resolve handles GET /trust?source=&target= and reports the score and
// anonymization level that data from source would receive when shared
// with target.
func (h *TrustHandler) Resolve(c *gin.Context) {
	source, target := c.Query("source"), c.Query("target")
	if source == "" || target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source and target are required"})
		return
	}

	res := h.resolver.Resolve(c.Request.Context(), source, target)
	c.JSON(http.StatusOK, gin.H{
		"source":              source,
		"target":              target,
		"trust_score":         res.Score,
		"anonymization_level": res.Level,
		"basis":               res.Basis,
	})
}

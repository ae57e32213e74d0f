package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/intelshare/internal/sharing"
)

// maxRecords bounds a single bundle request.
const maxRecords = 10_000

// assembler is the subset of sharing.Service used by BundleHandler.
type assembler interface {
	Assemble(ctx context.Context, req sharing.Request) (*sharing.Outcome, error)
}

// BundleHandler serves bundle assembly.
type BundleHandler struct {
	svc       assembler
	publisher string
	logger    *zap.Logger
}

// NewBundleHandler creates a BundleHandler. publisher is used for requests
// that leave publisher_org empty.
func NewBundleHandler(svc assembler, publisher string, logger *zap.Logger) *BundleHandler {
	return &BundleHandler{svc: svc, publisher: publisher, logger: logger}
}

// Register mounts the bundle routes on the given router group.
func (h *BundleHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/bundles", h.Assemble)
}

type assembleRequest struct {
	RequestingOrg string           `json:"requesting_org" binding:"required"`
	PublisherOrg  string           `json:"publisher_org"`
	Records       []sharing.Record `json:"records"`
}

// Assemble handles POST /bundles.
func (h *BundleHandler) Assemble(c *gin.Context) {
	var req assembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Records) > maxRecords {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many records"})
		return
	}

	if req.PublisherOrg == "" {
		req.PublisherOrg = h.publisher
	}

	out, err := h.svc.Assemble(c.Request.Context(), sharing.Request{
		RequestingOrg: req.RequestingOrg,
		PublisherOrg:  req.PublisherOrg,
		Records:       req.Records,
	})
	if err != nil {
		if errors.Is(err, sharing.ErrUnknownOrganization) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("assemble bundle", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assemble bundle"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bundle":   out.Bundle,
		"excluded": out.Excluded,
		"warnings": out.Warnings,
	})
}

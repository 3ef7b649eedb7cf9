package handlers

import (
	"errors"
	"net/http"
	"strings"

	"venuedir/services/media"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MediaHandler hands out time-limited URLs for private bucket media.
type MediaHandler struct {
	Normalizer *media.Normalizer
}

func NewMediaHandler(n *media.Normalizer) *MediaHandler {
	return &MediaHandler{Normalizer: n}
}

// SignedURLHandler handles GET /api/media/signed-url?ref=gs://bucket/object.
func (h *MediaHandler) SignedURLHandler(c *gin.Context) {
	ref := strings.TrimSpace(c.Query("ref"))
	if _, _, ok := media.ParseBucketRef(ref); !ok {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", "ref must be a gs://bucket/object reference")
		return
	}
	signed, err := h.Normalizer.SignedURL(ref)
	if errors.Is(err, media.ErrSigningDisabled) {
		utils.JSONError(c, http.StatusNotImplemented, "Signed media URLs unavailable", err.Error())
		return
	}
	if err != nil {
		getLogger(c).Error("Failed to sign media URL", zap.String("ref", ref), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signed})
}

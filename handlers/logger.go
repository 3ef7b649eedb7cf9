package handlers

import (
	"errors"
	"net/http"

	"venuedir/database/repository/store"
	"venuedir/services/aggregation"
	"venuedir/services/directory"
	"venuedir/services/review"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func getLogger(c *gin.Context) *zap.Logger {
	return utils.LoggerFrom(c)
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidMerchant),
		errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, review.ErrMissingMerchant),
		errors.Is(err, review.ErrMissingUser):
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, review.ErrDuplicateReview):
		utils.JSONError(c, http.StatusConflict, "Review already exists", err.Error())
	case errors.Is(err, review.ErrForbidden):
		utils.JSONError(c, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, directory.ErrMerchantNotFound),
		errors.Is(err, aggregation.ErrMerchantNotFound):
		utils.JSONError(c, http.StatusNotFound, "Merchant not found", err.Error())
	case errors.Is(err, review.ErrReviewNotFound):
		utils.JSONError(c, http.StatusNotFound, "Review not found", err.Error())
	case store.IsTransport(err):
		utils.JSONError(c, http.StatusServiceUnavailable, "Record store unavailable", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

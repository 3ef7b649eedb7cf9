package handlers

import (
	"net/http"

	"venuedir/middleware"
	"venuedir/models"
	"venuedir/services/aggregation"
	"venuedir/services/review"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReviewHandler serves reviews and the rating aggregates they drive.
type ReviewHandler struct {
	Reviews *review.Gateway
	Service *aggregation.Service
}

func NewReviewHandler(reviews *review.Gateway, svc *aggregation.Service) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Service: svc}
}

type reviewRequest struct {
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment"`
}

func writeMutation(c *gin.Context, status int, res *aggregation.Result) {
	if res.Stale() {
		getLogger(c).Warn("Review saved with stale aggregate", zap.Error(res.AggregateErr))
	}
	c.JSON(status, gin.H{
		"review":         res.Review,
		"aggregate":      res.Aggregate,
		"aggregateStale": res.Stale(),
	})
}

// ListMerchantReviewsHandler handles GET /api/merchants/:id/reviews.
func (h *ReviewHandler) ListMerchantReviewsHandler(c *gin.Context) {
	reviews, err := h.Reviews.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

// SubmitReviewHandler handles POST /api/merchants/:id/reviews. A second
// submit by the same user updates their review.
func (h *ReviewHandler) SubmitReviewHandler(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	res, err := h.Service.Submit(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	writeMutation(c, http.StatusOK, res)
}

// RefreshAggregateHandler handles POST /api/merchants/:id/aggregate.
func (h *ReviewHandler) RefreshAggregateHandler(c *gin.Context) {
	agg, err := h.Service.RefreshAggregate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

// UpdateReviewHandler handles PUT /api/reviews/:id.
func (h *ReviewHandler) UpdateReviewHandler(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	res, err := h.Service.Update(c.Request.Context(), middleware.SessionFrom(c),
		models.Review{ID: c.Param("id"), Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		writeError(c, err)
		return
	}
	writeMutation(c, http.StatusOK, res)
}

// DeleteReviewHandler handles DELETE /api/reviews/:id.
func (h *ReviewHandler) DeleteReviewHandler(c *gin.Context) {
	res, err := h.Service.Delete(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeMutation(c, http.StatusOK, res)
}

// ListMyReviewsHandler handles GET /api/users/me/reviews.
func (h *ReviewHandler) ListMyReviewsHandler(c *gin.Context) {
	session := middleware.SessionFrom(c)
	reviews, err := h.Reviews.ListByUser(c.Request.Context(), session.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

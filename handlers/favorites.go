package handlers

import (
	"net/http"

	"venuedir/middleware"
	"venuedir/models"
	"venuedir/services/directory"
	"venuedir/services/favorites"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FavoritesHandler serves the caller's favorite merchants.
type FavoritesHandler struct {
	Store     favorites.Store
	Directory directory.Directory
}

func NewFavoritesHandler(store favorites.Store, dir directory.Directory) *FavoritesHandler {
	return &FavoritesHandler{Store: store, Directory: dir}
}

// ListFavoritesHandler handles GET /api/users/me/favorites. Favorites whose
// merchant no longer exists are omitted.
func (h *FavoritesHandler) ListFavoritesHandler(c *gin.Context) {
	session := middleware.SessionFrom(c)
	ids, err := h.Store.Favorites(c.Request.Context(), session.UserID)
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Favorites unavailable", err.Error())
		return
	}

	merchants := make([]models.Merchant, 0, len(ids))
	for _, id := range ids {
		m, err := h.Directory.MerchantByID(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		if m == nil {
			getLogger(c).Debug("Favorite points at a missing merchant", zap.String("merchantId", id))
			continue
		}
		merchants = append(merchants, *m)
	}
	c.JSON(http.StatusOK, gin.H{"merchants": merchants, "count": len(merchants)})
}

// AddFavoriteHandler handles PUT /api/users/me/favorites/:merchantId.
func (h *FavoritesHandler) AddFavoriteHandler(c *gin.Context) {
	merchantID := c.Param("merchantId")
	m, err := h.Directory.MerchantByID(c.Request.Context(), merchantID)
	if err != nil {
		writeError(c, err)
		return
	}
	if m == nil {
		utils.JSONError(c, http.StatusNotFound, "Merchant not found", merchantID)
		return
	}
	if err := h.Store.Add(c.Request.Context(), middleware.SessionFrom(c).UserID, merchantID); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Favorites unavailable", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveFavoriteHandler handles DELETE /api/users/me/favorites/:merchantId.
func (h *FavoritesHandler) RemoveFavoriteHandler(c *gin.Context) {
	if err := h.Store.Remove(c.Request.Context(), middleware.SessionFrom(c).UserID, c.Param("merchantId")); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Favorites unavailable", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

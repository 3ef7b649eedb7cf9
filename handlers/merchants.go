package handlers

import (
	"net/http"
	"strconv"

	"venuedir/models"
	"venuedir/services/directory"
	"venuedir/services/search"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MerchantHandler serves the directory.
type MerchantHandler struct {
	Directory directory.Directory
	Resolver  search.CoordinateResolver
}

func NewMerchantHandler(dir directory.Directory, resolver search.CoordinateResolver) *MerchantHandler {
	return &MerchantHandler{Directory: dir, Resolver: resolver}
}

func (h *MerchantHandler) resolve(c *gin.Context, merchants []models.Merchant) []models.Merchant {
	if h.Resolver == nil {
		return merchants
	}
	return h.Resolver.ResolveCoordinates(c.Request.Context(), merchants)
}

// SearchMerchantsHandler handles GET /api/merchants?q=.
func (h *MerchantHandler) SearchMerchantsHandler(c *gin.Context) {
	merchants, err := h.Directory.SearchMerchants(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	merchants = h.resolve(c, merchants)
	c.JSON(http.StatusOK, gin.H{"merchants": merchants, "count": len(merchants)})
}

// FetchNearHandler handles GET /api/merchants/near?lat=&lng=&radius=.
func (h *MerchantHandler) FetchNearHandler(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", "lat and lng are required numbers")
		return
	}
	radius := 5000.0
	if r := c.Query("radius"); r != "" {
		parsed, err := strconv.ParseFloat(r, 64)
		if err != nil || parsed <= 0 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request", "radius must be a positive number")
			return
		}
		radius = parsed
	}

	merchants, err := h.Directory.FetchNear(c.Request.Context(), lat, lng, radius)
	if err != nil {
		writeError(c, err)
		return
	}
	merchants = h.resolve(c, merchants)
	c.JSON(http.StatusOK, gin.H{"merchants": merchants, "count": len(merchants)})
}

// GetMerchantHandler handles GET /api/merchants/:id.
func (h *MerchantHandler) GetMerchantHandler(c *gin.Context) {
	m, err := h.Directory.MerchantByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if m == nil {
		utils.JSONError(c, http.StatusNotFound, "Merchant not found", c.Param("id"))
		return
	}
	if !m.HasValidCoordinate() {
		m = &h.resolve(c, []models.Merchant{*m})[0]
	}
	c.JSON(http.StatusOK, m)
}

// CreateMerchantHandler handles POST /api/merchants.
func (h *MerchantHandler) CreateMerchantHandler(c *gin.Context) {
	var req models.Merchant
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	created, err := h.Directory.CreateMerchant(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	getLogger(c).Info("Merchant created via API", zap.String("id", created.ID))
	c.JSON(http.StatusCreated, created)
}

// UpdateMerchantHandler handles PATCH /api/merchants/:id.
func (h *MerchantHandler) UpdateMerchantHandler(c *gin.Context) {
	var patch directory.MerchantPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	updated, err := h.Directory.UpdateMerchant(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMerchantHandler handles DELETE /api/merchants/:id.
func (h *MerchantHandler) DeleteMerchantHandler(c *gin.Context) {
	if err := h.Directory.DeleteMerchant(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"venuedir/middleware"
	"venuedir/services/search"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
)

// SearchHandler exposes search sessions: a query and scope held server side,
// with debounced fetches and a paged result window.
type SearchHandler struct {
	Registry *search.Registry
}

func NewSearchHandler(registry *search.Registry) *SearchHandler {
	return &SearchHandler{Registry: registry}
}

type openSearchRequest struct {
	Query string `json:"query"`
	Scope string `json:"scope"`
}

// SearchSecretHeader carries the secret of an anonymous search session.
const SearchSecretHeader = "X-Search-Token"

func searchCaller(c *gin.Context) search.Caller {
	return search.Caller{
		UserID: middleware.SessionFrom(c).UserID,
		Secret: c.GetHeader(SearchSecretHeader),
	}
}

func (h *SearchHandler) controller(c *gin.Context) (*search.Controller, bool) {
	ctrl, ok := h.Registry.Get(c.Param("id"), searchCaller(c))
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "Search session not found", c.Param("id"))
		return nil, false
	}
	return ctrl, true
}

// OpenSearchHandler handles POST /api/search/sessions. The first page is
// fetched before responding. Anonymous callers get a token to send back in
// X-Search-Token.
func (h *SearchHandler) OpenSearchHandler(c *gin.Context) {
	var req openSearchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
	}
	scope, err := search.ParseScope(req.Scope)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	id, secret, ctrl := h.Registry.Open(middleware.SessionFrom(c))
	ctrl.Init(req.Query, scope)
	state := ctrl.Refresh(c.Request.Context())
	body := gin.H{"id": id, "state": state}
	if secret != "" {
		body["token"] = secret
	}
	c.JSON(http.StatusCreated, body)
}

// GetSearchHandler handles GET /api/search/sessions/:id.
func (h *SearchHandler) GetSearchHandler(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.State())
}

// SetSearchQueryHandler handles PUT /api/search/sessions/:id/query. The
// fetch is debounced; poll the session for results.
func (h *SearchHandler) SetSearchQueryHandler(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctrl.SetQuery(req.Query)
	c.JSON(http.StatusAccepted, ctrl.State())
}

// SetSearchScopeHandler handles PUT /api/search/sessions/:id/scope.
func (h *SearchHandler) SetSearchScopeHandler(c *gin.Context) {
	var req struct {
		Scope string `json:"scope"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	scope, err := search.ParseScope(req.Scope)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctrl.SetScope(scope)
	c.JSON(http.StatusAccepted, ctrl.State())
}

// LoadMoreHandler handles POST /api/search/sessions/:id/more.
func (h *SearchHandler) LoadMoreHandler(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctrl.LoadMore()
	c.JSON(http.StatusOK, ctrl.State())
}

// CloseSearchHandler handles DELETE /api/search/sessions/:id.
func (h *SearchHandler) CloseSearchHandler(c *gin.Context) {
	if !h.Registry.Close(c.Param("id"), searchCaller(c)) {
		utils.JSONError(c, http.StatusNotFound, "Search session not found", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

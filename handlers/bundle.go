package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Merchant endpoints
	SearchMerchantsHandler gin.HandlerFunc
	FetchNearHandler       gin.HandlerFunc
	GetMerchantHandler     gin.HandlerFunc
	CreateMerchantHandler  gin.HandlerFunc
	UpdateMerchantHandler  gin.HandlerFunc
	DeleteMerchantHandler  gin.HandlerFunc

	// Review endpoints
	ListMerchantReviewsHandler gin.HandlerFunc
	SubmitReviewHandler        gin.HandlerFunc
	RefreshAggregateHandler    gin.HandlerFunc
	UpdateReviewHandler        gin.HandlerFunc
	DeleteReviewHandler        gin.HandlerFunc
	ListMyReviewsHandler       gin.HandlerFunc

	// Favorites endpoints
	ListFavoritesHandler  gin.HandlerFunc
	AddFavoriteHandler    gin.HandlerFunc
	RemoveFavoriteHandler gin.HandlerFunc

	// Search session endpoints
	OpenSearchHandler     gin.HandlerFunc
	GetSearchHandler      gin.HandlerFunc
	SetSearchQueryHandler gin.HandlerFunc
	SetSearchScopeHandler gin.HandlerFunc
	LoadMoreHandler       gin.HandlerFunc
	CloseSearchHandler    gin.HandlerFunc

	// Media endpoints
	SignedMediaURLHandler gin.HandlerFunc

	HealthHandler  gin.HandlerFunc
	MetricsHandler gin.HandlerFunc // nil when metrics are disabled
}

// NewHandlerBundle assembles the bundle from the per-domain handlers.
func NewHandlerBundle(merchants *MerchantHandler, reviews *ReviewHandler, favorites *FavoritesHandler, search *SearchHandler, mediaURLs *MediaHandler) *HandlerBundle {
	return &HandlerBundle{
		SearchMerchantsHandler: merchants.SearchMerchantsHandler,
		FetchNearHandler:       merchants.FetchNearHandler,
		GetMerchantHandler:     merchants.GetMerchantHandler,
		CreateMerchantHandler:  merchants.CreateMerchantHandler,
		UpdateMerchantHandler:  merchants.UpdateMerchantHandler,
		DeleteMerchantHandler:  merchants.DeleteMerchantHandler,

		ListMerchantReviewsHandler: reviews.ListMerchantReviewsHandler,
		SubmitReviewHandler:        reviews.SubmitReviewHandler,
		RefreshAggregateHandler:    reviews.RefreshAggregateHandler,
		UpdateReviewHandler:        reviews.UpdateReviewHandler,
		DeleteReviewHandler:        reviews.DeleteReviewHandler,
		ListMyReviewsHandler:       reviews.ListMyReviewsHandler,

		ListFavoritesHandler:  favorites.ListFavoritesHandler,
		AddFavoriteHandler:    favorites.AddFavoriteHandler,
		RemoveFavoriteHandler: favorites.RemoveFavoriteHandler,

		OpenSearchHandler:     search.OpenSearchHandler,
		GetSearchHandler:      search.GetSearchHandler,
		SetSearchQueryHandler: search.SetSearchQueryHandler,
		SetSearchScopeHandler: search.SetSearchScopeHandler,
		LoadMoreHandler:       search.LoadMoreHandler,
		CloseSearchHandler:    search.CloseSearchHandler,

		SignedMediaURLHandler: mediaURLs.SignedURLHandler,

		HealthHandler: HealthHandler,
	}
}

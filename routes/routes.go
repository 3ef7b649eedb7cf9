package routes

import (
	"time"

	"venuedir/handlers"
	"venuedir/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterMerchantRoutes registers directory and per-merchant review endpoints.
func RegisterMerchantRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/merchants")
	{
		public := api.Group("")
		public.Use(middleware.SessionMiddleware(false))
		public.GET("", hb.SearchMerchantsHandler)
		public.GET("/near", hb.FetchNearHandler)
		public.GET("/:id", hb.GetMerchantHandler)
		public.GET("/:id/reviews", hb.ListMerchantReviewsHandler)

		protected := api.Group("")
		protected.Use(middleware.SessionMiddleware(true))
		protected.POST("", hb.CreateMerchantHandler)
		protected.PATCH("/:id", hb.UpdateMerchantHandler)
		protected.DELETE("/:id", hb.DeleteMerchantHandler)
		protected.POST("/:id/reviews", hb.SubmitReviewHandler)
		protected.POST("/:id/aggregate", hb.RefreshAggregateHandler)
	}
}

// RegisterReviewRoutes registers review mutation endpoints.
func RegisterReviewRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/reviews")
	{
		api.Use(middleware.SessionMiddleware(true))
		api.PUT("/:id", hb.UpdateReviewHandler)
		api.DELETE("/:id", hb.DeleteReviewHandler)
	}
}

// RegisterUserRoutes registers endpoints scoped to the caller.
func RegisterUserRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/users/me")
	{
		api.Use(middleware.SessionMiddleware(true))
		api.GET("/reviews", hb.ListMyReviewsHandler)
		api.GET("/favorites", hb.ListFavoritesHandler)
		api.PUT("/favorites/:merchantId", hb.AddFavoriteHandler)
		api.DELETE("/favorites/:merchantId", hb.RemoveFavoriteHandler)
	}
}

// RegisterSearchRoutes registers search session endpoints. Anonymous callers
// may search; their sessions are reachable with the token returned on open.
func RegisterSearchRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/search/sessions")
	{
		api.Use(middleware.SessionMiddleware(false))
		api.POST("", hb.OpenSearchHandler)
		api.GET("/:id", hb.GetSearchHandler)
		api.PUT("/:id/query", hb.SetSearchQueryHandler)
		api.PUT("/:id/scope", hb.SetSearchScopeHandler)
		api.POST("/:id/more", hb.LoadMoreHandler)
		api.DELETE("/:id", hb.CloseSearchHandler)
	}
}

// RegisterMediaRoutes registers media URL endpoints.
func RegisterMediaRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/media")
	{
		api.Use(middleware.SessionMiddleware(true))
		api.GET("/signed-url", hb.SignedMediaURLHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
	if hb.MetricsHandler != nil {
		r.GET("/metrics", hb.MetricsHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", handlers.SearchSecretHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterMerchantRoutes(r, hb)
	RegisterReviewRoutes(r, hb)
	RegisterUserRoutes(r, hb)
	RegisterSearchRoutes(r, hb)
	RegisterMediaRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}

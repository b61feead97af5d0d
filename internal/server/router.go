package server

import (
	"net/http"

	bidding "auction-house/internal/biddingService"
	"auction-house/internal/config"
	identity "auction-house/internal/identityService"
	listing "auction-house/internal/listingService"
	"auction-house/internal/metrics"
	"auction-house/internal/validation"
	biddinghandler "auction-house/services/bidding/handler"
	identityhandler "auction-house/services/identity/handler"
	listinghandler "auction-house/services/listing/handler"
	"auction-house/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Services bundles the application services the router exposes
type Services struct {
	Bidding  *bidding.BiddingService
	Listing  *listing.ListingService
	Identity *identity.IdentityService
}

// SetupRouter configures all Gin routes for the application.
// rdb may be nil, which disables rate limiting.
func SetupRouter(cfg *config.Config, services Services, rdb *redis.Client) *gin.Engine {
	validation.Init()

	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestIDMiddleware())   // request_id for logs and responses
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(metrics.Middleware())

	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
		}))
	}

	auth := AuthMiddleware(services.Identity)
	viewer := OptionalAuthMiddleware(services.Identity)
	limit := RateLimit(rdb, cfg.RateLimitMax, cfg.RateLimitWindow, KeyByUserID(), nil)

	biddingHandler := biddinghandler.NewBiddingHandler(services.Bidding)
	listingHandler := listinghandler.NewListingHandler(services.Listing)
	identityHandler := identityhandler.NewIdentityHandler(services.Identity, cfg.CookieSecure)

	router.GET("/healthz", func(c *gin.Context) {
		utils.JSONResponse(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limit, identityHandler.RegisterHandler)
		authGroup.POST("/login", limit, identityHandler.LoginHandler)
		authGroup.POST("/logout", auth, identityHandler.LogoutHandler)
		authGroup.GET("/me", auth, identityHandler.MeHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", listingHandler.ListListingsHandler)
		auctions.POST("", auth, limit, listingHandler.CreateListingHandler)
		auctions.GET("/:auction_id", viewer, listingHandler.GetListingHandler)
		auctions.POST("/:auction_id/close", auth, limit, biddingHandler.CloseAuctionHandler)

		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsByAuctionHandler)
		auctions.POST("/:auction_id/bids", auth, limit, biddingHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/winning", biddingHandler.GetWinningBidHandler)

		auctions.GET("/:auction_id/comments", listingHandler.ListCommentsHandler)
		auctions.POST("/:auction_id/comments", auth, limit, listingHandler.PostCommentHandler)
	}

	categories := router.Group("/categories")
	{
		categories.GET("", listingHandler.ListCategoriesHandler)
		categories.POST("", auth, limit, listingHandler.CreateCategoryHandler)
		categories.GET("/:category_id", listingHandler.CategoryListingsHandler)
	}

	watchlist := router.Group("/watchlist", auth)
	{
		watchlist.GET("", listingHandler.WatchlistHandler)
		watchlist.PUT("/:auction_id", limit, listingHandler.WatchHandler)
		watchlist.DELETE("/:auction_id", limit, listingHandler.UnwatchHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/listings", listingHandler.UserListingsHandler)
		users.GET("/:user_id/bids", biddingHandler.GetAuctionsByBidderHandler)
	}

	return router
}

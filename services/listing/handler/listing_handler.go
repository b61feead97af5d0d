package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	listing "auction-house/internal/listingService"
	model "auction-house/internal/models"
	"auction-house/services/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=listing_handler.go -destination=mock_listing_service.go -package=handler

type ListingServiceInterface interface {
	CreateListing(ctx context.Context, in listing.NewListing) (model.Auction, error)
	GetListing(ctx context.Context, auctionID, viewerID string) (model.ListingDetail, error)
	ListListings(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error)
	CreateCategory(ctx context.Context, name string) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	CategoryListings(ctx context.Context, categoryID string) (model.Category, []model.Auction, error)
	Watch(ctx context.Context, userID, auctionID string) error
	Unwatch(ctx context.Context, userID, auctionID string) error
	Watchlist(ctx context.Context, userID string) ([]model.Auction, error)
	PostComment(ctx context.Context, auctionID, authorID, text string) (model.Comment, error)
	ListComments(ctx context.Context, auctionID string) ([]model.Comment, error)
}

type ListingHandler struct {
	service ListingServiceInterface
}

func NewListingHandler(service ListingServiceInterface) *ListingHandler {
	return &ListingHandler{service: service}
}

// CreateListingHandler handles POST /auctions
func (h *ListingHandler) CreateListingHandler(c *gin.Context) {
	var req helpers.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateListingHandler", err)
		return
	}

	creatorID := helpers.CurrentUserID(c)
	auction, err := h.service.CreateListing(c.Request.Context(), listing.NewListing{
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		CategoryID:    req.CategoryID,
		ImageURL:      req.ImageURL,
		CreatorID:     creatorID,
	})
	if err != nil {
		helpers.HandleServiceError(c, "CreateListingHandler", err, map[string]any{"creator_id": creatorID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "listing created successfully")
	helpers.LogSuccess("CreateListingHandler", "listing created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"creator_id": creatorID,
	})
}

// ListListingsHandler handles GET /auctions?active=&category_id=&creator_id=&winner_id=
func (h *ListingHandler) ListListingsHandler(c *gin.Context) {
	filter := model.AuctionFilter{
		CategoryID: c.Query("category_id"),
		CreatorID:  c.Query("creator_id"),
		WinnerID:   c.Query("winner_id"),
	}
	if raw, ok := c.GetQuery("active"); ok {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			utils.JSONErrorDetails(c, http.StatusBadRequest, fmt.Errorf("invalid active filter: %w", err),
				"invalid query parameters", map[string]string{"active": "must be a boolean value"})
			return
		}
		filter.Active = &active
	}

	auctions, err := h.service.ListListings(c.Request.Context(), filter)
	if err != nil {
		helpers.HandleServiceError(c, "ListListingsHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(auctions), "listings retrieved successfully")
	helpers.LogSuccess("ListListingsHandler", "listings retrieved successfully", map[string]any{"count": len(auctions)})
}

// GetListingHandler handles GET /auctions/:auction_id
func (h *ListingHandler) GetListingHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	viewerID := helpers.CurrentUserID(c)

	detail, err := h.service.GetListing(c.Request.Context(), auctionID, viewerID)
	if err != nil {
		helpers.HandleServiceError(c, "GetListingHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewListingResponse(detail), "listing retrieved successfully")
	helpers.LogSuccess("GetListingHandler", "listing retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"viewer_id":  viewerID,
	})
}

// UserListingsHandler handles GET /users/:user_id/listings?relation=created|won
func (h *ListingHandler) UserListingsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	filter := model.AuctionFilter{}
	switch relation := c.DefaultQuery("relation", "created"); relation {
	case "created":
		filter.CreatorID = userID
	case "won":
		filter.WinnerID = userID
	default:
		utils.JSONErrorDetails(c, http.StatusBadRequest, fmt.Errorf("unknown relation %q", relation),
			"invalid query parameters", map[string]string{"relation": "must be one of: created, won"})
		return
	}

	auctions, err := h.service.ListListings(c.Request.Context(), filter)
	if err != nil {
		helpers.HandleServiceError(c, "UserListingsHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(auctions), "listings retrieved successfully")
	helpers.LogSuccess("UserListingsHandler", "listings retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(auctions),
	})
}

// ListCategoriesHandler handles GET /categories
func (h *ListingHandler) ListCategoriesHandler(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		helpers.HandleServiceError(c, "ListCategoriesHandler", err, nil)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}

	utils.JSONResponse(c, http.StatusOK, categories, "categories retrieved successfully")
}

// CreateCategoryHandler handles POST /categories
func (h *ListingHandler) CreateCategoryHandler(c *gin.Context) {
	var req helpers.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateCategoryHandler", err)
		return
	}

	category, err := h.service.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		helpers.HandleServiceError(c, "CreateCategoryHandler", err, map[string]any{"name": req.Name})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, category, "category created successfully")
	helpers.LogSuccess("CreateCategoryHandler", "category created successfully", map[string]any{
		"category_id": category.CategoryID,
		"name":        category.Name,
	})
}

// CategoryListingsHandler handles GET /categories/:category_id
func (h *ListingHandler) CategoryListingsHandler(c *gin.Context) {
	categoryID := c.Param("category_id")
	category, auctions, err := h.service.CategoryListings(c.Request.Context(), categoryID)
	if err != nil {
		helpers.HandleServiceError(c, "CategoryListingsHandler", err, map[string]any{"category_id": categoryID})
		return
	}

	resp := helpers.CategoryListingsResponse{
		Category: category,
		Auctions: helpers.NewAuctionResponses(auctions),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "category listings retrieved successfully")
}

// WatchlistHandler handles GET /watchlist
func (h *ListingHandler) WatchlistHandler(c *gin.Context) {
	userID := helpers.CurrentUserID(c)
	auctions, err := h.service.Watchlist(c.Request.Context(), userID)
	if err != nil {
		helpers.HandleServiceError(c, "WatchlistHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(auctions), "watchlist retrieved successfully")
}

// WatchHandler handles PUT /watchlist/:auction_id
func (h *ListingHandler) WatchHandler(c *gin.Context) {
	h.toggleWatch(c, "WatchHandler", true)
}

// UnwatchHandler handles DELETE /watchlist/:auction_id
func (h *ListingHandler) UnwatchHandler(c *gin.Context) {
	h.toggleWatch(c, "UnwatchHandler", false)
}

func (h *ListingHandler) toggleWatch(c *gin.Context, handlerName string, watch bool) {
	userID := helpers.CurrentUserID(c)
	auctionID := c.Param("auction_id")

	var err error
	message := "removed from watchlist"
	if watch {
		err = h.service.Watch(c.Request.Context(), userID, auctionID)
		message = "added to watchlist"
	} else {
		err = h.service.Unwatch(c.Request.Context(), userID, auctionID)
	}
	if err != nil {
		helpers.HandleServiceError(c, handlerName, err, map[string]any{
			"user_id":    userID,
			"auction_id": auctionID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID, "on_watchlist": watch}, message)
	helpers.LogSuccess(handlerName, message, map[string]any{
		"user_id":    userID,
		"auction_id": auctionID,
	})
}

// PostCommentHandler handles POST /auctions/:auction_id/comments
func (h *ListingHandler) PostCommentHandler(c *gin.Context) {
	var req helpers.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PostCommentHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	authorID := helpers.CurrentUserID(c)
	comment, err := h.service.PostComment(c.Request.Context(), auctionID, authorID, req.Content)
	if err != nil {
		helpers.HandleServiceError(c, "PostCommentHandler", err, map[string]any{
			"auction_id": auctionID,
			"author_id":  authorID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewCommentResponse(comment), "comment posted successfully")
	helpers.LogSuccess("PostCommentHandler", "comment posted successfully", map[string]any{
		"comment_id": comment.CommentID,
		"auction_id": auctionID,
	})
}

// ListCommentsHandler handles GET /auctions/:auction_id/comments
func (h *ListingHandler) ListCommentsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	comments, err := h.service.ListComments(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "ListCommentsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewCommentResponses(comments), "comments retrieved successfully")
}

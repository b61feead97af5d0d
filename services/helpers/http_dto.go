package helpers

import (
	"time"

	model "auction-house/internal/models"

	"github.com/shopspring/decimal"
)

// Request DTOs
type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

type CreateListingRequest struct {
	Title         string          `json:"title" binding:"required,maxtrim=100"`
	Description   string          `json:"description" binding:"required,maxtrim=1000"`
	StartingPrice decimal.Decimal `json:"starting_price" binding:"required,gt=0"`
	CategoryID    string          `json:"category_id" binding:"omitempty,uuid"`
	ImageURL      string          `json:"image_url" binding:"omitempty,http_url"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,maxtrim=100"`
}

type CommentRequest struct {
	Content string `json:"content" binding:"required,maxtrim=500"`
}

type RegisterRequest struct {
	Username     string `json:"username" binding:"required,maxtrim=64"`
	Email        string `json:"email" binding:"omitempty,email"`
	Password     string `json:"password" binding:"required,pwd"`
	Confirmation string `json:"confirmation" binding:"required,eqfield=Password"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Response DTOs
type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

type AuctionResponse struct {
	AuctionID     string `json:"auction_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartingPrice string `json:"starting_price"`
	CurrentPrice  string `json:"current_price"`
	Active        bool   `json:"active"`
	WinnerID      string `json:"winner_id,omitempty"`
	CreatorID     string `json:"creator_id"`
	CategoryID    string `json:"category_id,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type CommentResponse struct {
	CommentID string `json:"comment_id"`
	AuctionID string `json:"auction_id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type ListingResponse struct {
	Auction     AuctionResponse   `json:"auction"`
	Bids        []BidResponse     `json:"bids"`
	Comments    []CommentResponse `json:"comments"`
	OnWatchlist bool              `json:"on_watchlist"`
	OwnListing  bool              `json:"own_listing"`
	Leading     bool              `json:"leading"`
	Won         bool              `json:"won"`
}

type CategoryListingsResponse struct {
	Category model.Category    `json:"category"`
	Auctions []AuctionResponse `json:"auctions"`
}

type UserResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// NewBidResponse converts a bid for the wire; amounts always carry two decimals
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount.StringFixed(2),
		CreatedAt: formatTime(bid.CreatedAt),
	}
}

func NewBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}

func NewAuctionResponse(a model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:     a.AuctionID,
		Title:         a.Title,
		Description:   a.Description,
		StartingPrice: a.StartingPrice.StringFixed(2),
		CurrentPrice:  a.CurrentPrice.StringFixed(2),
		Active:        a.Active,
		WinnerID:      a.WinnerID,
		CreatorID:     a.CreatorID,
		CategoryID:    a.CategoryID,
		ImageURL:      a.ImageURL,
		CreatedAt:     formatTime(a.CreatedAt),
	}
}

func NewAuctionResponses(auctions []model.Auction) []AuctionResponse {
	out := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, NewAuctionResponse(a))
	}
	return out
}

func NewCommentResponse(cm model.Comment) CommentResponse {
	return CommentResponse{
		CommentID: cm.CommentID,
		AuctionID: cm.AuctionID,
		AuthorID:  cm.AuthorID,
		Content:   cm.Content,
		CreatedAt: formatTime(cm.CreatedAt),
	}
}

func NewCommentResponses(comments []model.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, NewCommentResponse(cm))
	}
	return out
}

func NewListingResponse(d model.ListingDetail) ListingResponse {
	return ListingResponse{
		Auction:     NewAuctionResponse(d.Auction),
		Bids:        NewBidResponses(d.Bids),
		Comments:    NewCommentResponses(d.Comments),
		OnWatchlist: d.OnWatchlist,
		OwnListing:  d.OwnListing,
		Leading:     d.Leading,
		Won:         d.Won,
	}
}

func NewUserResponse(u model.User) UserResponse {
	return UserResponse{
		UserID:    u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

package listing

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"auction-house/internal/auctionerrors"
	bidding "auction-house/internal/biddingService"
	model "auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/internal/validation"
	"auction-house/utils"
)

// Field limits for listings, categories and comments
const (
	MaxTitleLength        = 100
	MaxDescriptionLength  = 1000
	MaxCategoryNameLength = 100
	MaxCommentLength      = 500
)

// NewListing carries the fields a seller supplies when creating an auction
type NewListing struct {
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	CategoryID    string
	ImageURL      string
	CreatorID     string
}

// ListingService owns the catalog, the watchlist and the comment board
type ListingService struct {
	repo repository.ListingDB
	now  func() time.Time
}

// NewListingService creates a new ListingService instance
func NewListingService(repo repository.ListingDB) *ListingService {
	return &ListingService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateListing opens a new active auction priced at its starting price
func (s *ListingService) CreateListing(ctx context.Context, in NewListing) (model.Auction, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)

	if in.CreatorID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing creator", auctionerrors.ErrValidation)
	}
	if err := checkLength("title", title, MaxTitleLength); err != nil {
		return model.Auction{}, err
	}
	if err := checkLength("description", description, MaxDescriptionLength); err != nil {
		return model.Auction{}, err
	}
	if err := bidding.ValidateAmount(in.StartingPrice); err != nil {
		return model.Auction{}, fmt.Errorf("service: starting price: %w", err)
	}
	if in.ImageURL != "" {
		if err := validation.HTTPURL(in.ImageURL); err != nil {
			return model.Auction{}, fmt.Errorf("service: %w - image_url must be an http(s) URL", auctionerrors.ErrValidation)
		}
	}

	auction := model.Auction{
		AuctionID:     utils.GenerateID(),
		Title:         title,
		Description:   description,
		StartingPrice: in.StartingPrice,
		CurrentPrice:  in.StartingPrice,
		Active:        true,
		CreatorID:     in.CreatorID,
		CategoryID:    in.CategoryID,
		ImageURL:      in.ImageURL,
		CreatedAt:     s.now(),
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create listing: %w", err)
	}

	utils.Info("listing created", map[string]any{
		"auction_id":     auction.AuctionID,
		"creator_id":     auction.CreatorID,
		"starting_price": auction.StartingPrice.String(),
	})
	return auction, nil
}

// GetListing returns the listing page aggregate as seen by viewerID.
// An empty viewerID is an anonymous visitor.
func (s *ListingService) GetListing(ctx context.Context, auctionID, viewerID string) (model.ListingDetail, error) {
	if auctionID == "" {
		return model.ListingDetail{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.ListingDetail{}, fmt.Errorf("service: failed to get listing %s: %w", auctionID, err)
	}
	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return model.ListingDetail{}, fmt.Errorf("service: failed to get bids for listing %s: %w", auctionID, err)
	}
	comments, err := s.repo.GetCommentsByAuction(ctx, auctionID)
	if err != nil {
		return model.ListingDetail{}, fmt.Errorf("service: failed to get comments for listing %s: %w", auctionID, err)
	}

	detail := model.ListingDetail{
		Auction:  auction,
		Bids:     bids,
		Comments: comments,
	}
	if viewerID == "" {
		return detail, nil
	}

	watching, err := s.repo.IsWatching(ctx, viewerID, auctionID)
	if err != nil {
		return model.ListingDetail{}, fmt.Errorf("service: failed to check watchlist: %w", err)
	}
	detail.OnWatchlist = watching
	detail.OwnListing = auction.CreatorID == viewerID
	detail.Leading = auction.Active && len(bids) > 0 && bids[0].BidderID == viewerID
	detail.Won = auction.WinnerID == viewerID
	return detail, nil
}

// ListListings returns auctions matching filter, newest first
func (s *ListingService) ListListings(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	auctions, err := s.repo.ListAuctions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list listings: %w", err)
	}
	return auctions, nil
}

// CreateCategory adds a category with a unique name
func (s *ListingService) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if err := checkLength("name", name, MaxCategoryNameLength); err != nil {
		return model.Category{}, err
	}

	category := model.Category{CategoryID: utils.GenerateID(), Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return model.Category{}, fmt.Errorf("service: failed to create category %q: %w", name, err)
	}
	return category, nil
}

// ListCategories returns every category ordered by name
func (s *ListingService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

// CategoryListings returns the category and its active listings
func (s *ListingService) CategoryListings(ctx context.Context, categoryID string) (model.Category, []model.Auction, error) {
	category, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return model.Category{}, nil, fmt.Errorf("service: failed to get category %s: %w", categoryID, err)
	}

	active := true
	auctions, err := s.repo.ListAuctions(ctx, model.AuctionFilter{Active: &active, CategoryID: categoryID})
	if err != nil {
		return model.Category{}, nil, fmt.Errorf("service: failed to list category %s: %w", categoryID, err)
	}
	return category, auctions, nil
}

// Watch adds the auction to the user's watchlist; watching twice is a no-op
func (s *ListingService) Watch(ctx context.Context, userID, auctionID string) error {
	if userID == "" || auctionID == "" {
		return fmt.Errorf("service: %w - missing userID or auctionID", auctionerrors.ErrValidation)
	}
	if err := s.repo.AddToWatchlist(ctx, userID, auctionID); err != nil {
		return fmt.Errorf("service: failed to watch auction %s: %w", auctionID, err)
	}
	return nil
}

// Unwatch removes the auction from the user's watchlist; unwatching a
// non-member is a no-op
func (s *ListingService) Unwatch(ctx context.Context, userID, auctionID string) error {
	if userID == "" || auctionID == "" {
		return fmt.Errorf("service: %w - missing userID or auctionID", auctionerrors.ErrValidation)
	}
	if err := s.repo.RemoveFromWatchlist(ctx, userID, auctionID); err != nil {
		return fmt.Errorf("service: failed to unwatch auction %s: %w", auctionID, err)
	}
	return nil
}

// IsWatching reports whether the user watches the auction
func (s *ListingService) IsWatching(ctx context.Context, userID, auctionID string) (bool, error) {
	watching, err := s.repo.IsWatching(ctx, userID, auctionID)
	if err != nil {
		return false, fmt.Errorf("service: failed to check watchlist: %w", err)
	}
	return watching, nil
}

// Watchlist returns every auction the user watches, newest first
func (s *ListingService) Watchlist(ctx context.Context, userID string) ([]model.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrValidation)
	}
	return s.ListListings(ctx, model.AuctionFilter{WatchedBy: userID})
}

// PostComment appends a comment to an auction. Closed auctions still accept comments.
func (s *ListingService) PostComment(ctx context.Context, auctionID, authorID, text string) (model.Comment, error) {
	content := strings.TrimSpace(text)
	if auctionID == "" || authorID == "" {
		return model.Comment{}, fmt.Errorf("service: %w - missing auctionID or authorID", auctionerrors.ErrValidation)
	}
	if err := checkLength("content", content, MaxCommentLength); err != nil {
		return model.Comment{}, err
	}

	comment := model.Comment{
		CommentID: utils.GenerateID(),
		AuctionID: auctionID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		return model.Comment{}, fmt.Errorf("service: failed to post comment on auction %s: %w", auctionID, err)
	}
	return comment, nil
}

// ListComments returns an auction's comments in the order they were posted
func (s *ListingService) ListComments(ctx context.Context, auctionID string) ([]model.Comment, error) {
	comments, err := s.repo.GetCommentsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get comments for auction %s: %w", auctionID, err)
	}
	return comments, nil
}

func checkLength(field, value string, limit int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return fmt.Errorf("service: %w - %s must not be empty", auctionerrors.ErrValidation, field)
	}
	if n > limit {
		return fmt.Errorf("service: %w - %s exceeds %d characters", auctionerrors.ErrValidation, field, limit)
	}
	return nil
}

package repository

import (
	"context"

	model "auction-house/internal/models"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionTx is the view of one auction handed to a WithAuction callback.
// Reads see the auction as locked at the start of the unit plus any writes
// already staged in it; writes become visible only if the callback succeeds.
type AuctionTx interface {
	Auction() model.Auction
	HighestBid() (model.Bid, error)
	InsertBid(bid model.Bid) (model.Bid, error)
	UpdateAuction(auction model.Auction) error
}

// LedgerDB defines the storage the bid ledger needs
type LedgerDB interface {
	// WithAuction runs fn as one atomic unit serialized per auction.
	WithAuction(ctx context.Context, auctionID string, fn func(tx AuctionTx) error) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error)
}

// CatalogDB defines listing and category storage
type CatalogDB interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error)
	CreateCategory(ctx context.Context, category model.Category) error
	GetCategory(ctx context.Context, categoryID string) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// CommentDB defines the append-only comment board storage
type CommentDB interface {
	AddComment(ctx context.Context, comment model.Comment) error
	GetCommentsByAuction(ctx context.Context, auctionID string) ([]model.Comment, error)
}

// WatchlistDB defines user/auction watch membership storage
type WatchlistDB interface {
	AddToWatchlist(ctx context.Context, userID, auctionID string) error
	RemoveFromWatchlist(ctx context.Context, userID, auctionID string) error
	IsWatching(ctx context.Context, userID, auctionID string) (bool, error)
}

// UserDB defines the account storage used by the identity service
type UserDB interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

// ListingDB is everything the listing service reads and writes
type ListingDB interface {
	CatalogDB
	CommentDB
	WatchlistDB
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
}

// Store is implemented by every backend
type Store interface {
	LedgerDB
	CatalogDB
	CommentDB
	WatchlistDB
	UserDB
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered participant in the auction house
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Category groups listings for browsing
type Category struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// Auction represents a listing. CurrentPrice equals StartingPrice until the
// first accepted bid and the latest accepted amount afterwards.
type Auction struct {
	AuctionID     string          `json:"auction_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Active        bool            `json:"active"`
	WinnerID      string          `json:"winner_id,omitempty"`
	CreatorID     string          `json:"creator_id"`
	CategoryID    string          `json:"category_id,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HasWinner reports whether closing fixed a winner
func (a Auction) HasWinner() bool {
	return a.WinnerID != ""
}

// Bid represents a user's accepted bid on an auction
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	Seq       int64           `json:"seq"`
}

// Comment is an append-only text entry on an auction
type Comment struct {
	CommentID string    `json:"comment_id"`
	AuctionID string    `json:"auction_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AuctionFilter narrows ListAuctions. Empty fields do not filter.
type AuctionFilter struct {
	Active     *bool
	CategoryID string
	CreatorID  string
	WinnerID   string
	WatchedBy  string
}

// ListingDetail is everything the listing page needs, resolved for one viewer
type ListingDetail struct {
	Auction     Auction   `json:"auction"`
	Bids        []Bid     `json:"bids"`
	Comments    []Comment `json:"comments"`
	OnWatchlist bool      `json:"on_watchlist"`
	OwnListing  bool      `json:"own_listing"`
	Leading     bool      `json:"leading"`
	Won         bool      `json:"won"`
}

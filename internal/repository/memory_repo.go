package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory implementation of Store
type MemoryRepo struct {
	mu         sync.RWMutex
	users      map[string]model.User
	usernames  map[string]string // key: username -> value: userID
	categories map[string]model.Category
	auctions   map[string]model.Auction
	order      []string                       // auction IDs in creation order
	bids       map[string][]model.Bid         // key: auctionID -> value: bids in submission order
	comments   map[string][]model.Comment     // key: auctionID -> value: comments in insertion order
	watchlist  map[string]map[string]struct{} // key: userID -> value: set of auctionIDs
	seq        int64
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:      make(map[string]model.User),
		usernames:  make(map[string]string),
		categories: make(map[string]model.Category),
		auctions:   make(map[string]model.Auction),
		bids:       make(map[string][]model.Bid),
		comments:   make(map[string][]model.Comment),
		watchlist:  make(map[string]map[string]struct{}),
	}
}

var _ Store = (*MemoryRepo)(nil)

// CreateUser stores a new account; usernames are unique
func (r *MemoryRepo) CreateUser(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.usernames[user.Username]; taken {
		return fmt.Errorf("create user %s: %w", user.Username, auctionerrors.ErrUserExists)
	}
	r.users[user.UserID] = user
	r.usernames[user.Username] = user.UserID
	return nil
}

// GetUserByID returns the account with the given ID
func (r *MemoryRepo) GetUserByID(_ context.Context, userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return u, nil
}

// GetUserByUsername returns the account registered under username
func (r *MemoryRepo) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usernames[username]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", username, auctionerrors.ErrUserNotFound)
	}
	return r.users[id], nil
}

// CreateCategory stores a category; names are unique
func (r *MemoryRepo) CreateCategory(_ context.Context, category model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.categories {
		if c.Name == category.Name {
			return fmt.Errorf("create category %s: %w", category.Name, auctionerrors.ErrCategoryExists)
		}
	}
	r.categories[category.CategoryID] = category
	return nil
}

// GetCategory returns the category with the given ID
func (r *MemoryRepo) GetCategory(_ context.Context, categoryID string) (model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[categoryID]
	if !ok {
		return model.Category{}, fmt.Errorf("get category %s: %w", categoryID, auctionerrors.ErrCategoryNotFound)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name
func (r *MemoryRepo) ListCategories(_ context.Context) ([]model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateAuction stores a new listing
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[auction.CreatorID]; !ok {
		return fmt.Errorf("create auction: creator %s: %w", auction.CreatorID, auctionerrors.ErrUserNotFound)
	}
	if auction.CategoryID != "" {
		if _, ok := r.categories[auction.CategoryID]; !ok {
			return fmt.Errorf("create auction: %w", auctionerrors.ErrCategoryNotFound)
		}
	}
	r.auctions[auction.AuctionID] = auction
	r.order = append(r.order, auction.AuctionID)
	return nil
}

// GetAuction returns the listing with the given ID
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// ListAuctions returns listings matching filter, newest first
func (r *MemoryRepo) ListAuctions(_ context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []model.Auction{}
	for i := len(r.order) - 1; i >= 0; i-- {
		a := r.auctions[r.order[i]]
		if filter.Active != nil && a.Active != *filter.Active {
			continue
		}
		if filter.CategoryID != "" && a.CategoryID != filter.CategoryID {
			continue
		}
		if filter.CreatorID != "" && a.CreatorID != filter.CreatorID {
			continue
		}
		if filter.WinnerID != "" && a.WinnerID != filter.WinnerID {
			continue
		}
		if filter.WatchedBy != "" {
			if _, ok := r.watchlist[filter.WatchedBy][a.AuctionID]; !ok {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// WithAuction runs fn while holding the repository write lock. Writes made
// through the tx are staged and applied only when fn returns nil.
func (r *MemoryRepo) WithAuction(_ context.Context, auctionID string, fn func(tx AuctionTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("lock auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	tx := &memoryTx{repo: r, auction: a, nextSeq: r.seq}
	if err := fn(tx); err != nil {
		return err
	}

	r.bids[auctionID] = append(r.bids[auctionID], tx.pending...)
	r.seq = tx.nextSeq
	r.auctions[auctionID] = tx.auction
	return nil
}

// GetBidsByAuction returns all bids for an auction, highest amount first
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	bids := append([]model.Bid{}, r.bids[auctionID]...)
	sort.SliceStable(bids, func(i, j int) bool { return outbids(bids[i], bids[j]) })
	return bids, nil
}

// GetWinningBid returns the highest bid for an auction
func (r *MemoryRepo) GetWinningBid(_ context.Context, auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return highestOf(auctionID, r.bids[auctionID])
}

// GetAuctionsByBidder returns all auctions a user has bid on, newest first
func (r *MemoryRepo) GetAuctionsByBidder(_ context.Context, userID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []model.Auction{}
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		for _, b := range r.bids[id] {
			if b.BidderID == userID {
				out = append(out, r.auctions[id])
				break
			}
		}
	}
	return out, nil
}

// AddComment appends a comment to an auction
func (r *MemoryRepo) AddComment(_ context.Context, comment model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[comment.AuctionID]; !ok {
		return fmt.Errorf("add comment to auction %s: %w", comment.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if _, ok := r.users[comment.AuthorID]; !ok {
		return fmt.Errorf("add comment: author %s: %w", comment.AuthorID, auctionerrors.ErrUserNotFound)
	}
	r.comments[comment.AuctionID] = append(r.comments[comment.AuctionID], comment)
	return nil
}

// GetCommentsByAuction returns an auction's comments in insertion order
func (r *MemoryRepo) GetCommentsByAuction(_ context.Context, auctionID string) ([]model.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get comments for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return append([]model.Comment{}, r.comments[auctionID]...), nil
}

// AddToWatchlist adds auctionID to the user's watchlist; adding twice is a no-op
func (r *MemoryRepo) AddToWatchlist(_ context.Context, userID, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("watch auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if _, ok := r.users[userID]; !ok {
		return fmt.Errorf("watch auction: user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	set, ok := r.watchlist[userID]
	if !ok {
		set = make(map[string]struct{})
		r.watchlist[userID] = set
	}
	set[auctionID] = struct{}{}
	return nil
}

// RemoveFromWatchlist removes auctionID from the user's watchlist; removing a
// non-member is a no-op
func (r *MemoryRepo) RemoveFromWatchlist(_ context.Context, userID, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.watchlist[userID], auctionID)
	return nil
}

// IsWatching reports whether the user watches auctionID
func (r *MemoryRepo) IsWatching(_ context.Context, userID, auctionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.watchlist[userID][auctionID]
	return ok, nil
}

// memoryTx stages ledger writes for one WithAuction call
type memoryTx struct {
	repo    *MemoryRepo
	auction model.Auction
	pending []model.Bid
	nextSeq int64
}

func (t *memoryTx) Auction() model.Auction {
	return t.auction
}

func (t *memoryTx) HighestBid() (model.Bid, error) {
	all := append(append([]model.Bid{}, t.repo.bids[t.auction.AuctionID]...), t.pending...)
	return highestOf(t.auction.AuctionID, all)
}

func (t *memoryTx) InsertBid(bid model.Bid) (model.Bid, error) {
	if bid.AuctionID != t.auction.AuctionID {
		return model.Bid{}, fmt.Errorf("insert bid: auction %s is not locked: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if _, ok := t.repo.users[bid.BidderID]; !ok {
		return model.Bid{}, fmt.Errorf("insert bid: bidder %s: %w", bid.BidderID, auctionerrors.ErrUserNotFound)
	}
	t.nextSeq++
	bid.Seq = t.nextSeq
	t.pending = append(t.pending, bid)
	return bid, nil
}

func (t *memoryTx) UpdateAuction(auction model.Auction) error {
	if auction.AuctionID != t.auction.AuctionID {
		return fmt.Errorf("update auction: auction %s is not locked: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	t.auction = auction
	return nil
}

// outbids orders bids by amount descending, earlier submission first on ties
func outbids(a, b model.Bid) bool {
	if !a.Amount.Equal(b.Amount) {
		return a.Amount.GreaterThan(b.Amount)
	}
	return a.Seq < b.Seq
}

func highestOf(auctionID string, bids []model.Bid) (model.Bid, error) {
	if len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	winning := bids[0]
	for _, b := range bids[1:] {
		if outbids(b, winning) {
			winning = b
		}
	}
	return winning, nil
}

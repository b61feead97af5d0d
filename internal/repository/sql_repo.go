package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// SQLRepo is a Store backed by a SQLite database opened with db.Open.
// Money is persisted as integer cents so ordering and comparison happen in SQL.
type SQLRepo struct {
	db *sql.DB
}

// NewSQLRepo wraps an open, migrated database
func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

var _ Store = (*SQLRepo)(nil)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const auctionColumns = `a.id, a.title, a.description, a.starting_price_cents, a.current_price_cents,
	a.active, a.winner_id, a.creator_id, a.category_id, a.image_url, a.created_at`

const bidColumns = `b.seq, b.id, b.auction_id, b.bidder_id, b.amount_cents, b.created_at`

// CreateUser stores a new account; usernames are unique
func (r *SQLRepo) CreateUser(ctx context.Context, user model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	taken, err := exists(ctx, tx, `SELECT 1 FROM users WHERE username = ?`, user.Username)
	if err != nil {
		return fmt.Errorf("checking username: %w", err)
	}
	if taken {
		return fmt.Errorf("create user %s: %w", user.Username, auctionerrors.ErrUserExists)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.UserID, user.Username, user.Email, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return tx.Commit()
}

// GetUserByID returns the account with the given ID
func (r *SQLRepo) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	return r.getUser(ctx, `id = ?`, userID)
}

// GetUserByUsername returns the account registered under username
func (r *SQLRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getUser(ctx, `username = ?`, username)
}

func (r *SQLRepo) getUser(ctx context.Context, where, arg string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %s: %w", arg, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// CreateCategory stores a category; names are unique
func (r *SQLRepo) CreateCategory(ctx context.Context, category model.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	taken, err := exists(ctx, tx, `SELECT 1 FROM categories WHERE name = ?`, category.Name)
	if err != nil {
		return fmt.Errorf("checking category name: %w", err)
	}
	if taken {
		return fmt.Errorf("create category %s: %w", category.Name, auctionerrors.ErrCategoryExists)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO categories (id, name) VALUES (?, ?)`,
		category.CategoryID, category.Name); err != nil {
		return fmt.Errorf("creating category: %w", err)
	}
	return tx.Commit()
}

// GetCategory returns the category with the given ID
func (r *SQLRepo) GetCategory(ctx context.Context, categoryID string) (model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, categoryID).
		Scan(&c.CategoryID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, fmt.Errorf("get category %s: %w", categoryID, auctionerrors.ErrCategoryNotFound)
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name
func (r *SQLRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.CategoryID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateAuction stores a new listing
func (r *SQLRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := exists(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, auction.CreatorID)
	if err != nil {
		return fmt.Errorf("checking creator: %w", err)
	}
	if !ok {
		return fmt.Errorf("create auction: creator %s: %w", auction.CreatorID, auctionerrors.ErrUserNotFound)
	}
	if auction.CategoryID != "" {
		ok, err := exists(ctx, tx, `SELECT 1 FROM categories WHERE id = ?`, auction.CategoryID)
		if err != nil {
			return fmt.Errorf("checking category: %w", err)
		}
		if !ok {
			return fmt.Errorf("create auction: %w", auctionerrors.ErrCategoryNotFound)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO auctions (id, title, description, starting_price_cents, current_price_cents,
		                       active, winner_id, creator_id, category_id, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		auction.AuctionID, auction.Title, auction.Description,
		toCents(auction.StartingPrice), toCents(auction.CurrentPrice), auction.Active,
		nullString(auction.WinnerID), auction.CreatorID, nullString(auction.CategoryID),
		auction.ImageURL, auction.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating auction: %w", err)
	}
	return tx.Commit()
}

// GetAuction returns the listing with the given ID
func (r *SQLRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	return getAuction(ctx, r.db, auctionID)
}

// ListAuctions returns listings matching filter, newest first
func (r *SQLRepo) ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions a WHERE 1=1`
	var args []any

	if filter.Active != nil {
		query += ` AND a.active = ?`
		args = append(args, *filter.Active)
	}
	if filter.CategoryID != "" {
		query += ` AND a.category_id = ?`
		args = append(args, filter.CategoryID)
	}
	if filter.CreatorID != "" {
		query += ` AND a.creator_id = ?`
		args = append(args, filter.CreatorID)
	}
	if filter.WinnerID != "" {
		query += ` AND a.winner_id = ?`
		args = append(args, filter.WinnerID)
	}
	if filter.WatchedBy != "" {
		query += ` AND EXISTS (SELECT 1 FROM watchlist w WHERE w.auction_id = a.id AND w.user_id = ?)`
		args = append(args, filter.WatchedBy)
	}

	query += ` ORDER BY a.rowid DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing auctions: %w", err)
	}
	defer rows.Close()

	return scanAuctions(rows)
}

// WithAuction runs fn inside a transaction that first takes the write lock
// on the auction row. The transaction commits only when fn returns nil.
// fn must only touch the database through tx.
func (r *SQLRepo) WithAuction(ctx context.Context, auctionID string, fn func(tx AuctionTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE auctions SET active = active WHERE id = ?`, auctionID)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	} else if n == 0 {
		return fmt.Errorf("lock auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	a, err := getAuction(ctx, tx, auctionID)
	if err != nil {
		return err
	}

	if err := fn(&sqlTx{ctx: ctx, tx: tx, auction: a}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing auction %s: %w", auctionID, err)
	}
	return nil
}

// GetBidsByAuction returns all bids for an auction, highest amount first
func (r *SQLRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if err := r.requireAuction(ctx, auctionID, "get bids for auction"); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bidColumns+` FROM bids b WHERE b.auction_id = ? ORDER BY b.amount_cents DESC, b.seq ASC`,
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing bids: %w", err)
	}
	defer rows.Close()

	out := []model.Bid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetWinningBid returns the highest bid for an auction
func (r *SQLRepo) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	if err := r.requireAuction(ctx, auctionID, "get winning bid for auction"); err != nil {
		return model.Bid{}, err
	}
	return highestBid(ctx, r.db, auctionID)
}

// GetAuctionsByBidder returns all auctions a user has bid on, newest first
func (r *SQLRepo) GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions a
		 WHERE EXISTS (SELECT 1 FROM bids b WHERE b.auction_id = a.id AND b.bidder_id = ?)
		 ORDER BY a.rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing auctions by bidder: %w", err)
	}
	defer rows.Close()

	return scanAuctions(rows)
}

// AddComment appends a comment to an auction
func (r *SQLRepo) AddComment(ctx context.Context, comment model.Comment) error {
	if err := r.requireAuction(ctx, comment.AuctionID, "add comment to auction"); err != nil {
		return err
	}
	if err := r.requireUser(ctx, comment.AuthorID, "add comment: author"); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, auction_id, author_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		comment.CommentID, comment.AuctionID, comment.AuthorID, comment.Content, comment.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding comment: %w", err)
	}
	return nil
}

// GetCommentsByAuction returns an auction's comments in insertion order
func (r *SQLRepo) GetCommentsByAuction(ctx context.Context, auctionID string) ([]model.Comment, error) {
	if err := r.requireAuction(ctx, auctionID, "get comments for auction"); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, auction_id, author_id, content, created_at FROM comments WHERE auction_id = ? ORDER BY seq`,
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.CommentID, &c.AuctionID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddToWatchlist adds auctionID to the user's watchlist; adding twice is a no-op
func (r *SQLRepo) AddToWatchlist(ctx context.Context, userID, auctionID string) error {
	if err := r.requireAuction(ctx, auctionID, "watch auction"); err != nil {
		return err
	}
	if err := r.requireUser(ctx, userID, "watch auction: user"); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist (user_id, auction_id) VALUES (?, ?)`, userID, auctionID); err != nil {
		return fmt.Errorf("adding to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes auctionID from the user's watchlist; removing a
// non-member is a no-op
func (r *SQLRepo) RemoveFromWatchlist(ctx context.Context, userID, auctionID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE user_id = ? AND auction_id = ?`, userID, auctionID); err != nil {
		return fmt.Errorf("removing from watchlist: %w", err)
	}
	return nil
}

// IsWatching reports whether the user watches auctionID
func (r *SQLRepo) IsWatching(ctx context.Context, userID, auctionID string) (bool, error) {
	ok, err := exists(ctx, r.db, `SELECT 1 FROM watchlist WHERE user_id = ? AND auction_id = ?`, userID, auctionID)
	if err != nil {
		return false, fmt.Errorf("checking watchlist: %w", err)
	}
	return ok, nil
}

func (r *SQLRepo) requireAuction(ctx context.Context, auctionID, op string) error {
	ok, err := exists(ctx, r.db, `SELECT 1 FROM auctions WHERE id = ?`, auctionID)
	if err != nil {
		return fmt.Errorf("checking auction: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", op, auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return nil
}

func (r *SQLRepo) requireUser(ctx context.Context, userID, op string) error {
	ok, err := exists(ctx, r.db, `SELECT 1 FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", op, userID, auctionerrors.ErrUserNotFound)
	}
	return nil
}

// sqlTx is the AuctionTx handed out by SQLRepo.WithAuction
type sqlTx struct {
	ctx     context.Context
	tx      *sql.Tx
	auction model.Auction
}

func (t *sqlTx) Auction() model.Auction {
	return t.auction
}

func (t *sqlTx) HighestBid() (model.Bid, error) {
	return highestBid(t.ctx, t.tx, t.auction.AuctionID)
}

func (t *sqlTx) InsertBid(bid model.Bid) (model.Bid, error) {
	if bid.AuctionID != t.auction.AuctionID {
		return model.Bid{}, fmt.Errorf("insert bid: auction %s is not locked: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	ok, err := exists(t.ctx, t.tx, `SELECT 1 FROM users WHERE id = ?`, bid.BidderID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("checking bidder: %w", err)
	}
	if !ok {
		return model.Bid{}, fmt.Errorf("insert bid: bidder %s: %w", bid.BidderID, auctionerrors.ErrUserNotFound)
	}

	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO bids (id, auction_id, bidder_id, amount_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		bid.BidID, bid.AuctionID, bid.BidderID, toCents(bid.Amount), bid.CreatedAt.UTC(),
	)
	if err != nil {
		return model.Bid{}, fmt.Errorf("recording bid: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return model.Bid{}, fmt.Errorf("recording bid: %w", err)
	}
	bid.Seq = seq
	return bid, nil
}

func (t *sqlTx) UpdateAuction(auction model.Auction) error {
	if auction.AuctionID != t.auction.AuctionID {
		return fmt.Errorf("update auction: auction %s is not locked: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	_, err := t.tx.ExecContext(t.ctx,
		`UPDATE auctions SET current_price_cents = ?, active = ?, winner_id = ? WHERE id = ?`,
		toCents(auction.CurrentPrice), auction.Active, nullString(auction.WinnerID), auction.AuctionID,
	)
	if err != nil {
		return fmt.Errorf("updating auction: %w", err)
	}
	t.auction = auction
	return nil
}

func getAuction(ctx context.Context, q queryer, auctionID string) (model.Auction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions a WHERE a.id = ?`, auctionID)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("getting auction: %w", err)
	}
	return a, nil
}

func highestBid(ctx context.Context, q queryer, auctionID string) (model.Bid, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM bids b WHERE b.auction_id = ? ORDER BY b.amount_cents DESC, b.seq ASC LIMIT 1`,
		auctionID,
	)
	b, err := scanBid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, err
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuction(s scanner) (model.Auction, error) {
	var (
		a                    model.Auction
		startCents, curCents int64
		winnerID, categoryID sql.NullString
		createdAt            time.Time
	)
	if err := s.Scan(&a.AuctionID, &a.Title, &a.Description, &startCents, &curCents,
		&a.Active, &winnerID, &a.CreatorID, &categoryID, &a.ImageURL, &createdAt); err != nil {
		return model.Auction{}, err
	}
	a.StartingPrice = fromCents(startCents)
	a.CurrentPrice = fromCents(curCents)
	a.WinnerID = winnerID.String
	a.CategoryID = categoryID.String
	a.CreatedAt = createdAt
	return a, nil
}

func scanAuctions(rows *sql.Rows) ([]model.Auction, error) {
	out := []model.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning auction: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanBid(s scanner) (model.Bid, error) {
	var (
		b     model.Bid
		cents int64
	)
	if err := s.Scan(&b.Seq, &b.BidID, &b.AuctionID, &b.BidderID, &cents, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bid{}, err
		}
		return model.Bid{}, fmt.Errorf("scanning bid: %w", err)
	}
	b.Amount = fromCents(cents)
	return b, nil
}

func exists(ctx context.Context, q queryer, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/metrics"
	model "auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// MaxAmount is the largest bid or starting price the ledger accepts
var MaxAmount = decimal.RequireFromString("99999999.99")

// BiddingService is the auction ledger: it accepts bids and closes auctions
type BiddingService struct {
	repo repository.LedgerDB
	now  func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.LedgerDB) *BiddingService {
	return &BiddingService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// ValidateAmount checks that amount is a positive money value with at most
// two decimal places that fits the ledger's range
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w - amount must be positive", auctionerrors.ErrValidation)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w - amount has more than two decimal places", auctionerrors.ErrValidation)
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w - amount exceeds %s", auctionerrors.ErrValidation, MaxAmount.StringFixed(2))
	}
	return nil
}

// PlaceBid validates and records a bid. The highest-bid read, the bid insert
// and the price update run as one unit serialized per auction.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error) {
	start := time.Now()
	bid, err := s.placeBid(ctx, auctionID, bidderID, amount)
	metrics.RecordBid(bidOutcome(err), time.Since(start))
	if err != nil {
		if auctionerrors.IsRejection(err) {
			utils.Info("bid rejected", map[string]any{
				"auction_id": auctionID,
				"bidder_id":  bidderID,
				"amount":     amount.String(),
				"reason":     err.Error(),
			})
		}
		return model.Bid{}, err
	}

	utils.Info("bid accepted", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"bid_id":     bid.BidID,
		"amount":     bid.Amount.String(),
	})
	return bid, nil
}

func (s *BiddingService) placeBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrValidation)
	}
	if err := ValidateAmount(amount); err != nil {
		return model.Bid{}, fmt.Errorf("service: %w", err)
	}

	var accepted model.Bid
	err := s.repo.WithAuction(ctx, auctionID, func(tx repository.AuctionTx) error {
		auction := tx.Auction()
		if err := admissible(tx, auction, amount); err != nil {
			return err
		}

		bid, err := tx.InsertBid(model.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: s.now(),
		})
		if err != nil {
			return fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
		}

		auction.CurrentPrice = amount
		if err := tx.UpdateAuction(auction); err != nil {
			return fmt.Errorf("service: failed to update price for auction %s: %w", auctionID, err)
		}
		accepted = bid
		return nil
	})
	if err != nil {
		return model.Bid{}, err
	}
	return accepted, nil
}

// admissible applies the bid acceptance rules against the locked auction.
// The first bid may equal the starting price; later bids must beat the highest.
func admissible(tx repository.AuctionTx, auction model.Auction, amount decimal.Decimal) error {
	if !auction.Active {
		return fmt.Errorf("service: %w - auction %s no longer accepts bids", auctionerrors.ErrAuctionClosed, auction.AuctionID)
	}

	highest, err := tx.HighestBid()
	if errors.Is(err, auctionerrors.ErrNoBids) {
		if amount.LessThan(auction.StartingPrice) {
			return fmt.Errorf("service: %w - starting price is %s", auctionerrors.ErrBelowStartingPrice, auction.StartingPrice.StringFixed(2))
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("service: failed to check winning bid: %w", err)
	}

	if !amount.GreaterThan(highest.Amount) {
		return fmt.Errorf("service: %w - current highest bid is %s", auctionerrors.ErrNotHigherThanCurrentBid, highest.Amount.StringFixed(2))
	}
	return nil
}

// CloseAuction ends bidding on an auction and fixes the winner, if any.
// Only the auction's creator may close it.
func (s *BiddingService) CloseAuction(ctx context.Context, auctionID, requestedBy string) (model.Auction, error) {
	if auctionID == "" || requestedBy == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing auctionID or requester", auctionerrors.ErrValidation)
	}

	var closed model.Auction
	err := s.repo.WithAuction(ctx, auctionID, func(tx repository.AuctionTx) error {
		auction := tx.Auction()
		if auction.CreatorID != requestedBy {
			return fmt.Errorf("service: %w - only the creator may close auction %s", auctionerrors.ErrForbidden, auctionID)
		}
		if !auction.Active {
			return fmt.Errorf("service: %w - auction %s is already closed", auctionerrors.ErrAuctionClosed, auctionID)
		}

		auction.Active = false
		highest, err := tx.HighestBid()
		switch {
		case err == nil:
			auction.WinnerID = highest.BidderID
		case errors.Is(err, auctionerrors.ErrNoBids):
			auction.WinnerID = ""
		default:
			return fmt.Errorf("service: failed to find winning bid for auction %s: %w", auctionID, err)
		}

		if err := tx.UpdateAuction(auction); err != nil {
			return fmt.Errorf("service: failed to close auction %s: %w", auctionID, err)
		}
		closed = auction
		return nil
	})
	if err != nil {
		return model.Auction{}, err
	}

	metrics.RecordClose(closed.HasWinner())
	utils.Info("auction closed", map[string]any{
		"auction_id": auctionID,
		"winner_id":  closed.WinnerID,
		"price":      closed.CurrentPrice.String(),
	})
	return closed, nil
}

// GetBidsForAuction returns all bids for an auction, highest first
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// GetWinningBid returns the highest bid for an auction
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	if auctionID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation)
	}

	winningBid, err := s.repo.GetWinningBid(ctx, auctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get winning bid for auction %s: %w", auctionID, err)
	}

	return winningBid, nil
}

// GetAuctionsByBidder returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrValidation)
	}

	auctions, err := s.repo.GetAuctionsByBidder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
	}

	return auctions, nil
}

func bidOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.BidAccepted
	case errors.Is(err, auctionerrors.ErrBelowStartingPrice):
		return metrics.BidBelowStartingPrice
	case errors.Is(err, auctionerrors.ErrNotHigherThanCurrentBid):
		return metrics.BidNotHigher
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return metrics.BidAuctionClosed
	case auctionerrors.IsNotFound(err):
		return metrics.BidNotFound
	case errors.Is(err, auctionerrors.ErrValidation):
		return metrics.BidInvalid
	default:
		return metrics.BidError
	}
}

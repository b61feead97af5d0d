package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNoBids           = errors.New("no bids found for auction")
	ErrUserExists       = errors.New("username already taken")
	ErrCategoryExists   = errors.New("category already exists")
)

// business logic errors
var (
	ErrValidation              = errors.New("validation error")
	ErrBelowStartingPrice      = errors.New("bid is lower than the starting price")
	ErrNotHigherThanCurrentBid = errors.New("bid must be higher than the current bid")
	ErrAuctionClosed           = errors.New("auction is closed")
	ErrForbidden               = errors.New("forbidden")
	ErrUnauthorized            = errors.New("unauthorized")
)

// IsNotFound reports whether err is any of the not-found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAuctionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCategoryNotFound)
}

// IsRejection reports whether err is a bid or close rejection the caller
// should re-display rather than treat as a failure
func IsRejection(err error) bool {
	return errors.Is(err, ErrBelowStartingPrice) ||
		errors.Is(err, ErrNotHigherThanCurrentBid) ||
		errors.Is(err, ErrAuctionClosed)
}

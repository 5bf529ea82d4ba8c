package errors

import (
	"errors"
	"fmt"
)

// ErrNotFound is the root of every missing-resource error; match with errors.Is.
var ErrNotFound = errors.New("not found")

var (
	ErrAssetNotFound            = fmt.Errorf("asset %w", ErrNotFound)
	ErrListingNotFound          = fmt.Errorf("listing %w", ErrNotFound)
	ErrNotOwner                 = errors.New("caller is not the asset owner")
	ErrNotSeller                = errors.New("caller is not the listing seller")
	ErrAlreadyListed            = errors.New("asset is already listed")
	ErrInvalidPrice             = errors.New("price must be positive")
	ErrWrongPayment             = errors.New("payment does not match listing price")
	ErrOfferTooLow              = errors.New("offer must exceed the current best offer")
	ErrNoOffer                  = errors.New("listing has no pending offer")
	ErrSelfTrade                = errors.New("seller cannot trade on own listing")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrInvalidPrincipal         = errors.New("principal is required")
	ErrIdempotencyKeyConflict   = errors.New("idempotency key reused with different request")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)

package services

import "errors"

// Capacity errors are reported to the caller immediately and never
// retried automatically.
var (
	ErrSlotFull             = errors.New("slot is full or cannot seat the requested party")
	ErrSlotNotFound         = errors.New("availability slot not found")
	ErrInvalidGuestCount    = errors.New("invalid guest count")
	ErrInsufficientCapacity = errors.New("insufficient remaining capacity")
)

// Settlement errors.
var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrAmountMismatch      = errors.New("charged amount does not match booking total")
	ErrGatewayVerification = errors.New("payment gateway verification failed")
)

// Cancellation errors. ErrRefundFailed leaves the booking in
// cancellation_requested so the approving actor can retry.
var (
	ErrRefundFailed      = errors.New("refund could not be issued")
	ErrInvalidTransition = errors.New("booking is not in a state that allows this action")
	ErrActorNotAllowed   = errors.New("actor is not allowed to perform this action")
)

// Payout errors.
var (
	ErrPayoutIneligible = errors.New("host has no bank details on file")
	ErrEmptyPayoutBatch = errors.New("no payable items for this host")
)

package booking

import "errors"

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyConfirmed = errors.New("booking already confirmed")
	ErrNotPending       = errors.New("booking is no longer pending")
	ErrHoldExpired      = errors.New("seat hold expired")
	ErrTicketNotIssued  = errors.New("ticket not issued")
	ErrSeatsNotHeld     = errors.New("booking seats are not held by the booking")
	ErrInvalidPayment   = errors.New("invalid payment")
	ErrBusy             = errors.New("booking is busy, try again")
)

package errors

import "errors"

var (
	// Auth / user
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidSettings = errors.New("invalid settings payload")
	ErrTooManyGuests   = errors.New("too many guest signups from this network")

	// Admin
	ErrAdminNotFound        = errors.New("admin not found")
	ErrAdminDisabled        = errors.New("admin disabled")
	ErrInvalidAdminPassword = errors.New("invalid admin credentials")

	// Wallet
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidAmount        = errors.New("amount must be a positive integer")
	ErrInvalidWalletPayload = errors.New("invalid wallet payload")

	// Table / round
	ErrModeNotFound    = errors.New("game mode not found")
	ErrOutcomeNotFound = errors.New("outcome not found")
	ErrTableNotEntered = errors.New("no active table session")
)

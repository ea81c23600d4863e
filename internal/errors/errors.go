package errors

import "errors"

// Auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotLoggedIn        = errors.New("not logged in")
)

// Send pipeline errors.
var (
	ErrNothingToSend = errors.New("nothing to send")
	ErrSendInFlight  = errors.New("a send is already in flight for this channel")
	ErrFileTooLarge  = errors.New("attachment exceeds the size limit")
	ErrNoChannel     = errors.New("no channel selected")
)

// Channel errors.
var (
	ErrChannelNotFound = errors.New("channel not found")
)

// Realtime errors.
var (
	ErrNotConnected    = errors.New("realtime connection is not open")
	ErrReconnectFailed = errors.New("gave up reconnecting after repeated failures")
)

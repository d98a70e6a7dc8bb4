package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrInvalidCommand     = fmt.Errorf("invalid command")
	ErrUnknownEvent       = fmt.Errorf("unknown event")
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrPersistenceFailed  = fmt.Errorf("persistence failed")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrSlowConsumer       = fmt.Errorf("connection send buffer full")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserAlreadyExists  = fmt.Errorf("username or email already in use")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrInvalidHash        = fmt.Errorf("invalid hash format")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrAlreadyRequested   = fmt.Errorf("already sent or already friends")
	ErrNoPendingRequest   = fmt.Errorf("no pending friend request")
)

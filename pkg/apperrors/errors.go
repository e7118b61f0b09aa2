package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownUseCase  = errors.New("unknown use case")
	ErrNoUseCase       = errors.New("no use case selected")
	ErrTurnInFlight    = errors.New("a question is already awaiting a response")
	ErrInvalidFeedback = errors.New("invalid feedback score")
	ErrInvalidEmail    = errors.New("invalid reporter email")
	ErrInvalidReport   = errors.New("invalid bug report")
)

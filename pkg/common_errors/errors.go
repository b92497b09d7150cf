package common_errors

import (
	"golang.org/x/xerrors"
)

var (
	ErrInvalidPeriod           = xerrors.New("publish period must be positive")
	ErrInvalidStateTransition  = xerrors.New("invalid state transition")
	ErrNotActive               = xerrors.New("statistics manager is not active")
	ErrUnrecognizedSerdeFormat = xerrors.New("Unrecognized serde format")
	ErrNilListener             = xerrors.New("listener cannot be nil")
	ErrSinkClosed              = xerrors.New("sink closed")
)

func IsNotActiveError(err error) bool {
	return xerrors.Is(err, ErrNotActive)
}

func IsInvalidStateTransition(err error) bool {
	return xerrors.Is(err, ErrInvalidStateTransition)
}

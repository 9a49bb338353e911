package game

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindInsufficient
	KindInvalidState
	KindInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindInsufficient:
		return "InsufficientResource"
	case KindInvalidState:
		return "InvalidGameState"
	case KindInvariant:
		return "InternalInvariantViolation"
	default:
		return "Unknown"
	}
}

// Reason codes carried by Error.Code.
const (
	CodeBadArgument           = "BAD_ARGUMENT"
	CodeUnknownRegion         = "UNKNOWN_REGION"
	CodeUnknownCommodity      = "UNKNOWN_COMMODITY"
	CodeUnknownCurrency       = "UNKNOWN_CURRENCY"
	CodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeCapacityExceeded      = "CAPACITY_EXCEEDED"
	CodeInsufficientBalance   = "INSUFFICIENT_BALANCE"
	CodeInsufficientPoints    = "INSUFFICIENT_SKILL_POINTS"
	CodeGameOver              = "GAME_OVER"
	CodeJailed                = "JAILED"
	CodeBusy                  = "BUSY"
	CodeUnavailable           = "UNAVAILABLE"
	CodeUnknownEvent          = "UNKNOWN_EVENT"
	CodeLaunderPending        = "LAUNDER_PENDING"
	CodeInvariant             = "INVARIANT"
)

type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String() + ": " + e.Code
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is matches on Kind, and on Code when the target carries one, so callers can
// test either errors.Is(err, ErrInsufficient) or a specific reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrInsufficient = &Error{Kind: KindInsufficient}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrInvariant    = &Error{Kind: KindInvariant}

	ErrInsufficientFunds     = &Error{Kind: KindInsufficient, Code: CodeInsufficientFunds}
	ErrInsufficientStock     = &Error{Kind: KindInsufficient, Code: CodeInsufficientStock}
	ErrInsufficientInventory = &Error{Kind: KindInsufficient, Code: CodeInsufficientInventory}
	ErrCapacityExceeded      = &Error{Kind: KindInsufficient, Code: CodeCapacityExceeded}
)

func Validationf(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Insufficientf(code, format string, args ...any) *Error {
	return &Error{Kind: KindInsufficient, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func InvalidStatef(code, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Invariantf(format string, args ...any) *Error {
	return &Error{Kind: KindInvariant, Code: CodeInvariant, Msg: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error; unclassified errors are treated as invariant
// violations since they indicate a bug inside the engine.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInvariant
}

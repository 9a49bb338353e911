package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoHandshake  = "E_PROTO_HANDSHAKE"
	ErrBusy            = "E_BUSY"

	// Rule/command layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrNoResource   = "E_NO_RESOURCE"
	ErrInvalidState = "E_INVALID_STATE"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoHandshake:  {},
	ErrBusy:            {},
	ErrBadRequest:      {},
	ErrNoResource:      {},
	ErrInvalidState:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeForKind maps a rule error kind name to its protocol code. Unknown kinds
// are internal.
func CodeForKind(kind string) string {
	switch kind {
	case "":
		return ""
	case "ValidationError":
		return ErrBadRequest
	case "InsufficientResource":
		return ErrNoResource
	case "InvalidGameState":
		return ErrInvalidState
	default:
		return ErrInternal
	}
}

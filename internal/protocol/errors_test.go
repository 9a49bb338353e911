package protocol

import (
	"testing"

	"narcosim.ai/internal/sim/game"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrProtoHandshake,
		ErrBusy,
		ErrBadRequest,
		ErrNoResource,
		ErrInvalidState,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeForKind(t *testing.T) {
	cases := []struct {
		kind game.ErrorKind
		want string
	}{
		{game.KindValidation, ErrBadRequest},
		{game.KindInsufficient, ErrNoResource},
		{game.KindInvalidState, ErrInvalidState},
		{game.KindInvariant, ErrInternal},
	}
	for _, c := range cases {
		if got := CodeForKind(c.kind.String()); got != c.want {
			t.Fatalf("CodeForKind(%s) = %s, want %s", c.kind, got, c.want)
		}
		if !IsKnownCode(CodeForKind(c.kind.String())) {
			t.Fatalf("mapped code for %s is not known", c.kind)
		}
	}
	if CodeForKind("") != "" {
		t.Fatalf("successful results carry no code")
	}
	if CodeForKind("Bogus") != ErrInternal {
		t.Fatalf("unknown kinds map to internal")
	}
}

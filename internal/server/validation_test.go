package server

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	if got := normalizeText("  a   b\tc  "); got != "a b c" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
}

func TestValidateRoomNameBounds(t *testing.T) {
	if _, err := validateRoomName(strings.Repeat("x", 33)); !errors.Is(err, ErrRoomNameTooLong) {
		t.Fatalf("expected too-long name rejected, got %v", err)
	}
	name, err := validateRoomName(strings.Repeat("x", 32))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(name) != 32 {
		t.Fatalf("expected name kept, got %q", name)
	}
}

func TestRejectionCodes(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{ErrEmptyNickname, rejectValidation},
		{ErrMalformedCommand, rejectValidation},
		{ErrRoomNotFound, rejectNotFound},
		{ErrNotInRoom, rejectNotFound},
		{ErrRoomFull, rejectCapacity},
		{ErrAlreadyVoted, rejectDuplicate},
		{ErrNotHost, rejectAuth},
		{ErrNotAlive, rejectAuth},
		{ErrWrongPhase, rejectConflict},
		{ErrBodyNotDead, rejectConflict},
		{errors.New("anything else"), rejectInternal},
	}
	for _, tc := range cases {
		if got := rejectionCode(tc.err); got != tc.code {
			t.Fatalf("rejectionCode(%v) = %s, want %s", tc.err, got, tc.code)
		}
	}
}

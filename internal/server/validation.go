package server

import "strings"

const (
	maxRoomNameLength = 32
	maxNicknameLength = 20
)

func validateRoomName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", ErrEmptyRoomName
	}
	if len(trimmed) > maxRoomNameLength {
		return "", ErrRoomNameTooLong
	}
	return trimmed, nil
}

func validateNickname(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", ErrEmptyNickname
	}
	if len(trimmed) > maxNicknameLength {
		return "", ErrNicknameTooLong
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

package utils

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// RoomCodeAlphabet is the set of characters room codes are drawn from.
const RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomCodeLength is the fixed length of every room code.
const RoomCodeLength = 6

// bytes at or above this value are rejected so every character is equally likely.
const rejectAbove = 256 - 256%len(RoomCodeAlphabet)

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// NewRoomCode draws a room code from crypto/rand by rejection sampling.
func NewRoomCode() (string, error) {
	code := make([]byte, 0, RoomCodeLength)
	buf := make([]byte, RoomCodeLength*2)
	for len(code) < RoomCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			code = append(code, RoomCodeAlphabet[int(b)%len(RoomCodeAlphabet)])
			if len(code) == RoomCodeLength {
				break
			}
		}
	}
	return string(code), nil
}

// IsRoomCode reports whether s is a well-formed, upper-case room code.
func IsRoomCode(s string) bool {
	if len(s) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

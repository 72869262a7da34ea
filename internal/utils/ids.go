// Package utils holds the request-value parsers shared by the HTTP layer and
// the CLI: chat user identities, database ids and numeric query parameters.
package utils

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidID is returned by the ID parsers for malformed input.
var ErrInvalidID = errors.New("invalid id")

// ParseUserID parses a chat user identity. Chat ids are signed 64-bit
// integers; zero is never a valid id.
func ParseUserID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidID
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ParseID parses a positive database identifier.
func ParseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, ErrInvalidID
	}
	return uint(n), nil
}

// PositiveOr parses a catalog page or page size. A missing, malformed or
// non-positive value yields def, so "?page=0" and "?page=x" both land on
// the first page.
func PositiveOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

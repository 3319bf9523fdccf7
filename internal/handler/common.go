package handler // handler defines http handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the session user_id placed in context by JWTAuth.
// Only positive integers are accepted.
func getUserID(c echo.Context) (int64, error) {
	var id int64
	switch t := c.Get("user_id").(type) {
	case int64:
		id = t
	case int:
		id = int64(t)
	case uint64:
		id = int64(t)
	case float64: // JSON numbers in JWT claims decode as float64
		if t == float64(int64(t)) {
			id = int64(t)
		}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			id = n
		}
	}
	if id <= 0 {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

// parseID accepts a positive integer given either as a JSON number or as a
// string of decimal digits.  Fractions, exponents and signs are rejected.
func parseID(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
	}
	return parseIDString(s)
}

func parseIDString(s string) (int64, bool) {
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseToken accepts only a non-blank JSON string.
func parseToken(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

package service

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// TokenGenerator mints pass tokens: prefix followed by a random UUID.  When
// the strong generator fails, it falls back to a base-36 timestamp plus a
// pseudo-random suffix so issuance keeps working.
type TokenGenerator struct {
	Prefix  string
	newUUID func() (uuid.UUID, error)
	now     func() time.Time
}

func NewTokenGenerator(prefix string) *TokenGenerator {
	return &TokenGenerator{Prefix: prefix, newUUID: uuid.NewRandom, now: time.Now}
}

// Next returns a fresh token.
func (g *TokenGenerator) Next() string {
	if id, err := g.newUUID(); err == nil {
		return g.Prefix + id.String()
	}
	suffix := make([]byte, 12)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return g.Prefix + strconv.FormatInt(g.now().UnixNano(), 36) + "-" + string(suffix)
}

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Secret returns the day's number in [min, max] using HMAC(salt, YYYY-MM-DD).
// Everyone playing on the same date with the same salt gets the same number.
func Secret(date time.Time, salt string, min, max int) int {
	if max <= min {
		return min
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// take first 8 bytes to uint64 for modulus distribution
	n := binary.BigEndian.Uint64(sum[:8])
	// The span is computed in uint64 so ranges wider than MaxInt still work.
	span := uint64(max) - uint64(min)
	if span == math.MaxUint64 {
		return int(uint64(min) + n)
	}
	return int(uint64(min) + n%(span+1))
}

// Source is a game.RandomSource that always yields the day's secret,
// so the daily game runs on the regular engine.
type Source struct {
	Date time.Time
	Salt string
}

// IntRange implements game.RandomSource.
func (s Source) IntRange(min, max int) int {
	return Secret(s.Date, s.Salt, min, max)
}

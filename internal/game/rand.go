package game

import (
	"crypto/rand"
	"math/big"
)

// CryptoSource draws from crypto/rand. It is the default RandomSource.
type CryptoSource struct{}

// IntRange implements RandomSource.
func (CryptoSource) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	// The span is computed in uint64 so ranges wider than MaxInt still work.
	span := uint64(max) - uint64(min)
	limit := new(big.Int).SetUint64(span)
	limit.Add(limit, big.NewInt(1))
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		return int(uint64(min) + span/2)
	}
	return int(uint64(min) + n.Uint64())
}

// FixedSource always yields N, clamped to the requested range.
// Used by tests and by callers that derive the secret elsewhere.
type FixedSource struct{ N int }

// IntRange implements RandomSource.
func (f FixedSource) IntRange(min, max int) int {
	switch {
	case f.N < min:
		return min
	case f.N > max:
		return max
	}
	return f.N
}

package chain

import (
	"errors"

	"github.com/holiman/uint256"
)

var ErrInvalidCompact = errors.New("invalid compact difficulty")

// ExpandCompact returns the target threshold encoded in the compact form bits.
// Negative, zero and overflowing targets are invalid.
func ExpandCompact(bits uint32) (*uint256.Int, error) {
	exponent := bits >> 24
	mantissa := bits & 0x007fffff
	if bits&0x00800000 != 0 || mantissa == 0 {
		return nil, ErrInvalidCompact
	}

	target := uint256.NewInt(uint64(mantissa))
	if exponent <= 3 {
		target.Rsh(target, uint(8*(3-exponent)))
	} else {
		shift := uint(8 * (exponent - 3))
		if shift+uint(target.BitLen()) > 256 {
			return nil, ErrInvalidCompact
		}
		target.Lsh(target, shift)
	}
	if target.IsZero() {
		return nil, ErrInvalidCompact
	}
	return target, nil
}

// Work returns the expected number of hashes needed to find a block at the
// difficulty encoded in bits: 2^256 / (target + 1).
func Work(bits uint32) (*uint256.Int, error) {
	target, err := ExpandCompact(bits)
	if err != nil {
		return nil, err
	}
	// 2^256 does not fit, so compute (2^256 - target - 1) / (target + 1) + 1
	denominator := new(uint256.Int).AddUint64(target, 1)
	if denominator.IsZero() {
		// target + 1 wrapped, the target was 2^256 - 1
		return uint256.NewInt(1), nil
	}
	numerator := new(uint256.Int).Not(target)
	work := new(uint256.Int).Div(numerator, denominator)
	return work.AddUint64(work, 1), nil
}

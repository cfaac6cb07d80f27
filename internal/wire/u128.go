package wire

import (
	"fmt"
	"math/big"
	"math/bits"
)

// Span and trace ids are unsigned 128-bit integers. They cross the wire
// as decimal text because JSON numbers lose precision past 2^53 and no
// native Go integer holds them. In memory they stay decimal strings.

// maxU128Digits is the decimal width of 2^128-1.
const maxU128Digits = 39

// AppendU128 appends the decimal form of hi<<64|lo to dst. It performs
// no allocation beyond growing dst, so the emitter can call it with a
// preallocated buffer from signal-handler context.
func AppendU128(dst []byte, hi, lo uint64) []byte {
	if hi == 0 {
		if lo == 0 {
			return append(dst, '0')
		}
		return appendUint(dst, lo)
	}
	var buf [maxU128Digits]byte
	i := len(buf)
	for hi != 0 || lo != 0 {
		qHi := hi / 10
		rHi := hi % 10
		qLo, rem := bits.Div64(rHi, lo, 10)
		hi, lo = qHi, qLo
		i--
		buf[i] = byte('0' + rem)
	}
	return append(dst, buf[i:]...)
}

func appendUint(dst []byte, v uint64) []byte {
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, buf[i:]...)
}

// ParseU128 validates a decimal string as an unsigned 128-bit integer
// and returns its canonical form (no sign, no leading zeros).
func ParseU128(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty id")
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return "", fmt.Errorf("id %q is not a decimal integer", s)
	}
	if n.Sign() < 0 {
		return "", fmt.Errorf("id %q is negative", s)
	}
	if n.BitLen() > 128 {
		return "", fmt.Errorf("id %q overflows 128 bits", s)
	}
	return n.String(), nil
}

// SplitU128 converts a decimal id back into its hi/lo halves. Used by
// tests and by the emitter registry when reloading persisted ids.
func SplitU128(s string) (hi, lo uint64, err error) {
	canonical, err := ParseU128(s)
	if err != nil {
		return 0, 0, err
	}
	n, _ := new(big.Int).SetString(canonical, 10)
	loBig := new(big.Int).And(n, new(big.Int).SetUint64(^uint64(0)))
	hiBig := new(big.Int).Rsh(n, 64)
	return hiBig.Uint64(), loBig.Uint64(), nil
}

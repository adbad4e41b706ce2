// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

// Package schubfach renders IEEE-754 values as the shortest decimal string
// that parses back to the exact same bits, using the Schubfach algorithm
// (Giulietti, "The Schubfach way to render doubles").
//
// The algorithm is division-free: candidate decimal significands are tested
// against 126-bit fixed-point approximations of powers of ten. The table of
// approximations is computed once at startup with math/big, which keeps it
// exact by construction. All functions are pure and safe for concurrent use.
package schubfach

import (
	"math"
	"math/big"
	"math/bits"
	"strconv"
)

// IEEE layout parameters.
const (
	dQMin = -1074          // double: minimum value exponent
	dCMin = uint64(1) << 52 // double: implicit significand bit
	dTiny = 3              // double: subnormal rescale threshold

	fQMin = -149           // float: minimum value exponent
	fCMin = uint64(1) << 23 // float: implicit significand bit
	fTiny = 8              // float: subnormal rescale threshold
)

// AppendFloat64 appends the shortest round-tripping decimal form of v.
// Zeroes render as 0.0/-0.0, infinities as Infinity/-Infinity, and NaN as
// NaN regardless of its sign bit.
func AppendFloat64(dst []byte, v float64) []byte {
	b := math.Float64bits(v)
	frac := b & (dCMin - 1)
	bq := int(b>>52) & 0x7FF
	if bq == 0x7FF {
		if frac != 0 {
			return append(dst, "NaN"...)
		}
		if b>>63 != 0 {
			return append(dst, "-Infinity"...)
		}
		return append(dst, "Infinity"...)
	}
	if b>>63 != 0 {
		dst = append(dst, '-')
	}
	switch {
	case bq != 0:
		mq := 1075 - bq
		c := dCMin | frac
		if 0 < mq && mq < 53 {
			if f := c >> uint(mq); f<<uint(mq) == c {
				return appendDecimal(dst, f, 0) // small integer, exact
			}
		}
		f, e := toDecimal(-mq, c, 0, dCMin, dQMin)
		return appendDecimal(dst, f, e)
	case frac == 0:
		return append(dst, "0.0"...)
	case frac < dTiny:
		f, e := toDecimal(dQMin, 10*frac, -1, dCMin, dQMin)
		return appendDecimal(dst, f, e)
	default:
		f, e := toDecimal(dQMin, frac, 0, dCMin, dQMin)
		return appendDecimal(dst, f, e)
	}
}

// AppendFloat32 is AppendFloat64 for single-precision values. The result is
// the shortest decimal that round-trips through float32 parsing.
func AppendFloat32(dst []byte, v float32) []byte {
	b := math.Float32bits(v)
	frac := uint64(b & uint32(fCMin-1))
	bq := int(b>>23) & 0xFF
	if bq == 0xFF {
		if frac != 0 {
			return append(dst, "NaN"...)
		}
		if b>>31 != 0 {
			return append(dst, "-Infinity"...)
		}
		return append(dst, "Infinity"...)
	}
	if b>>31 != 0 {
		dst = append(dst, '-')
	}
	switch {
	case bq != 0:
		mq := 150 - bq
		c := fCMin | frac
		if 0 < mq && mq < 24 {
			if f := c >> uint(mq); f<<uint(mq) == c {
				return appendDecimal(dst, f, 0)
			}
		}
		f, e := toDecimal(-mq, c, 0, fCMin, fQMin)
		return appendDecimal(dst, f, e)
	case frac == 0:
		return append(dst, "0.0"...)
	case frac < fTiny:
		f, e := toDecimal(fQMin, 10*frac, -1, fCMin, fQMin)
		return appendDecimal(dst, f, e)
	default:
		f, e := toDecimal(fQMin, frac, 0, fCMin, fQMin)
		return appendDecimal(dst, f, e)
	}
}

// StringFloat64 returns AppendFloat64 output as a string.
func StringFloat64(v float64) string { return string(AppendFloat64(nil, v)) }

// StringFloat32 returns AppendFloat32 output as a string.
func StringFloat32(v float32) string { return string(AppendFloat32(nil, v)) }

// toDecimal converts the positive value c * 2^q into a decimal significand f
// and exponent e such that f * 10^e round-trips and f is as short as
// possible. The even significand wins exact ties. dk pre-scales the exponent
// for the tiny-subnormal path; cMin and qMin identify the boundary where the
// spacing of representable values below c is half the spacing above.
func toDecimal(q int, c uint64, dk int, cMin uint64, qMin int) (uint64, int) {
	out := c & 1
	cb := c << 2
	cbr := cb + 2
	var cbl uint64
	var k int
	if c != cMin || q == qMin {
		cbl = cb - 2
		k = flog10pow2(q)
	} else {
		cbl = cb - 1
		k = flog10threeQuartersPow2(q)
	}
	h := uint(q + flog2pow10(-k) + 2)

	g1, g0 := gfor(-k)
	vb := rop(g1, g0, cb<<h)
	vbl := rop(g1, g0, cbl<<h)
	vbr := rop(g1, g0, cbr<<h)

	s := vb >> 2
	if s >= 100 {
		sp10 := s / 10 * 10
		tp10 := sp10 + 10
		upin := vbl+out <= sp10<<2
		wpin := tp10<<2+out <= vbr
		if upin != wpin {
			if upin {
				return sp10, k + dk
			}
			return tp10, k + dk
		}
	}
	t := s + 1
	uin := vbl+out <= s<<2
	win := t<<2+out <= vbr
	if uin != win {
		if uin {
			return s, k + dk
		}
		return t, k + dk
	}
	// Both candidates are in range; pick the closer one, breaking an exact
	// tie toward the even significand.
	cmp := int64(vb - (s+t)<<1)
	if cmp < 0 || cmp == 0 && s&1 == 0 {
		return s, k + dk
	}
	return t, k + dk
}

const mask63 = 1<<63 - 1

// rop computes floor(g * cp / 2^127) with the low discarded bits folded into
// bit zero as a sticky bit, where g = g1*2^63 + g0 is a 126-bit power-of-ten
// approximation.
func rop(g1, g0, cp uint64) uint64 {
	x1, _ := bits.Mul64(g0, cp)
	y1, y0 := bits.Mul64(g1, cp)
	z := y0>>1 + x1
	vbp := y1 + z>>63
	return vbp | ((z&mask63)+mask63)>>63
}

// Floored logarithms via fixed-point multiplication; exact over the exponent
// ranges reachable from finite doubles.

func flog10pow2(e int) int {
	return int(int64(e) * 661971961083 >> 41)
}

func flog10threeQuartersPow2(e int) int {
	return int((int64(e)*661971961083 - 274743187321) >> 41)
}

func flog2pow10(e int) int {
	return int(int64(e) * 1292913986 >> 30)
}

// Power-of-ten table: for n in [gMin, gMax], g(n) = floor(10^n * 2^(125-a))+1
// with a = flog2pow10(n), so that g occupies exactly 126 bits. The range
// covers every decimal exponent reachable from finite doubles (floats are a
// subset).
const (
	gMin = -292
	gMax = 324
)

var gtab [gMax - gMin + 1][2]uint64

func gfor(n int) (g1, g0 uint64) {
	e := &gtab[n-gMin]
	return e[0], e[1]
}

func init() {
	one := big.NewInt(1)
	ten := big.NewInt(10)
	pow := new(big.Int)
	g := new(big.Int)
	lo := new(big.Int)
	m63 := new(big.Int).SetUint64(mask63)
	for n := gMin; n <= gMax; n++ {
		shift := 125 - flog2pow10(n)
		if n >= 0 {
			pow.Exp(ten, big.NewInt(int64(n)), nil)
			if shift >= 0 {
				g.Lsh(pow, uint(shift))
			} else {
				g.Rsh(pow, uint(-shift))
			}
		} else {
			pow.Exp(ten, big.NewInt(int64(-n)), nil)
			g.Lsh(one, uint(shift))
			g.Quo(g, pow)
		}
		g.Add(g, one)
		lo.And(g, m63)
		g.Rsh(g, 63)
		gtab[n-gMin] = [2]uint64{g.Uint64(), lo.Uint64()}
	}
}

// appendDecimal renders f * 10^e. Values whose decimal point falls within
// [-3, 7) of the leading digit use plain notation, everything else uses
// scientific notation with a single leading digit.
func appendDecimal(dst []byte, f uint64, e int) []byte {
	var tmp [20]byte
	d := strconv.AppendUint(tmp[:0], f, 10)
	n := len(d)
	for n > 1 && d[n-1] == '0' {
		n--
		e++
	}
	d = d[:n]
	exp10 := e + n - 1

	if exp10 >= -3 && exp10 < 7 {
		point := exp10 + 1
		switch {
		case point <= 0:
			dst = append(dst, '0', '.')
			for range -point {
				dst = append(dst, '0')
			}
			dst = append(dst, d...)
		case point >= n:
			dst = append(dst, d...)
			for range point - n {
				dst = append(dst, '0')
			}
			dst = append(dst, '.', '0')
		default:
			dst = append(dst, d[:point]...)
			dst = append(dst, '.')
			dst = append(dst, d[point:]...)
		}
		return dst
	}

	dst = append(dst, d[0], '.')
	if n > 1 {
		dst = append(dst, d[1:]...)
	} else {
		dst = append(dst, '0')
	}
	dst = append(dst, 'E')
	return strconv.AppendInt(dst, int64(exp10), 10)
}

// Package golomb implements a Golomb-Rice entropy coder for signed integers,
// parameterised by a divisor m and a sign-handling mode. A Coder is
// immutable once constructed and operates on a caller-supplied
// *bitstream.Stream by reference, per spec.md §9.
package golomb

import (
	"errors"
	"math"
	"math/bits"

	"github.com/mewkiz/pkg/errutil"

	intbits "github.com/mycophonic/amanita/internal/bits"
	"github.com/mycophonic/amanita/bitstream"
)

// SignMode selects how a Coder maps a signed value to a non-negative one
// before Golomb-Rice coding it.
type SignMode int

const (
	// Interleave uses zig-zag folding: u = 2v (v>=0) or -2v-1 (v<0).
	Interleave SignMode = iota
	// SignMagnitude codes |v| and appends an explicit sign bit.
	SignMagnitude
)

// ErrInvalidParameter is returned when m < 2.
var ErrInvalidParameter = errors.New("golomb: m must be >= 2")

// Coder is a Golomb-Rice encoder/decoder for a fixed divisor m and sign mode.
type Coder struct {
	m    uint64
	mode SignMode
	b    uint // ceil(log2(m))
	c    uint64 // 2^b - m
}

// NewCoder constructs a Coder for divisor m (m >= 2) and the given sign mode.
func NewCoder(m uint64, mode SignMode) (*Coder, error) {
	if m < 2 {
		return nil, ErrInvalidParameter
	}
	b := uint(bits.Len64(m - 1))
	c := (uint64(1) << b) - m
	return &Coder{m: m, mode: mode, b: b, c: c}, nil
}

// M returns the coder's divisor.
func (c *Coder) M() uint64 { return c.m }

// Encode writes v to bw and returns the number of bits written.
func (c *Coder) Encode(bw *bitstream.Stream, v int64) (int, error) {
	var u uint64
	var negative bool
	switch c.mode {
	case Interleave:
		u = intbits.EncodeZigZag(v)
	case SignMagnitude:
		negative = v < 0
		if negative {
			u = uint64(-v)
		} else {
			u = uint64(v)
		}
	default:
		return 0, errutil.Newf("golomb: unknown sign mode %d", c.mode)
	}

	q := u / c.m
	r := u % c.m

	if err := intbits.WriteUnary(bw, q); err != nil {
		return 0, errutil.Err(err)
	}
	nbits := int(q) + 1

	if c.b > 0 {
		if r < c.c {
			if c.b > 1 {
				if err := bw.WriteBits(r, uint(c.b-1)); err != nil {
					return nbits, errutil.Err(err)
				}
				nbits += int(c.b - 1)
			}
		} else {
			if err := bw.WriteBits(r+c.c, uint(c.b)); err != nil {
				return nbits, errutil.Err(err)
			}
			nbits += int(c.b)
		}
	}

	if c.mode == SignMagnitude {
		sign := uint64(0)
		if negative {
			sign = 1
		}
		if err := bw.WriteBit(sign); err != nil {
			return nbits, errutil.Err(err)
		}
		nbits++
	}

	return nbits, nil
}

// Decode reads one coded value from br.
func (c *Coder) Decode(br *bitstream.Stream) (int64, error) {
	q, err := intbits.ReadUnary(br)
	if err != nil {
		return 0, err
	}

	var r uint64
	if c.b == 1 {
		v, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}
		r = v
	} else if c.b > 1 {
		v, err := br.ReadBits(uint(c.b - 1))
		if err != nil {
			return 0, err
		}
		r = v
		if r >= c.c {
			extra, err := br.ReadBits(1)
			if err != nil {
				return 0, err
			}
			r = (r << 1) | extra
			r -= c.c
		}
	}

	u := q*c.m + r

	switch c.mode {
	case Interleave:
		return intbits.DecodeZigZag(u), nil
	case SignMagnitude:
		sign, err := br.ReadBit()
		if err != nil {
			return 0, err
		}
		v := int64(u)
		if sign == 1 {
			v = -v
		}
		return v, nil
	default:
		return 0, errutil.Newf("golomb: unknown sign mode %d", c.mode)
	}
}

// ChooseM picks a Golomb divisor from the mean absolute residual of a frame,
// modelling the residual distribution as geometric with parameter
// p = 1/(mean+1), per spec.md §4.3.
func ChooseM(meanAbs float64) uint64 {
	p := 1 / (meanAbs + 1)
	if p >= 1 {
		return 2
	}
	m := math.Ceil(-1 / math.Log2(1-p))
	if m < 2 {
		m = 2
	}
	return uint64(m)
}

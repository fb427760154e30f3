// Package group provides the prime-order group layer used by the
// credential scheme: scalar and point vectors over secp256k1, the fixed
// family of independent generators, and canonical byte encodings.
package group

import (
	"github.com/go-errors/errors"
	"github.com/renproject/secp256k1"
)

// Encoded sizes of the canonical wire representations.
const (
	ScalarSize = 32
	PointSize  = 33
)

var (
	// ErrScalarOverflow is returned when decoding a scalar that is not
	// fully reduced modulo the group order.
	ErrScalarOverflow = errors.Errorf("scalar overflow")

	// ErrScalarZero is returned when a zero scalar appears where the
	// protocol disallows one.
	ErrScalarZero = errors.Errorf("scalar zero where disallowed")

	// ErrPointDecode is returned when point bytes do not decode to a
	// curve point.
	ErrPointDecode = errors.Errorf("invalid point encoding")
)

var fnMinusOne secp256k1.Fn

func init() {
	one := secp256k1.NewFnFromU16(1)
	fnMinusOne.Negate(&one)
}

// ScalarVector is an ordered sequence of scalars.
type ScalarVector []secp256k1.Fn

// GroupElementVector is an ordered sequence of group elements.
type GroupElementVector []secp256k1.Point

// ScalarBytes returns the canonical 32-byte big-endian encoding of s.
func ScalarBytes(s *secp256k1.Fn) []byte {
	buf := make([]byte, ScalarSize)
	s.PutB32(buf)
	return buf
}

// ScalarFromBytes decodes a 32-byte big-endian scalar, rejecting
// encodings greater than or equal to the group order.
func ScalarFromBytes(bs []byte) (secp256k1.Fn, error) {
	var s secp256k1.Fn
	if len(bs) != ScalarSize {
		return s, errors.Errorf("scalar encoding has %v bytes, need %v", len(bs), ScalarSize)
	}
	if s.SetB32(bs) {
		return s, ErrScalarOverflow
	}
	return s, nil
}

// ScalarReduce interprets 32 bytes as a big-endian integer reduced
// modulo the group order. Used for hash outputs, where overflow is
// folded rather than rejected.
func ScalarReduce(bs []byte) secp256k1.Fn {
	var s secp256k1.Fn
	s.SetB32(bs)
	return s
}

// ScalarFromUint64 lifts a non-negative 64-bit integer into the scalar
// field.
func ScalarFromUint64(v uint64) secp256k1.Fn {
	var buf [ScalarSize]byte
	buf[24] = byte(v >> 56)
	buf[25] = byte(v >> 48)
	buf[26] = byte(v >> 40)
	buf[27] = byte(v >> 32)
	buf[28] = byte(v >> 24)
	buf[29] = byte(v >> 16)
	buf[30] = byte(v >> 8)
	buf[31] = byte(v)
	var s secp256k1.Fn
	s.SetB32(buf[:])
	return s
}

// PointBytes returns the canonical 33-byte encoding of p. The infinity
// element encodes as 33 zero bytes; it is only ever hashed as a
// generator placeholder, never transmitted.
func PointBytes(p *secp256k1.Point) []byte {
	buf := make([]byte, PointSize)
	if p.IsInfinity() {
		return buf
	}
	p.PutBytes(buf)
	return buf
}

// PointFromBytes decodes a canonical 33-byte point encoding. Infinity
// encodings are rejected; wire points are always affine.
func PointFromBytes(bs []byte) (secp256k1.Point, error) {
	var p secp256k1.Point
	if len(bs) != PointSize {
		return p, errors.Errorf("point encoding has %v bytes, need %v", len(bs), PointSize)
	}
	allZero := true
	for _, b := range bs {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return p, ErrPointDecode
	}
	if err := p.SetBytes(bs); err != nil {
		return p, errors.WrapPrefix(err, "invalid point encoding", 0)
	}
	return p, nil
}

// Negate sets dst to -p.
func Negate(dst, p *secp256k1.Point) {
	if p.IsInfinity() {
		*dst = secp256k1.NewPointInfinity()
		return
	}
	dst.Scale(p, &fnMinusOne)
}

// Sub sets dst to a-b.
func Sub(dst, a, b *secp256k1.Point) {
	var nb secp256k1.Point
	Negate(&nb, b)
	dst.Add(a, &nb)
}

// InnerProduct computes sum_i scalars[i]*points[i]. Infinity elements
// contribute nothing; they encode witness components excluded from an
// equation.
func InnerProduct(scalars ScalarVector, points GroupElementVector) (secp256k1.Point, error) {
	if len(scalars) != len(points) {
		return secp256k1.Point{}, errors.Errorf("inner product length mismatch: %v scalars, %v points", len(scalars), len(points))
	}
	acc := secp256k1.NewPointInfinity()
	var term secp256k1.Point
	for i := range points {
		if points[i].IsInfinity() {
			continue
		}
		term.Scale(&points[i], &scalars[i])
		acc.Add(&acc, &term)
	}
	return acc, nil
}

// Sum adds a sequence of group elements.
func Sum(points ...secp256k1.Point) secp256k1.Point {
	acc := secp256k1.NewPointInfinity()
	for i := range points {
		acc.Add(&acc, &points[i])
	}
	return acc
}

// AllInfinity reports whether every element of the vector is infinity.
func (v GroupElementVector) AllInfinity() bool {
	for i := range v {
		if !v[i].IsInfinity() {
			return false
		}
	}
	return true
}

// Add returns the element-wise sum of two scalar vectors.
func (v ScalarVector) Add(w ScalarVector) (ScalarVector, error) {
	if len(v) != len(w) {
		return nil, errors.Errorf("scalar vector length mismatch: %v and %v", len(v), len(w))
	}
	out := make(ScalarVector, len(v))
	for i := range v {
		out[i].Add(&v[i], &w[i])
	}
	return out, nil
}

// ScalarSum adds a sequence of scalars.
func ScalarSum(scalars ...secp256k1.Fn) secp256k1.Fn {
	var acc secp256k1.Fn // zero
	for i := range scalars {
		acc.Add(&acc, &scalars[i])
	}
	return acc
}

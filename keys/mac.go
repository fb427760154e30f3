package keys

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
)

// MAC is the algebraic MAC over a credential's attribute commitments:
// a random tag t and V = w*Gw + x0*U + x1*t*U + ya*Ma + ys*Ms + yv*Mv.
// It is unforgeable without the secret key and rerandomizable by the
// holder, so no two presentations of the same credential are linkable.
type MAC struct {
	T secp256k1.Fn
	V secp256k1.Point
}

// ComputeMAC MACs the attribute commitment triple under sk with the
// given nonzero tag.
func ComputeMAC(sk *CoordinatorSecretKey, ma, ms, mv *secp256k1.Point, t *secp256k1.Fn) (MAC, error) {
	if t.IsZero() {
		return MAC{}, errors.WrapPrefix(group.ErrScalarZero, "MAC tag", 0)
	}
	gen := group.Gen()

	var x1t secp256k1.Fn
	x1t.Mul(&sk.X1, t)

	v, err := group.InnerProduct(
		group.ScalarVector{sk.W, sk.X0, x1t, sk.Ya, sk.Ys, sk.Yv},
		group.GroupElementVector{gen.Gw, gen.U, gen.U, *ma, *ms, *mv},
	)
	if err != nil {
		return MAC{}, err
	}
	return MAC{T: *t, V: v}, nil
}

// RandomMAC draws a fresh tag and MACs the commitments.
func RandomMAC(sk *CoordinatorSecretKey, ma, ms, mv *secp256k1.Point, rnd group.Random) (MAC, error) {
	t := rnd.Scalar(false)
	return ComputeMAC(sk, ma, ms, mv, &t)
}

// VerifyMAC checks a MAC against the attribute commitments. Only the
// key holder can do this; clients rely on the issuance proof instead.
func VerifyMAC(sk *CoordinatorSecretKey, mac *MAC, ma, ms, mv *secp256k1.Point) bool {
	expected, err := ComputeMAC(sk, ma, ms, mv, &mac.T)
	if err != nil {
		return false
	}
	return expected.V.Eq(&mac.V)
}

// RecomputeZ derives the keyed-verification value Z from a
// presentation's blinded points. For a valid rerandomization with
// blinding z, the result equals z*I.
func RecomputeZ(sk *CoordinatorSecretKey, cv, cx0, cx1, ca, cs, cvs *secp256k1.Point) secp256k1.Point {
	gen := group.Gen()

	var zw secp256k1.Point
	zw.Scale(&gen.Gw, &sk.W)
	sum, err := group.InnerProduct(
		group.ScalarVector{sk.X0, sk.X1, sk.Ya, sk.Ys, sk.Yv},
		group.GroupElementVector{*cx0, *cx1, *ca, *cs, *cvs},
	)
	if err != nil {
		panic(err)
	}
	zw.Add(&zw, &sum)

	var z secp256k1.Point
	group.Sub(&z, cv, &zw)
	return z
}

// Eq reports whether two MACs are identical. The tag comparison is
// constant time.
func (m *MAC) Eq(other *MAC) bool {
	return m.T.Eq(&other.T) && m.V.Eq(&other.V)
}

// SizeHint implements the surge.SizeHinter interface.
func (m MAC) SizeHint() int {
	return m.T.SizeHint() + m.V.SizeHint()
}

// Marshal implements the surge.Marshaler interface.
func (m MAC) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := m.T.Marshal(buf, rem)
	if err != nil {
		return buf, rem, err
	}
	return m.V.Marshal(buf, rem)
}

// Unmarshal implements the surge.Unmarshaler interface.
func (m *MAC) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := m.T.Unmarshal(buf, rem)
	if err != nil {
		return buf, rem, err
	}
	return m.V.Unmarshal(buf, rem)
}

// Bytes returns the canonical encoding of the MAC, used for
// fingerprinting and duplicate detection.
func (m *MAC) Bytes() []byte {
	out := make([]byte, 0, group.ScalarSize+group.PointSize)
	out = append(out, group.ScalarBytes(&m.T)...)
	out = append(out, group.PointBytes(&m.V)...)
	return out
}

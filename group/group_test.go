package group

import (
	"testing"

	"github.com/renproject/secp256k1"
	"github.com/stretchr/testify/require"
)

func TestGeneratorsAreDistinct(t *testing.T) {
	gen := Gen()
	points := GroupElementVector{
		gen.G, gen.Gw, gen.Gwp, gen.Gx0, gen.Gx1,
		gen.Ga, gen.Gs, gen.Gv, gen.GV, gen.Gg, gen.Gh, gen.U,
	}
	for i := range points {
		require.False(t, points[i].IsInfinity())
		for j := i + 1; j < len(points); j++ {
			require.False(t, points[i].Eq(&points[j]), "generators %v and %v collide", i, j)
		}
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	a := Derive("some-label")
	b := Derive("some-label")
	c := Derive("other-label")
	require.True(t, a.Eq(&b))
	require.False(t, a.Eq(&c))
}

func TestScalarBytesRoundTrip(t *testing.T) {
	rnd := SeededRandom([]byte("scalar-bytes"))
	s := rnd.Scalar(false)
	decoded, err := ScalarFromBytes(ScalarBytes(&s))
	require.NoError(t, err)
	require.True(t, s.Eq(&decoded))
}

func TestScalarFromBytesRejectsOverflow(t *testing.T) {
	overflow := make([]byte, ScalarSize)
	for i := range overflow {
		overflow[i] = 0xff
	}
	_, err := ScalarFromBytes(overflow)
	require.Error(t, err)

	_, err = ScalarFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestScalarFromUint64(t *testing.T) {
	one := ScalarFromUint64(1)
	expected := secp256k1.NewFnFromU16(1)
	require.True(t, one.Eq(&expected))

	var sum secp256k1.Fn
	a := ScalarFromUint64(1 << 40)
	b := ScalarFromUint64(1 << 41)
	sum.Add(&a, &a)
	require.True(t, sum.Eq(&b))

	zero := ScalarFromUint64(0)
	require.True(t, zero.IsZero())
}

func TestInnerProductSkipsInfinity(t *testing.T) {
	gen := Gen()
	rnd := SeededRandom([]byte("inner-product"))
	x := rnd.Scalar(false)
	y := rnd.Scalar(false)

	full, err := InnerProduct(ScalarVector{x, y}, GroupElementVector{gen.Gg, gen.Gh})
	require.NoError(t, err)

	masked, err := InnerProduct(
		ScalarVector{x, rnd.Scalar(false), y},
		GroupElementVector{gen.Gg, secp256k1.NewPointInfinity(), gen.Gh},
	)
	require.NoError(t, err)
	require.True(t, full.Eq(&masked))

	_, err = InnerProduct(ScalarVector{x}, GroupElementVector{gen.Gg, gen.Gh})
	require.Error(t, err)
}

func TestNegateAndSub(t *testing.T) {
	gen := Gen()
	var neg, sum secp256k1.Point
	Negate(&neg, &gen.Gg)
	sum.Add(&gen.Gg, &neg)
	require.True(t, sum.IsInfinity())

	Sub(&sum, &gen.Gg, &gen.Gg)
	require.True(t, sum.IsInfinity())
}

func TestPointBytesRoundTrip(t *testing.T) {
	gen := Gen()
	bs := PointBytes(&gen.Gg)
	require.Len(t, bs, PointSize)
	decoded, err := PointFromBytes(bs)
	require.NoError(t, err)
	require.True(t, decoded.Eq(&gen.Gg))

	// infinity and malformed encodings are rejected
	_, err = PointFromBytes(make([]byte, PointSize))
	require.Error(t, err)
	_, err = PointFromBytes([]byte{1})
	require.Error(t, err)
}

func TestSeededRandomIsReproducible(t *testing.T) {
	a := SeededRandom([]byte("seed"))
	b := SeededRandom([]byte("seed"))
	sa := a.Scalar(false)
	sb := b.Scalar(false)
	require.True(t, sa.Eq(&sb))

	c := SeededRandom([]byte("other"))
	sc := c.Scalar(false)
	require.False(t, sa.Eq(&sc))
}

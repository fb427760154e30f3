package keys

import (
	"testing"

	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
	"github.com/stretchr/testify/require"
)

func testKey(seed string) (*CoordinatorSecretKey, group.Random) {
	rnd := group.SeededRandom([]byte(seed))
	return NewCoordinatorSecretKey(rnd), rnd
}

func commitments(rnd group.Random) (ma, ms, mv secp256k1.Point) {
	gen := group.Gen()
	for _, p := range []*secp256k1.Point{&ma, &ms, &mv} {
		s := rnd.Scalar(false)
		p.Scale(&gen.Gh, &s)
	}
	return
}

func TestParameters(t *testing.T) {
	sk, _ := testKey("params")
	params := sk.Parameters()
	require.NoError(t, params.Validate())

	// parameters are a deterministic function of the key
	again := sk.Parameters()
	require.True(t, params.Cw.Eq(&again.Cw))
	require.True(t, params.I.Eq(&again.I))

	other, _ := testKey("other")
	otherParams := other.Parameters()
	require.False(t, params.Cw.Eq(&otherParams.Cw))
	require.False(t, params.I.Eq(&otherParams.I))
}

func TestMACVerify(t *testing.T) {
	sk, rnd := testKey("mac")
	ma, ms, mv := commitments(rnd)

	mac, err := RandomMAC(sk, &ma, &ms, &mv, rnd)
	require.NoError(t, err)
	require.True(t, VerifyMAC(sk, &mac, &ma, &ms, &mv))

	// any perturbed input fails
	other, _ := testKey("mac2")
	require.False(t, VerifyMAC(other, &mac, &ma, &ms, &mv))
	require.False(t, VerifyMAC(sk, &mac, &ms, &ma, &mv))

	tampered := mac
	one := secp256k1.NewFnFromU16(1)
	tampered.T.Add(&tampered.T, &one)
	require.False(t, VerifyMAC(sk, &tampered, &ma, &ms, &mv))
}

func TestMACRejectsZeroTag(t *testing.T) {
	sk, rnd := testKey("zero-tag")
	ma, ms, mv := commitments(rnd)
	var zero secp256k1.Fn
	_, err := ComputeMAC(sk, &ma, &ms, &mv, &zero)
	require.Error(t, err)
}

func TestRecomputeZMatchesBlinding(t *testing.T) {
	gen := group.Gen()
	sk, rnd := testKey("recompute-z")
	params := sk.Parameters()
	ma, ms, mv := commitments(rnd)

	mac, err := RandomMAC(sk, &ma, &ms, &mv, rnd)
	require.NoError(t, err)

	// rerandomize the way a presentation does
	z := rnd.Scalar(false)
	blind := func(g *secp256k1.Point, add *secp256k1.Point) secp256k1.Point {
		var p secp256k1.Point
		p.Scale(g, &z)
		p.Add(&p, add)
		return p
	}
	var tU secp256k1.Point
	tU.Scale(&gen.U, &mac.T)
	ca := blind(&gen.Ga, &ma)
	cs := blind(&gen.Gs, &ms)
	cv := blind(&gen.Gv, &mv)
	cx0 := blind(&gen.Gx0, &gen.U)
	cx1 := blind(&gen.Gx1, &tU)
	cV := blind(&gen.GV, &mac.V)

	derived := RecomputeZ(sk, &cV, &cx0, &cx1, &ca, &cs, &cv)
	var expected secp256k1.Point
	expected.Scale(&params.I, &z)
	require.True(t, derived.Eq(&expected))
}

func TestMACSerializationRoundTrip(t *testing.T) {
	sk, rnd := testKey("mac-wire")
	ma, ms, mv := commitments(rnd)
	mac, err := RandomMAC(sk, &ma, &ms, &mv, rnd)
	require.NoError(t, err)

	buf := make([]byte, mac.SizeHint())
	_, _, err = mac.Marshal(buf, len(buf))
	require.NoError(t, err)

	var decoded MAC
	_, _, err = decoded.Unmarshal(buf, len(buf))
	require.NoError(t, err)
	require.True(t, mac.Eq(&decoded))
}

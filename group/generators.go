package group

import (
	"encoding/binary"

	"github.com/renproject/secp256k1"
	"golang.org/x/crypto/sha3"
)

// generatorDomain separates generator derivation from every other use
// of the protocol hash.
const generatorDomain = "WabiSabi_v1.0/generator"

// Generators is the fixed public family of independent group elements.
// G is the standard base point; every other element is derived by
// hashing its label to the curve, so no discrete-log relation between
// any two of them is known.
//
// Roles: Gw/Gwp commit the issuer key pair (w, w'); Gx0/Gx1 blind the
// MAC tag components; Ga, Gs, Gv blind the amount, serial and vsize
// attribute commitments in presentations; Gg/Gh are the Pedersen
// commitment bases; GV blinds the MAC value V; U is the fixed base of
// the MAC tag.
type Generators struct {
	G   secp256k1.Point
	Gw  secp256k1.Point
	Gwp secp256k1.Point
	Gx0 secp256k1.Point
	Gx1 secp256k1.Point
	Ga  secp256k1.Point
	Gs  secp256k1.Point
	Gv  secp256k1.Point
	GV  secp256k1.Point
	Gg  secp256k1.Point
	Gh  secp256k1.Point
	U   secp256k1.Point
}

var gens *Generators

func init() {
	one := secp256k1.NewFnFromU16(1)
	var g secp256k1.Point
	g.BaseExp(&one)

	gens = &Generators{
		G:   g,
		Gw:  Derive("Gw"),
		Gwp: Derive("Gwp"),
		Gx0: Derive("Gx0"),
		Gx1: Derive("Gx1"),
		Ga:  Derive("Ga"),
		Gs:  Derive("Gs"),
		Gv:  Derive("Gv"),
		GV:  Derive("GV"),
		Gg:  Derive("Gg"),
		Gh:  Derive("Gh"),
		U:   Derive("U"),
	}
}

// Gen returns the precomputed generator family.
func Gen() *Generators {
	return gens
}

// Derive hashes a label to a curve point by try-and-increment: the
// label and a counter are absorbed into cSHAKE128, the 32-byte output
// is taken as a candidate x coordinate, and the counter is bumped
// until decompression succeeds. Distinct labels give independent
// points.
func Derive(label string) secp256k1.Point {
	var candidate [PointSize]byte
	var ctr [4]byte
	for i := uint32(0); ; i++ {
		h := sha3.NewCShake128(nil, []byte(generatorDomain))
		_, _ = h.Write([]byte(label))
		binary.BigEndian.PutUint32(ctr[:], i)
		_, _ = h.Write(ctr[:])
		_, _ = h.Read(candidate[:32])
		// even-y decompression of the candidate x coordinate
		candidate[32] = 0
		var p secp256k1.Point
		if err := p.SetBytes(candidate[:]); err == nil && !p.IsInfinity() {
			return p
		}
	}
}

package wabisabi

import (
	"github.com/go-errors/errors"
	"github.com/multiformats/go-multihash"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/nothingmuch/wabisabi/keys"
	"github.com/nothingmuch/wabisabi/zkp"
	"github.com/renproject/secp256k1"
)

// Credential is a MACed pair of attribute values held by the client.
// Serial is revealed on presentation for double-spend detection, so a
// credential is single-use: presenting it again would reuse the
// serial.
type Credential struct {
	Amount uint64
	Vsize  uint64

	Serial secp256k1.Fn
	Ra     secp256k1.Fn // randomness of the amount commitment
	Rs     secp256k1.Fn // randomness of the serial commitment
	Rv     secp256k1.Fn // randomness of the vsize commitment

	Mac keys.MAC
}

// Commitments recomputes the attribute commitment triple
// (Ma, Ms, Mv) = (a*Gg + ra*Gh, serial*Gg + rs*Gh, v*Gg + rv*Gh).
func (c *Credential) Commitments() (ma, ms, mv secp256k1.Point) {
	gen := group.Gen()
	ma = pedersen(&gen.Gg, group.ScalarFromUint64(c.Amount), &gen.Gh, c.Ra)
	ms = pedersen(&gen.Gg, c.Serial, &gen.Gh, c.Rs)
	mv = pedersen(&gen.Gg, group.ScalarFromUint64(c.Vsize), &gen.Gh, c.Rv)
	return
}

// Fingerprint returns a self-describing hash of the credential's MAC,
// used to detect duplicate presentations within one request.
func (c *Credential) Fingerprint() (string, error) {
	mh, err := multihash.Sum(c.Mac.Bytes(), multihash.SHA2_256, -1)
	if err != nil {
		return "", errors.WrapPrefix(err, "credential fingerprint", 0)
	}
	return string(mh), nil
}

func pedersen(g1 *secp256k1.Point, s1 secp256k1.Fn, g2 *secp256k1.Point, s2 secp256k1.Fn) secp256k1.Point {
	var a, b secp256k1.Point
	a.Scale(g1, &s1)
	b.Scale(g2, &s2)
	a.Add(&a, &b)
	return a
}

// Presentation is the rerandomization of a credential sent to the
// coordinator: the blinded attribute commitments, the blinded MAC
// components, and the revealed serial number. The keyed-verification
// value Z is never transmitted; the prover computes it as z*I and the
// coordinator recomputes it from CV under its secret key.
type Presentation struct {
	Ca  secp256k1.Point
	Cs  secp256k1.Point
	Cv  secp256k1.Point
	Cx0 secp256k1.Point
	Cx1 secp256k1.Point
	CV  secp256k1.Point

	Serial secp256k1.Fn
}

// presentedCredential couples a presentation with the witness of its
// show statement.
type presentedCredential struct {
	presentation Presentation
	z            secp256k1.Fn
	credential   *Credential
}

// present rerandomizes a credential under a fresh blinding z.
func present(c *Credential, rnd group.Random) *presentedCredential {
	gen := group.Gen()
	z := rnd.Scalar(false)

	ma, ms, mv := c.Commitments()
	p := Presentation{Serial: c.Serial}
	p.Ca = blind(&gen.Ga, z, &ma)
	p.Cs = blind(&gen.Gs, z, &ms)
	p.Cv = blind(&gen.Gv, z, &mv)
	p.Cx0 = blind(&gen.Gx0, z, &gen.U)
	var tU secp256k1.Point
	tU.Scale(&gen.U, &c.Mac.T)
	p.Cx1 = blind(&gen.Gx1, z, &tU)
	p.CV = blind(&gen.GV, z, &c.Mac.V)

	return &presentedCredential{presentation: p, z: z, credential: c}
}

// blind computes z*g + add.
func blind(g *secp256k1.Point, z secp256k1.Fn, add *secp256k1.Point) secp256k1.Point {
	var p secp256k1.Point
	p.Scale(g, &z)
	p.Add(&p, add)
	return p
}

// showWitness lays out the show statement witness
// (z, z0, t, a, ra, rs, v, rv) with z0 = -t*z.
func (pc *presentedCredential) showWitness() group.ScalarVector {
	var z0, tz secp256k1.Fn
	tz.Mul(&pc.credential.Mac.T, &pc.z)
	z0.Negate(&tz)
	return group.ScalarVector{
		pc.z,
		z0,
		pc.credential.Mac.T,
		group.ScalarFromUint64(pc.credential.Amount),
		pc.credential.Ra,
		pc.credential.Rs,
		group.ScalarFromUint64(pc.credential.Vsize),
		pc.credential.Rv,
	}
}

// showZ computes the prover-side keyed-verification value z*I.
func (pc *presentedCredential) showZ(params *keys.CoordinatorParameters) secp256k1.Point {
	var z secp256k1.Point
	z.Scale(&params.I, &pc.z)
	return z
}

// showStatement is the show relation over the shared witness
// (z, z0, t, a, ra, rs, v, rv):
//
//	Z         = z*I
//	Cx1       = z*Gx1 + z0*Gx0 + t*Cx0
//	Ca        = z*Ga + a*Gg + ra*Gh
//	Cs - σ*Gg = z*Gs + rs*Gh
//	Cv        = z*Gv + v*Gg + rv*Gh
//
// Both sides build it identically; they differ only in how they obtain
// Z.
func showStatement(params *keys.CoordinatorParameters, p *Presentation, z secp256k1.Point) *zkp.Statement {
	gen := group.Gen()
	inf := secp256k1.NewPointInfinity()

	var serialG, csMinus secp256k1.Point
	serialG.Scale(&gen.Gg, &p.Serial)
	group.Sub(&csMinus, &p.Cs, &serialG)

	return zkp.NewStatement("show",
		zkp.NewEquation(z, params.I, inf, inf, inf, inf, inf, inf, inf),
		zkp.NewEquation(p.Cx1, gen.Gx1, gen.Gx0, p.Cx0, inf, inf, inf, inf, inf),
		zkp.NewEquation(p.Ca, gen.Ga, inf, inf, gen.Gg, gen.Gh, inf, inf, inf),
		zkp.NewEquation(csMinus, gen.Gs, inf, inf, inf, inf, gen.Gh, inf, inf),
		zkp.NewEquation(p.Cv, gen.Gv, inf, inf, inf, inf, inf, gen.Gg, gen.Gh),
	)
}

// SerialFingerprint hashes a revealed serial number for the
// coordinator's double-spend registry.
func SerialFingerprint(serial *secp256k1.Fn) (string, error) {
	mh, err := multihash.Sum(group.ScalarBytes(serial), multihash.SHA2_256, -1)
	if err != nil {
		return "", errors.WrapPrefix(err, "serial fingerprint", 0)
	}
	return string(mh), nil
}

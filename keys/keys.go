// Package keys holds the coordinator's keyed-verification key
// material: the secret key, the public issuer parameters derived from
// it, and the algebraic MAC computed under it.
package keys

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
)

// CoordinatorSecretKey is the issuer's MAC key (w, w', x0, x1, ya, ys,
// yv). All components are random nonzero scalars; it never leaves the
// coordinator.
type CoordinatorSecretKey struct {
	W, Wp, X0, X1, Ya, Ys, Yv secp256k1.Fn
}

// CoordinatorParameters is the public, long-lived commitment to the
// secret key: Cw = w*Gw + w'*Gwp and
// I = GV - (x0*Gx0 + x1*Gx1 + ya*Ga + ys*Gs + yv*Gv).
type CoordinatorParameters struct {
	Cw secp256k1.Point
	I  secp256k1.Point
}

// NewCoordinatorSecretKey draws a fresh secret key.
func NewCoordinatorSecretKey(rnd group.Random) *CoordinatorSecretKey {
	return &CoordinatorSecretKey{
		W:  rnd.Scalar(false),
		Wp: rnd.Scalar(false),
		X0: rnd.Scalar(false),
		X1: rnd.Scalar(false),
		Ya: rnd.Scalar(false),
		Ys: rnd.Scalar(false),
		Yv: rnd.Scalar(false),
	}
}

// Parameters derives the public issuer parameters.
func (sk *CoordinatorSecretKey) Parameters() *CoordinatorParameters {
	gen := group.Gen()

	var cw, tmp secp256k1.Point
	cw.Scale(&gen.Gw, &sk.W)
	tmp.Scale(&gen.Gwp, &sk.Wp)
	cw.Add(&cw, &tmp)

	sum, err := group.InnerProduct(
		group.ScalarVector{sk.X0, sk.X1, sk.Ya, sk.Ys, sk.Yv},
		group.GroupElementVector{gen.Gx0, gen.Gx1, gen.Ga, gen.Gs, gen.Gv},
	)
	if err != nil {
		panic(err)
	}
	var i secp256k1.Point
	group.Sub(&i, &gen.GV, &sum)

	return &CoordinatorParameters{Cw: cw, I: i}
}

// WitnessVector lays the key out as the shared witness of the issuance
// statement: (w, w', x0, x1, ya, ys, yv).
func (sk *CoordinatorSecretKey) WitnessVector() group.ScalarVector {
	return group.ScalarVector{sk.W, sk.Wp, sk.X0, sk.X1, sk.Ya, sk.Ys, sk.Yv}
}

// Validate rejects parameters containing the infinity element.
func (p *CoordinatorParameters) Validate() error {
	if p.Cw.IsInfinity() || p.I.IsInfinity() {
		return errors.Errorf("coordinator parameters contain infinity")
	}
	return nil
}

// SizeHint implements the surge.SizeHinter interface.
func (p CoordinatorParameters) SizeHint() int {
	return p.Cw.SizeHint() + p.I.SizeHint()
}

// Marshal implements the surge.Marshaler interface.
func (p CoordinatorParameters) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := p.Cw.Marshal(buf, rem)
	if err != nil {
		return buf, rem, err
	}
	return p.I.Marshal(buf, rem)
}

// Unmarshal implements the surge.Unmarshaler interface.
func (p *CoordinatorParameters) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := p.Cw.Unmarshal(buf, rem)
	if err != nil {
		return buf, rem, err
	}
	return p.I.Unmarshal(buf, rem)
}

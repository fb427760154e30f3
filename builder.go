package wabisabi

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/nothingmuch/wabisabi/zkp"
	"github.com/renproject/secp256k1"
)

// requestedCredential holds the secrets of one credential under
// request: attribute values, serial, commitment randomness, and the
// bit decompositions backing the range proofs. It becomes a Credential
// once the issuer's MAC arrives.
type requestedCredential struct {
	amount uint64
	vsize  uint64

	serial secp256k1.Fn
	ra     secp256k1.Fn
	rs     secp256k1.Fn
	rv     secp256k1.Fn

	ma secp256k1.Point
	ms secp256k1.Point
	mv secp256k1.Point

	// bit commitments and their randomness, little-endian bit order;
	// empty for null requests
	bitsA     []bit
	bitsV     []bit
}

type bit struct {
	set        bool
	randomness secp256k1.Fn
	commitment secp256k1.Point
}

// newRequestedCredential commits to the attribute values. For real
// requests the commitment randomness is derived from the per-bit
// randomness (ra = sum 2^j r_j), which makes Ma = sum 2^j A_j hold as
// a point identity the verifier can check directly.
func newRequestedCredential(amount, vsize uint64, isNull bool, rnd group.Random) (*requestedCredential, error) {
	if amount > MaxAmount {
		return nil, errors.WrapPrefix(ErrAmountOutOfRange, "amount", 0)
	}
	if vsize > MaxVsize {
		return nil, errors.WrapPrefix(ErrAmountOutOfRange, "vsize", 0)
	}
	if isNull && (amount != 0 || vsize != 0) {
		return nil, errors.Errorf("null request with nonzero attributes")
	}

	gen := group.Gen()
	rc := &requestedCredential{
		amount: amount,
		vsize:  vsize,
		serial: rnd.Scalar(false),
		rs:     rnd.Scalar(false),
	}

	if isNull {
		rc.ra = rnd.Scalar(false)
		rc.rv = rnd.Scalar(false)
	} else {
		rc.bitsA = decompose(amount, AmountBitWidth, rnd)
		rc.bitsV = decompose(vsize, VsizeBitWidth, rnd)
		rc.ra = foldRandomness(rc.bitsA)
		rc.rv = foldRandomness(rc.bitsV)
	}

	rc.ma = pedersen(&gen.Gg, group.ScalarFromUint64(amount), &gen.Gh, rc.ra)
	rc.ms = pedersen(&gen.Gg, rc.serial, &gen.Gh, rc.rs)
	rc.mv = pedersen(&gen.Gg, group.ScalarFromUint64(vsize), &gen.Gh, rc.rv)
	return rc, nil
}

func decompose(value uint64, width int, rnd group.Random) []bit {
	gen := group.Gen()
	bits := make([]bit, width)
	for j := 0; j < width; j++ {
		b := bit{
			set:        value>>uint(j)&1 == 1,
			randomness: rnd.Scalar(false),
		}
		var blinding secp256k1.Point
		blinding.Scale(&gen.Gh, &b.randomness)
		if b.set {
			b.commitment.Add(&gen.Gg, &blinding)
		} else {
			b.commitment = blinding
		}
		bits[j] = b
	}
	return bits
}

// foldRandomness computes sum_j 2^j * r_j.
func foldRandomness(bits []bit) secp256k1.Fn {
	var acc, term, weight secp256k1.Fn
	for j := range bits {
		weight = group.ScalarFromUint64(uint64(1) << uint(j))
		term.Mul(&weight, &bits[j].randomness)
		acc.Add(&acc, &term)
	}
	return acc
}

// openingStatement proves knowledge of the openings of (Ma, Ms, Mv)
// over witness (a, ra, σ, rs, v, rv). The null variant excludes the
// attribute value slots entirely, so it proves the values are zero.
func openingStatement(req *CredentialRequest, isNull bool) *zkp.Statement {
	gen := group.Gen()
	inf := secp256k1.NewPointInfinity()
	if isNull {
		return zkp.NewStatement("opening-null",
			zkp.NewEquation(req.Ma, gen.Gh, inf, inf, inf),
			zkp.NewEquation(req.Ms, inf, gen.Gg, gen.Gh, inf),
			zkp.NewEquation(req.Mv, inf, inf, inf, gen.Gh),
		)
	}
	return zkp.NewStatement("opening",
		zkp.NewEquation(req.Ma, gen.Gg, gen.Gh, inf, inf, inf, inf),
		zkp.NewEquation(req.Ms, inf, inf, gen.Gg, gen.Gh, inf, inf),
		zkp.NewEquation(req.Mv, inf, inf, inf, inf, gen.Gg, gen.Gh),
	)
}

// openingWitness matches openingStatement's layout.
func (rc *requestedCredential) openingWitness(isNull bool) group.ScalarVector {
	if isNull {
		return group.ScalarVector{rc.ra, rc.serial, rc.rs, rc.rv}
	}
	return group.ScalarVector{
		group.ScalarFromUint64(rc.amount), rc.ra,
		rc.serial, rc.rs,
		group.ScalarFromUint64(rc.vsize), rc.rv,
	}
}

// bitStatements returns the two alternatives of the per-bit
// disjunction: A = r*Gh (bit clear) and A - Gg = r*Gh (bit set), in
// that canonical order.
func bitStatements(commitment *secp256k1.Point) []*zkp.Statement {
	gen := group.Gen()
	var shifted secp256k1.Point
	group.Sub(&shifted, commitment, &gen.Gg)
	return []*zkp.Statement{
		zkp.NewStatement("range-bit", zkp.NewEquation(*commitment, gen.Gh)),
		zkp.NewStatement("range-bit", zkp.NewEquation(shifted, gen.Gh)),
	}
}

// prover builds the disjunction prover for one bit commitment.
func (b *bit) prover() (*zkp.OrProver, error) {
	known := 0
	if b.set {
		known = 1
	}
	return zkp.NewOrProver(bitStatements(&b.commitment), known, group.ScalarVector{b.randomness})
}

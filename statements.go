package wabisabi

import (
	"github.com/nothingmuch/wabisabi/group"
	"github.com/nothingmuch/wabisabi/keys"
	"github.com/nothingmuch/wabisabi/zkp"
	"github.com/renproject/secp256k1"
)

// scalarFromInt64 lifts a signed declared delta into the scalar field.
func scalarFromInt64(v int64) secp256k1.Fn {
	if v >= 0 {
		return group.ScalarFromUint64(uint64(v))
	}
	s := group.ScalarFromUint64(uint64(-v))
	s.Negate(&s)
	return s
}

// weightedCommitmentSum computes sum_j 2^j * A_j over bit commitments.
func weightedCommitmentSum(commitments group.GroupElementVector) secp256k1.Point {
	acc := secp256k1.NewPointInfinity()
	var term secp256k1.Point
	for j := range commitments {
		w := group.ScalarFromUint64(uint64(1) << uint(j))
		term.Scale(&commitments[j], &w)
		acc.Add(&acc, &term)
	}
	return acc
}

// balancePoints computes the publicly derivable balance commitments
//
//	Ba = sum Ca_i - sum Ma_j - deltaAmount*Gg
//	Bv = sum Cv_i - sum Mv_j - deltaVsize*Gg
//
// which, for a balanced request, open to ((sum z)*Ga + dRa*Gh) and
// ((sum z)*Gv + dRv*Gh) respectively.
func balancePoints(presentations []Presentation, requested []CredentialRequest, deltaAmount, deltaVsize int64) (ba, bv secp256k1.Point) {
	gen := group.Gen()
	ba = secp256k1.NewPointInfinity()
	bv = secp256k1.NewPointInfinity()
	for i := range presentations {
		ba.Add(&ba, &presentations[i].Ca)
		bv.Add(&bv, &presentations[i].Cv)
	}
	for j := range requested {
		group.Sub(&ba, &ba, &requested[j].Ma)
		group.Sub(&bv, &bv, &requested[j].Mv)
	}
	var d secp256k1.Point
	da := scalarFromInt64(deltaAmount)
	d.Scale(&gen.Gg, &da)
	group.Sub(&ba, &ba, &d)
	dv := scalarFromInt64(deltaVsize)
	d.Scale(&gen.Gg, &dv)
	group.Sub(&bv, &bv, &d)
	return
}

// balanceStatement binds both declared deltas through the shared
// witness (sum z, dRa, dRv).
func balanceStatement(ba, bv secp256k1.Point) *zkp.Statement {
	gen := group.Gen()
	inf := secp256k1.NewPointInfinity()
	return zkp.NewStatement("balance",
		zkp.NewEquation(ba, gen.Ga, gen.Gh, inf),
		zkp.NewEquation(bv, gen.Gv, inf, gen.Gh),
	)
}

// issuanceStatement is the issuer's proof of correct issuance over the
// witness (w, w', x0, x1, ya, ys, yv):
//
//	Cw      = w*Gw + w'*Gwp
//	GV - I  = x0*Gx0 + x1*Gx1 + ya*Ga + ys*Gs + yv*Gv
//	V_i     = w*Gw + x0*U + x1*(t_i*U) + ya*Ma_i + ys*Ms_i + yv*Mv_i
//
// with one V row per issued credential.
func issuanceStatement(params *keys.CoordinatorParameters, requested []CredentialRequest, macs []keys.MAC) *zkp.Statement {
	gen := group.Gen()
	inf := secp256k1.NewPointInfinity()

	var gvMinusI secp256k1.Point
	group.Sub(&gvMinusI, &gen.GV, &params.I)

	equations := []zkp.Equation{
		zkp.NewEquation(params.Cw, gen.Gw, gen.Gwp, inf, inf, inf, inf, inf),
		zkp.NewEquation(gvMinusI, inf, inf, gen.Gx0, gen.Gx1, gen.Ga, gen.Gs, gen.Gv),
	}
	for i := range macs {
		var tU secp256k1.Point
		tU.Scale(&gen.U, &macs[i].T)
		equations = append(equations, zkp.NewEquation(
			macs[i].V,
			gen.Gw, inf, gen.U, tU, requested[i].Ma, requested[i].Ms, requested[i].Mv,
		))
	}
	return zkp.NewStatement("issuance", equations...)
}

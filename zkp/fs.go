package zkp

import (
	"github.com/nothingmuch/wabisabi/group"
)

// Prove runs the three-phase Fiat-Shamir conjunction over a shared
// transcript: every sub-proof commits its statements, then every
// sub-proof commits its nonces, then one challenge is drawn and every
// sub-proof responds to it. The fixed phase order is what makes the
// challenge bind all conjuncts.
func Prove(t *Transcript, rnd group.Random, provers ...Prover) error {
	for _, p := range provers {
		if err := p.CommitStatements(t); err != nil {
			return err
		}
	}
	for _, p := range provers {
		if err := p.CommitNonces(t, rnd); err != nil {
			return err
		}
	}
	e := t.GenerateChallenge()
	for _, p := range provers {
		if err := p.Respond(&e); err != nil {
			return err
		}
	}
	return nil
}

// Verify mirrors Prove: the verifier transcript must have absorbed
// exactly the same bytes, so the recomputed challenge matches iff the
// proofs are consistent with the statements.
func Verify(t *Transcript, verifiers ...Verifier) error {
	for _, v := range verifiers {
		if err := v.CommitStatements(t); err != nil {
			return err
		}
	}
	for _, v := range verifiers {
		if err := v.CommitNonces(t); err != nil {
			return err
		}
	}
	e := t.GenerateChallenge()
	for _, v := range verifiers {
		if err := v.Verify(&e); err != nil {
			return err
		}
	}
	return nil
}

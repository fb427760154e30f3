package zkp

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
)

// The Abe-Ohkubo-Suzuki disjunction: the prover knows the witness of
// exactly one alternative and simulates the others around a challenge
// ring. Each ring challenge e_i is derived on a fork of the main
// transcript from the public nonces of alternative i-1 (cyclically),
// so the ring closes only if every alternative verifies. After the
// ring is built, all public nonces are absorbed into the main
// transcript in canonical statement order, which is what a containing
// conjunction binds to.

const opOr = "or"

// OrProver proves a disjunction of statements, knowing the witness of
// the alternative at index known.
type OrProver struct {
	statements []*Statement
	witness    group.ScalarVector
	known      int
	proof      *OrProof
}

// NewOrProver checks the witness against the known alternative and
// returns a prover. The statement list order is canonical: both sides
// must present the alternatives identically.
func NewOrProver(statements []*Statement, known int, witness group.ScalarVector) (*OrProver, error) {
	if len(statements) < 2 {
		return nil, errors.Errorf("zkp: disjunction needs at least two alternatives, got %v", len(statements))
	}
	if known < 0 || known >= len(statements) {
		return nil, errors.Errorf("zkp: known alternative %v out of range", known)
	}
	// the known-witness check is the same as for a leaf prover
	if _, err := NewKnowledgeProver(statements[known], witness); err != nil {
		return nil, err
	}
	for i := range statements {
		if err := statements[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &OrProver{statements: statements, witness: witness, known: known}, nil
}

func commitAlternatives(t *Transcript, statements []*Statement) error {
	t.absorbCount(opOr, len(statements))
	for i := range statements {
		if err := t.CommitStatement(statements[i]); err != nil {
			return err
		}
	}
	return nil
}

// ringChallenge forks the main transcript, absorbs the public nonces
// of the previous alternative, and derives the challenge for the
// current one.
func ringChallenge(t *Transcript, prevNonces group.GroupElementVector) (secp256k1.Fn, error) {
	fork := t.Clone()
	if err := fork.CommitPublicNonces(prevNonces); err != nil {
		return secp256k1.Fn{}, err
	}
	return fork.GenerateChallenge(), nil
}

// CommitStatements implements the Prover interface.
func (p *OrProver) CommitStatements(t *Transcript) error {
	return commitAlternatives(t, p.statements)
}

// CommitNonces implements the Prover interface. The entire ring is
// built here: the shared challenge of a containing conjunction plays
// no role inside a disjunction, it binds the ring only through the
// absorbed nonces.
func (p *OrProver) CommitNonces(t *Transcript, rnd group.Random) error {
	n := len(p.statements)
	j := p.known

	nonces := make([]group.GroupElementVector, n)
	responses := make([][]group.ScalarVector, n)

	// real commitment for the known alternative
	real := &KnowledgeProver{statement: p.statements[j], witness: p.witness}
	scratch := t.Clone()
	if err := real.CommitNonces(scratch, rnd); err != nil {
		return err
	}
	nonces[j] = real.proof.PublicNonces

	// simulate the others around the ring
	for step := 1; step < n; step++ {
		i := (j + step) % n
		prev := (i - 1 + n) % n
		e, err := ringChallenge(t, nonces[prev])
		if err != nil {
			return err
		}
		stmt := p.statements[i]
		responses[i] = make([]group.ScalarVector, len(stmt.Equations))
		for eq := range stmt.Equations {
			row := make(group.ScalarVector, stmt.WitnessLength())
			for w := range row {
				row[w] = rnd.Scalar(false)
			}
			responses[i][eq] = row
		}
		simulated, err := simulate(stmt, &e, responses[i])
		if err != nil {
			return err
		}
		nonces[i] = simulated
	}

	// close the ring with the real response
	prev := (j - 1 + n) % n
	e, err := ringChallenge(t, nonces[prev])
	if err != nil {
		return err
	}
	if err := real.Respond(&e); err != nil {
		return err
	}
	responses[j] = real.proof.Responses

	p.proof = &OrProof{Alternatives: make([]Proof, n)}
	flat := make(group.GroupElementVector, 0, n)
	for i := 0; i < n; i++ {
		p.proof.Alternatives[i] = Proof{PublicNonces: nonces[i], Responses: responses[i]}
		flat = append(flat, nonces[i]...)
	}
	return t.CommitPublicNonces(flat)
}

// Respond implements the Prover interface. The ring is already closed;
// nothing depends on the shared challenge.
func (p *OrProver) Respond(*secp256k1.Fn) error {
	return nil
}

// Proof returns the built ring proof. Only valid after CommitNonces.
func (p *OrProver) Proof() *OrProof {
	return p.proof
}

// OrVerifier verifies an Abe-Ohkubo-Suzuki ring against its canonical
// statement list.
type OrVerifier struct {
	statements []*Statement
	proof      *OrProof
	challenges []secp256k1.Fn
}

// NewOrVerifier returns a verifier for a disjunction.
func NewOrVerifier(statements []*Statement, proof *OrProof) (*OrVerifier, error) {
	if proof == nil || len(proof.Alternatives) != len(statements) {
		return nil, errors.WrapPrefix(ErrVerificationFailed, "disjunction shape mismatch", 0)
	}
	for i := range statements {
		if err := statements[i].Validate(); err != nil {
			return nil, err
		}
		if err := checkProofShape(statements[i], &proof.Alternatives[i]); err != nil {
			return nil, err
		}
	}
	return &OrVerifier{statements: statements, proof: proof}, nil
}

// CommitStatements implements the Verifier interface.
func (v *OrVerifier) CommitStatements(t *Transcript) error {
	return commitAlternatives(t, v.statements)
}

// CommitNonces implements the Verifier interface: recompute every ring
// challenge from the proof's nonces, then absorb the full ring exactly
// as the prover did.
func (v *OrVerifier) CommitNonces(t *Transcript) error {
	n := len(v.statements)
	v.challenges = make([]secp256k1.Fn, n)
	flat := make(group.GroupElementVector, 0, n)
	for i := 0; i < n; i++ {
		prev := (i - 1 + n) % n
		e, err := ringChallenge(t, v.proof.Alternatives[prev].PublicNonces)
		if err != nil {
			return err
		}
		v.challenges[i] = e
		flat = append(flat, v.proof.Alternatives[i].PublicNonces...)
	}
	return t.CommitPublicNonces(flat)
}

// Verify implements the Verifier interface: every alternative must
// verify under its recomputed ring challenge.
func (v *OrVerifier) Verify(*secp256k1.Fn) error {
	for i := range v.statements {
		if err := verifyResponses(v.statements[i], &v.proof.Alternatives[i], &v.challenges[i]); err != nil {
			return err
		}
	}
	return nil
}

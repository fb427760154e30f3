package zkp

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
)

// ErrVerificationFailed is the generic verification failure of a
// sub-proof; callers wrap it with the relation that failed.
var ErrVerificationFailed = errors.Errorf("zkp: verification failed")

// Verifier mirrors Prover for the verification side of a composition.
type Verifier interface {
	CommitStatements(t *Transcript) error
	// CommitNonces validates the proof shape and absorbs its public
	// nonces.
	CommitNonces(t *Transcript) error
	// Verify checks the responses under the shared challenge.
	Verify(e *secp256k1.Fn) error
}

// KnowledgeVerifier verifies a leaf proof against its statement.
type KnowledgeVerifier struct {
	statement *Statement
	proof     *Proof
}

// NewKnowledgeVerifier returns a verifier for a single statement.
func NewKnowledgeVerifier(statement *Statement, proof *Proof) (*KnowledgeVerifier, error) {
	if err := statement.Validate(); err != nil {
		return nil, err
	}
	if proof == nil {
		return nil, errors.WrapPrefix(ErrVerificationFailed, "missing proof for "+statement.Tag, 0)
	}
	return &KnowledgeVerifier{statement: statement, proof: proof}, nil
}

// CommitStatements implements the Verifier interface.
func (v *KnowledgeVerifier) CommitStatements(t *Transcript) error {
	return t.CommitStatement(v.statement)
}

// CommitNonces implements the Verifier interface.
func (v *KnowledgeVerifier) CommitNonces(t *Transcript) error {
	if err := checkProofShape(v.statement, v.proof); err != nil {
		return err
	}
	return t.CommitPublicNonces(v.proof.PublicNonces)
}

// Verify implements the Verifier interface: for every equation,
// sum_j s_ij*G_ij must equal R_i + e*P_i.
func (v *KnowledgeVerifier) Verify(e *secp256k1.Fn) error {
	return verifyResponses(v.statement, v.proof, e)
}

func checkProofShape(statement *Statement, proof *Proof) error {
	k := len(statement.Equations)
	n := statement.WitnessLength()
	if len(proof.PublicNonces) != k || len(proof.Responses) != k {
		return errors.WrapPrefix(ErrVerificationFailed, "proof shape mismatch for "+statement.Tag, 0)
	}
	for i := range proof.Responses {
		if len(proof.Responses[i]) != n {
			return errors.WrapPrefix(ErrVerificationFailed, "response length mismatch for "+statement.Tag, 0)
		}
	}
	for i := range proof.PublicNonces {
		if proof.PublicNonces[i].IsInfinity() {
			return ErrInfinityInStatement
		}
	}
	return nil
}

func verifyResponses(statement *Statement, proof *Proof, e *secp256k1.Fn) error {
	for i := range statement.Equations {
		eq := &statement.Equations[i]
		lhs, err := group.InnerProduct(proof.Responses[i], eq.Generators)
		if err != nil {
			return err
		}
		var rhs secp256k1.Point
		rhs.Scale(&eq.Public, e)
		rhs.Add(&rhs, &proof.PublicNonces[i])
		if !lhs.Eq(&rhs) {
			return errors.WrapPrefix(ErrVerificationFailed, statement.Tag, 0)
		}
	}
	return nil
}

package zkp

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
)

var (
	// ErrZeroResponse is returned when a response scalar would be zero,
	// which would leak that the masked witness equals the nonce ratio.
	ErrZeroResponse = errors.Errorf("zkp: zero response")

	// ErrWitnessMismatch is returned when a witness vector does not
	// satisfy or fit the statement it is proven for.
	ErrWitnessMismatch = errors.Errorf("zkp: witness does not fit statement")
)

// Prover is one sub-proof of a non-interactive composition. The three
// phases are driven in strict order across all sub-proofs of a
// conjunction, so every public nonce is absorbed before the shared
// challenge is drawn.
type Prover interface {
	// CommitStatements absorbs the sub-proof's statement(s).
	CommitStatements(t *Transcript) error
	// CommitNonces derives secret nonces, computes the public nonces
	// and absorbs them.
	CommitNonces(t *Transcript, rnd group.Random) error
	// Respond computes the responses for the shared challenge.
	Respond(e *secp256k1.Fn) error
}

// KnowledgeProver proves knowledge of the witness of a single
// linear-relation statement.
type KnowledgeProver struct {
	statement    *Statement
	witness      group.ScalarVector
	secretNonces []group.ScalarVector
	proof        *Proof
}

// NewKnowledgeProver checks that the witness satisfies the statement
// and returns a prover for it.
func NewKnowledgeProver(statement *Statement, witness group.ScalarVector) (*KnowledgeProver, error) {
	if err := statement.Validate(); err != nil {
		return nil, err
	}
	if len(witness) != statement.WitnessLength() {
		return nil, errors.WrapPrefix(ErrWitnessMismatch, statement.Tag, 0)
	}
	for i := range statement.Equations {
		eq := &statement.Equations[i]
		p, err := group.InnerProduct(witness, eq.Generators)
		if err != nil {
			return nil, err
		}
		if !p.Eq(&eq.Public) {
			return nil, errors.WrapPrefix(ErrWitnessMismatch, statement.Tag, 0)
		}
	}
	return &KnowledgeProver{statement: statement, witness: witness}, nil
}

// CommitStatements implements the Prover interface.
func (p *KnowledgeProver) CommitStatements(t *Transcript) error {
	return t.CommitStatement(p.statement)
}

// CommitNonces implements the Prover interface. One fresh secret nonce
// vector is drawn per equation; a public nonce that lands on infinity
// causes a redraw.
func (p *KnowledgeProver) CommitNonces(t *Transcript, rnd group.Random) error {
	k := len(p.statement.Equations)
	p.secretNonces = make([]group.ScalarVector, k)
	publicNonces := make(group.GroupElementVector, k)
	for i := range p.statement.Equations {
		eq := &p.statement.Equations[i]
		for {
			nonces := t.GenerateSecretNonces(p.witness, rnd)
			r, err := group.InnerProduct(nonces, eq.Generators)
			if err != nil {
				return err
			}
			if r.IsInfinity() {
				continue
			}
			p.secretNonces[i] = nonces
			publicNonces[i] = r
			break
		}
	}
	p.proof = &Proof{PublicNonces: publicNonces}
	return t.CommitPublicNonces(publicNonces)
}

// Respond implements the Prover interface: s_ij = k_ij + e*x_j.
func (p *KnowledgeProver) Respond(e *secp256k1.Fn) error {
	p.proof.Responses = make([]group.ScalarVector, len(p.secretNonces))
	for i := range p.secretNonces {
		responses := make(group.ScalarVector, len(p.witness))
		for j := range p.witness {
			var s secp256k1.Fn
			s.Mul(e, &p.witness[j])
			s.Add(&s, &p.secretNonces[i][j])
			if s.IsZero() {
				return ErrZeroResponse
			}
			responses[j] = s
		}
		p.proof.Responses[i] = responses
	}
	return nil
}

// Proof returns the built leaf proof. Only valid after Respond.
func (p *KnowledgeProver) Proof() *Proof {
	return p.proof
}

// simulate recovers the public nonces that make random responses
// verify under a given challenge: R_i = sum_j s_ij*G_ij - e*P_i.
func simulate(statement *Statement, e *secp256k1.Fn, responses []group.ScalarVector) (group.GroupElementVector, error) {
	nonces := make(group.GroupElementVector, len(statement.Equations))
	for i := range statement.Equations {
		eq := &statement.Equations[i]
		r, err := group.InnerProduct(responses[i], eq.Generators)
		if err != nil {
			return nil, err
		}
		var eP secp256k1.Point
		eP.Scale(&eq.Public, e)
		group.Sub(&r, &r, &eP)
		if r.IsInfinity() {
			return nil, ErrInfinityInStatement
		}
		nonces[i] = r
	}
	return nonces, nil
}

package zkp

import (
	"testing"

	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
	"github.com/stretchr/testify/require"
)

func testRandom(seed string) group.Random {
	return group.SeededRandom([]byte(seed))
}

// pedersenStatement builds P = x*G + r*H for testing.
func pedersenStatement(tag string, rnd group.Random) (*Statement, group.ScalarVector) {
	gen := group.Gen()
	witness := group.ScalarVector{rnd.Scalar(false), rnd.Scalar(false)}
	p, err := group.InnerProduct(witness, group.GroupElementVector{gen.Gg, gen.Gh})
	if err != nil {
		panic(err)
	}
	return NewStatement(tag, NewEquation(p, gen.Gg, gen.Gh)), witness
}

func TestKnowledgeProofRoundTrip(t *testing.T) {
	rnd := testRandom("round-trip")
	stmt, witness := pedersenStatement("test", rnd)

	prover, err := NewKnowledgeProver(stmt, witness)
	require.NoError(t, err)
	require.NoError(t, Prove(NewTranscript("test"), rnd, prover))

	verifier, err := NewKnowledgeVerifier(stmt, prover.Proof())
	require.NoError(t, err)
	require.NoError(t, Verify(NewTranscript("test"), verifier))
}

func TestKnowledgeProofRejectsWrongWitness(t *testing.T) {
	rnd := testRandom("wrong-witness")
	stmt, witness := pedersenStatement("test", rnd)
	witness[0] = rnd.Scalar(false)

	_, err := NewKnowledgeProver(stmt, witness)
	require.Error(t, err)
}

func TestKnowledgeProofRejectsTampering(t *testing.T) {
	rnd := testRandom("tamper")
	stmt, witness := pedersenStatement("test", rnd)

	prover, err := NewKnowledgeProver(stmt, witness)
	require.NoError(t, err)
	require.NoError(t, Prove(NewTranscript("test"), rnd, prover))

	proof := prover.Proof()
	tampered := *proof
	tampered.Responses = make([]group.ScalarVector, len(proof.Responses))
	for i := range proof.Responses {
		tampered.Responses[i] = append(group.ScalarVector{}, proof.Responses[i]...)
	}
	one := secp256k1.NewFnFromU16(1)
	tampered.Responses[0][0].Add(&tampered.Responses[0][0], &one)

	verifier, err := NewKnowledgeVerifier(stmt, &tampered)
	require.NoError(t, err)
	require.Error(t, Verify(NewTranscript("test"), verifier))
}

func TestProofRejectedOnDifferentTranscript(t *testing.T) {
	rnd := testRandom("transcript-binding")
	stmt, witness := pedersenStatement("test", rnd)

	prover, err := NewKnowledgeProver(stmt, witness)
	require.NoError(t, err)
	require.NoError(t, Prove(NewTranscript("label-a"), rnd, prover))

	verifier, err := NewKnowledgeVerifier(stmt, prover.Proof())
	require.NoError(t, err)
	require.Error(t, Verify(NewTranscript("label-b"), verifier))
}

func TestConjunctionBindsAllSubProofs(t *testing.T) {
	rnd := testRandom("conjunction")
	stmtA, witnessA := pedersenStatement("a", rnd)
	stmtB, witnessB := pedersenStatement("b", rnd)

	proverA, err := NewKnowledgeProver(stmtA, witnessA)
	require.NoError(t, err)
	proverB, err := NewKnowledgeProver(stmtB, witnessB)
	require.NoError(t, err)
	require.NoError(t, Prove(NewTranscript("and"), rnd, proverA, proverB))

	verifierA, err := NewKnowledgeVerifier(stmtA, proverA.Proof())
	require.NoError(t, err)
	verifierB, err := NewKnowledgeVerifier(stmtB, proverB.Proof())
	require.NoError(t, err)
	require.NoError(t, Verify(NewTranscript("and"), verifierA, verifierB))

	// a lone conjunct fails: the challenge covered both
	verifierA, err = NewKnowledgeVerifier(stmtA, proverA.Proof())
	require.NoError(t, err)
	require.Error(t, Verify(NewTranscript("and"), verifierA))
}

func TestMultiEquationSharedWitness(t *testing.T) {
	rnd := testRandom("multi-equation")
	gen := group.Gen()
	inf := secp256k1.NewPointInfinity()

	witness := group.ScalarVector{rnd.Scalar(false), rnd.Scalar(false)}
	p1, err := group.InnerProduct(witness, group.GroupElementVector{gen.Gg, gen.Gh})
	require.NoError(t, err)
	var p2 secp256k1.Point
	p2.Scale(&gen.Ga, &witness[1])

	stmt := NewStatement("shared",
		NewEquation(p1, gen.Gg, gen.Gh),
		NewEquation(p2, inf, gen.Ga),
	)
	prover, err := NewKnowledgeProver(stmt, witness)
	require.NoError(t, err)
	require.NoError(t, Prove(NewTranscript("shared"), rnd, prover))

	verifier, err := NewKnowledgeVerifier(stmt, prover.Proof())
	require.NoError(t, err)
	require.NoError(t, Verify(NewTranscript("shared"), verifier))
}

func TestStatementRejectsInfinityPublicPoint(t *testing.T) {
	gen := group.Gen()
	stmt := NewStatement("bad", NewEquation(secp256k1.NewPointInfinity(), gen.Gg))
	require.Error(t, stmt.Validate())
}

func TestStatementRejectsAllInfinityRow(t *testing.T) {
	stmt := NewStatement("bad", NewEquation(group.Gen().Gg, secp256k1.NewPointInfinity()))
	require.Error(t, stmt.Validate())
}

func orFixture(t *testing.T, rnd group.Random, set bool) ([]*Statement, group.ScalarVector, int) {
	gen := group.Gen()
	r := rnd.Scalar(false)
	var commitment secp256k1.Point
	commitment.Scale(&gen.Gh, &r)
	if set {
		commitment.Add(&commitment, &gen.Gg)
	}
	var shifted secp256k1.Point
	group.Sub(&shifted, &commitment, &gen.Gg)
	statements := []*Statement{
		NewStatement("bit", NewEquation(commitment, gen.Gh)),
		NewStatement("bit", NewEquation(shifted, gen.Gh)),
	}
	known := 0
	if set {
		known = 1
	}
	return statements, group.ScalarVector{r}, known
}

func TestOrProofRoundTrip(t *testing.T) {
	for _, set := range []bool{false, true} {
		rnd := testRandom("or-round-trip")
		statements, witness, known := orFixture(t, rnd, set)

		prover, err := NewOrProver(statements, known, witness)
		require.NoError(t, err)
		require.NoError(t, Prove(NewTranscript("or"), rnd, prover))

		verifier, err := NewOrVerifier(statements, prover.Proof())
		require.NoError(t, err)
		require.NoError(t, Verify(NewTranscript("or"), verifier))
	}
}

func TestOrProofRejectsTampering(t *testing.T) {
	rnd := testRandom("or-tamper")
	statements, witness, known := orFixture(t, rnd, false)

	prover, err := NewOrProver(statements, known, witness)
	require.NoError(t, err)
	require.NoError(t, Prove(NewTranscript("or"), rnd, prover))

	// swap the statements: the ring no longer matches
	swapped := []*Statement{statements[1], statements[0]}
	verifier, err := NewOrVerifier(swapped, prover.Proof())
	require.NoError(t, err)
	require.Error(t, Verify(NewTranscript("or"), verifier))
}

func TestOrProofWitnessIndistinguishable(t *testing.T) {
	// both branches produce ring proofs of the same shape; nothing in
	// the proof shape reveals the known index
	for _, set := range []bool{false, true} {
		rnd := testRandom("or-wi")
		statements, witness, known := orFixture(t, rnd, set)
		prover, err := NewOrProver(statements, known, witness)
		require.NoError(t, err)
		require.NoError(t, Prove(NewTranscript("or"), rnd, prover))
		proof := prover.Proof()
		require.Len(t, proof.Alternatives, 2)
		for i := range proof.Alternatives {
			require.Len(t, proof.Alternatives[i].PublicNonces, 1)
			require.Len(t, proof.Alternatives[i].Responses, 1)
		}
	}
}

func TestSimulatorMatchesVerifier(t *testing.T) {
	rnd := testRandom("simulator")
	stmt, _ := pedersenStatement("sim", rnd)

	e := rnd.Scalar(false)
	responses := []group.ScalarVector{{rnd.Scalar(false), rnd.Scalar(false)}}
	nonces, err := simulate(stmt, &e, responses)
	require.NoError(t, err)

	proof := &Proof{PublicNonces: nonces, Responses: responses}
	require.NoError(t, checkProofShape(stmt, proof))
	require.NoError(t, verifyResponses(stmt, proof, &e))
}

func TestProofSerializationRoundTrip(t *testing.T) {
	rnd := testRandom("serialization")
	stmt, witness := pedersenStatement("wire", rnd)

	prover, err := NewKnowledgeProver(stmt, witness)
	require.NoError(t, err)
	require.NoError(t, Prove(NewTranscript("wire"), rnd, prover))
	proof := prover.Proof()

	buf := make([]byte, proof.SizeHint())
	_, rem, err := proof.Marshal(buf, len(buf))
	require.NoError(t, err)
	require.Zero(t, rem)

	var decoded Proof
	_, _, err = decoded.Unmarshal(buf, len(buf))
	require.NoError(t, err)
	require.Len(t, decoded.Responses, len(proof.Responses))
	require.True(t, decoded.PublicNonces[0].Eq(&proof.PublicNonces[0]))

	verifier, err := NewKnowledgeVerifier(stmt, &decoded)
	require.NoError(t, err)
	require.NoError(t, Verify(NewTranscript("wire"), verifier))
}

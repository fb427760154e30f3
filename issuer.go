package wabisabi

import (
	"strings"
	"sync"

	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/nothingmuch/wabisabi/keys"
	"github.com/nothingmuch/wabisabi/zkp"
)

// CredentialIssuer is the coordinator's half of the protocol: it
// verifies request proofs under its secret key, tracks revealed serial
// numbers across the round, and issues MACs together with a proof of
// correct issuance.
type CredentialIssuer struct {
	sk     *keys.CoordinatorSecretKey
	params *keys.CoordinatorParameters
	rnd    group.Random

	mu      sync.Mutex
	serials map[string]struct{}
}

// NewCredentialIssuer wraps a secret key. A nil randomness source
// selects the OS CSPRNG.
func NewCredentialIssuer(sk *keys.CoordinatorSecretKey, rnd group.Random) *CredentialIssuer {
	if rnd == nil {
		rnd = group.SecureRandom()
	}
	return &CredentialIssuer{
		sk:      sk,
		params:  sk.Parameters(),
		rnd:     rnd,
		serials: make(map[string]struct{}),
	}
}

// Parameters returns the public issuer parameters.
func (iss *CredentialIssuer) Parameters() *keys.CoordinatorParameters {
	return iss.params
}

// HandleZeroRequest verifies and answers a null request.
func (iss *CredentialIssuer) HandleZeroRequest(request *ZeroCredentialsRequest) (*CredentialsResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	transcript := zkp.NewTranscript(registrationLabel(CredentialCount, true))
	verifiers := make([]zkp.Verifier, 0, len(request.Requested))
	for i := range request.Requested {
		v, err := zkp.NewKnowledgeVerifier(openingStatement(&request.Requested[i], true), &request.Proof.Openings[i])
		if err != nil {
			return nil, classifyProofError(err)
		}
		verifiers = append(verifiers, v)
	}
	if err := zkp.Verify(transcript, verifiers...); err != nil {
		return nil, classifyProofError(err)
	}

	return iss.issue(transcript, request.Requested)
}

// HandleRealRequest verifies a real request end to end: presentation
// shows under the secret key, commitment openings, range rings, the
// point identities tying bit commitments to the attribute commitments,
// the balance proof against the declared deltas, and serial-number
// freshness. On success it issues the requested credentials.
func (iss *CredentialIssuer) HandleRealRequest(request *RealCredentialsRequest) (*CredentialsResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if request.DeltaAmount > int64(MaxAmount)*int64(CredentialCount) ||
		request.DeltaAmount < -int64(MaxAmount)*int64(CredentialCount) ||
		request.DeltaVsize > int64(MaxVsize)*int64(CredentialCount) ||
		request.DeltaVsize < -int64(MaxVsize)*int64(CredentialCount) {
		return nil, ErrUnbalancedRequest
	}

	// serial freshness; reserved only after the proofs verify
	fingerprints := make([]string, len(request.Presentations))
	for i := range request.Presentations {
		fp, err := SerialFingerprint(&request.Presentations[i].Serial)
		if err != nil {
			return nil, err
		}
		fingerprints[i] = fp
	}
	iss.mu.Lock()
	for _, fp := range fingerprints {
		if _, spent := iss.serials[fp]; spent {
			iss.mu.Unlock()
			return nil, ErrSerialNumberReused
		}
	}
	iss.mu.Unlock()

	// bit commitments must recombine into the attribute commitments
	for i := range request.Requested {
		sumA := weightedCommitmentSum(request.Requested[i].BitCommitmentsA)
		sumV := weightedCommitmentSum(request.Requested[i].BitCommitmentsV)
		if !sumA.Eq(&request.Requested[i].Ma) || !sumV.Eq(&request.Requested[i].Mv) {
			return nil, errors.WrapPrefix(ErrInvalidRangeProof, "bit recombination", 0)
		}
	}

	transcript := zkp.NewTranscript(registrationLabel(CredentialCount, false))
	var verifiers []zkp.Verifier

	for i := range request.Presentations {
		p := &request.Presentations[i]
		z := keys.RecomputeZ(iss.sk, &p.CV, &p.Cx0, &p.Cx1, &p.Ca, &p.Cs, &p.Cv)
		if z.IsInfinity() {
			return nil, ErrInvalidShowProof
		}
		v, err := zkp.NewKnowledgeVerifier(showStatement(iss.params, p, z), &request.Proof.Shows[i])
		if err != nil {
			return nil, classifyProofError(err)
		}
		verifiers = append(verifiers, v)
	}

	for i := range request.Requested {
		v, err := zkp.NewKnowledgeVerifier(openingStatement(&request.Requested[i], false), &request.Proof.Openings[i])
		if err != nil {
			return nil, classifyProofError(err)
		}
		verifiers = append(verifiers, v)
		for j := range request.Requested[i].BitCommitmentsA {
			ov, err := zkp.NewOrVerifier(bitStatements(&request.Requested[i].BitCommitmentsA[j]), &request.Proof.RangeA[i][j])
			if err != nil {
				return nil, classifyProofError(err)
			}
			verifiers = append(verifiers, ov)
		}
		for j := range request.Requested[i].BitCommitmentsV {
			ov, err := zkp.NewOrVerifier(bitStatements(&request.Requested[i].BitCommitmentsV[j]), &request.Proof.RangeV[i][j])
			if err != nil {
				return nil, classifyProofError(err)
			}
			verifiers = append(verifiers, ov)
		}
	}

	ba, bv := balancePoints(request.Presentations, request.Requested, request.DeltaAmount, request.DeltaVsize)
	bverifier, err := zkp.NewKnowledgeVerifier(balanceStatement(ba, bv), request.Proof.Balance)
	if err != nil {
		return nil, classifyProofError(err)
	}
	verifiers = append(verifiers, bverifier)

	if err := zkp.Verify(transcript, verifiers...); err != nil {
		return nil, classifyProofError(err)
	}

	// reserve the serials now that the request is known valid
	iss.mu.Lock()
	for _, fp := range fingerprints {
		if _, spent := iss.serials[fp]; spent {
			iss.mu.Unlock()
			return nil, ErrSerialNumberReused
		}
	}
	for _, fp := range fingerprints {
		iss.serials[fp] = struct{}{}
	}
	iss.mu.Unlock()

	return iss.issue(transcript, request.Requested)
}

// issue MACs the requested commitments and proves correct issuance on
// the continued transcript.
func (iss *CredentialIssuer) issue(transcript *zkp.Transcript, requested []CredentialRequest) (*CredentialsResponse, error) {
	macs := make([]keys.MAC, len(requested))
	for i := range requested {
		mac, err := keys.RandomMAC(iss.sk, &requested[i].Ma, &requested[i].Ms, &requested[i].Mv, iss.rnd)
		if err != nil {
			return nil, err
		}
		macs[i] = mac
	}

	prover, err := zkp.NewKnowledgeProver(issuanceStatement(iss.params, requested, macs), iss.sk.WitnessVector())
	if err != nil {
		return nil, err
	}
	if err := zkp.Prove(transcript, iss.rnd, prover); err != nil {
		return nil, err
	}

	Logger.WithField("count", len(macs)).Trace("issued credentials")
	return &CredentialsResponse{Issued: macs, Proof: *prover.Proof()}, nil
}

// classifyProofError maps a zkp failure onto the protocol error kind
// of the relation that failed, using the statement tag carried in the
// error chain.
func classifyProofError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "show"):
		return errors.WrapPrefix(ErrInvalidShowProof, msg, 0)
	case strings.Contains(msg, "range-bit"):
		return errors.WrapPrefix(ErrInvalidRangeProof, msg, 0)
	case strings.Contains(msg, "balance"):
		return errors.WrapPrefix(ErrInvalidBalanceProof, msg, 0)
	case strings.Contains(msg, "opening"), strings.Contains(msg, "issuance"):
		return errors.WrapPrefix(ErrInvalidIssuanceProof, msg, 0)
	default:
		return errors.WrapPrefix(ErrInvalidIssuanceProof, msg, 0)
	}
}

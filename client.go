package wabisabi

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/nothingmuch/wabisabi/keys"
	"github.com/nothingmuch/wabisabi/zkp"
	"github.com/renproject/secp256k1"
)

// AttributeValues is the (amount, vsize) pair of one credential to
// request.
type AttributeValues struct {
	Amount uint64
	Vsize  uint64
}

// CredentialClient builds credential requests against one
// coordinator's issuer parameters and verifies its responses.
type CredentialClient struct {
	params *keys.CoordinatorParameters
	rnd    group.Random
}

// NewCredentialClient returns a client for the given issuer
// parameters. A nil randomness source selects the OS CSPRNG.
func NewCredentialClient(params *keys.CoordinatorParameters, rnd group.Random) (*CredentialClient, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = group.SecureRandom()
	}
	return &CredentialClient{params: params, rnd: rnd}, nil
}

// CreateRequestForZeroAmount builds the null request bootstrapping a
// registration: k zero-valued credentials, proven zero by statement
// structure rather than by range proofs.
func (c *CredentialClient) CreateRequestForZeroAmount() (*ZeroCredentialsRequest, *RegistrationValidationData, error) {
	transcript := zkp.NewTranscript(registrationLabel(CredentialCount, true))

	requested := make([]*requestedCredential, CredentialCount)
	provers := make([]zkp.Prover, 0, CredentialCount)
	for i := range requested {
		rc, err := newRequestedCredential(0, 0, true, c.rnd)
		if err != nil {
			return nil, nil, err
		}
		requested[i] = rc
	}
	wire := wireRequests(requested)
	for i := range requested {
		p, err := zkp.NewKnowledgeProver(openingStatement(&wire[i], true), requested[i].openingWitness(true))
		if err != nil {
			return nil, nil, err
		}
		provers = append(provers, p)
	}

	if err := zkp.Prove(transcript, c.rnd, provers...); err != nil {
		return nil, nil, err
	}

	request := &ZeroCredentialsRequest{Requested: wire}
	for _, p := range provers {
		request.Proof.Openings = append(request.Proof.Openings, *p.(*zkp.KnowledgeProver).Proof())
	}
	Logger.WithField("k", CredentialCount).Trace("built zero credentials request")
	return request, &RegistrationValidationData{transcript: transcript, requested: requested, isNull: true}, nil
}

// CreateRequest builds a real credentials request: it presents the
// given credentials, requests credentials for the given attribute
// values (padded with zeros to the protocol multiplicity), range-
// proves every requested attribute, and binds the declared deltas with
// a balance proof.
func (c *CredentialClient) CreateRequest(toRequest []AttributeValues, toPresent []*Credential) (*RealCredentialsRequest, *RegistrationValidationData, error) {
	if len(toRequest) > CredentialCount {
		return nil, nil, errors.WrapPrefix(ErrIssuedCredentialNumberMismatch,
			"more credentials requested than the protocol multiplicity", 0)
	}
	if len(toPresent) != CredentialCount {
		return nil, nil, errors.WrapPrefix(ErrIssuedCredentialNumberMismatch,
			"a real request presents exactly k credentials", 0)
	}
	for len(toRequest) < CredentialCount {
		toRequest = append(toRequest, AttributeValues{})
	}

	seen := map[string]struct{}{}
	for _, cred := range toPresent {
		fp, err := cred.Fingerprint()
		if err != nil {
			return nil, nil, err
		}
		if _, dup := seen[fp]; dup {
			return nil, nil, ErrCredentialToPresentDuplicated
		}
		seen[fp] = struct{}{}
	}

	transcript := zkp.NewTranscript(registrationLabel(CredentialCount, false))
	var provers []zkp.Prover

	// presentations and their show proofs
	presented := make([]*presentedCredential, len(toPresent))
	presentations := make([]Presentation, len(toPresent))
	for i, cred := range toPresent {
		pc := present(cred, c.rnd)
		presented[i] = pc
		presentations[i] = pc.presentation
		stmt := showStatement(c.params, &pc.presentation, pc.showZ(c.params))
		p, err := zkp.NewKnowledgeProver(stmt, pc.showWitness())
		if err != nil {
			return nil, nil, err
		}
		provers = append(provers, p)
	}

	// requested credentials: openings and range bits
	requested := make([]*requestedCredential, CredentialCount)
	for i := range requested {
		rc, err := newRequestedCredential(toRequest[i].Amount, toRequest[i].Vsize, false, c.rnd)
		if err != nil {
			return nil, nil, err
		}
		requested[i] = rc
	}
	wire := wireRequests(requested)

	openingProvers := make([]*zkp.KnowledgeProver, CredentialCount)
	bitProversA := make([][]*zkp.OrProver, CredentialCount)
	bitProversV := make([][]*zkp.OrProver, CredentialCount)
	for i := range requested {
		p, err := zkp.NewKnowledgeProver(openingStatement(&wire[i], false), requested[i].openingWitness(false))
		if err != nil {
			return nil, nil, err
		}
		openingProvers[i] = p
		provers = append(provers, p)
		for j := range requested[i].bitsA {
			bp, err := requested[i].bitsA[j].prover()
			if err != nil {
				return nil, nil, err
			}
			bitProversA[i] = append(bitProversA[i], bp)
			provers = append(provers, bp)
		}
		for j := range requested[i].bitsV {
			bp, err := requested[i].bitsV[j].prover()
			if err != nil {
				return nil, nil, err
			}
			bitProversV[i] = append(bitProversV[i], bp)
			provers = append(provers, bp)
		}
	}

	// balance proof over the declared deltas
	deltaAmount, deltaVsize := declaredDeltas(toPresent, toRequest)
	ba, bv := balancePoints(presentations, wire, deltaAmount, deltaVsize)
	balanceProver, err := zkp.NewKnowledgeProver(
		balanceStatement(ba, bv),
		balanceWitness(presented, requested),
	)
	if err != nil {
		return nil, nil, errors.WrapPrefix(err, "balance", 0)
	}
	provers = append(provers, balanceProver)

	if err := zkp.Prove(transcript, c.rnd, provers...); err != nil {
		return nil, nil, err
	}

	request := &RealCredentialsRequest{
		DeltaAmount:   deltaAmount,
		DeltaVsize:    deltaVsize,
		Presentations: presentations,
		Requested:     wire,
	}
	for i := range presented {
		request.Proof.Shows = append(request.Proof.Shows, *provers[i].(*zkp.KnowledgeProver).Proof())
	}
	for i := range requested {
		request.Proof.Openings = append(request.Proof.Openings, *openingProvers[i].Proof())
		ringsA := make([]zkp.OrProof, 0, AmountBitWidth)
		for _, bp := range bitProversA[i] {
			ringsA = append(ringsA, *bp.Proof())
		}
		request.Proof.RangeA = append(request.Proof.RangeA, ringsA)
		ringsV := make([]zkp.OrProof, 0, VsizeBitWidth)
		for _, bp := range bitProversV[i] {
			ringsV = append(ringsV, *bp.Proof())
		}
		request.Proof.RangeV = append(request.Proof.RangeV, ringsV)
	}
	request.Proof.Balance = balanceProver.Proof()

	Logger.WithField("deltaAmount", deltaAmount).WithField("deltaVsize", deltaVsize).
		Trace("built real credentials request")
	return request, &RegistrationValidationData{transcript: transcript, requested: requested}, nil
}

// declaredDeltas computes the publicly declared in-minus-out balance.
func declaredDeltas(toPresent []*Credential, toRequest []AttributeValues) (int64, int64) {
	var inA, inV, outA, outV int64
	for _, c := range toPresent {
		inA += int64(c.Amount)
		inV += int64(c.Vsize)
	}
	for _, r := range toRequest {
		outA += int64(r.Amount)
		outV += int64(r.Vsize)
	}
	return inA - outA, inV - outV
}

// balanceWitness is (sum z, sum ra_in - sum ra_out, sum rv_in - sum
// rv_out), matching balanceStatement.
func balanceWitness(presented []*presentedCredential, requested []*requestedCredential) group.ScalarVector {
	var zSum, dRa, dRv secp256k1.Fn
	for _, pc := range presented {
		zSum.Add(&zSum, &pc.z)
		dRa.Add(&dRa, &pc.credential.Ra)
		dRv.Add(&dRv, &pc.credential.Rv)
	}
	var neg secp256k1.Fn
	for _, rc := range requested {
		neg.Negate(&rc.ra)
		dRa.Add(&dRa, &neg)
		neg.Negate(&rc.rv)
		dRv.Add(&dRv, &neg)
	}
	return group.ScalarVector{zSum, dRa, dRv}
}

// HandleResponse verifies the issuance proof on the request's
// transcript and materializes the issued credentials.
func (c *CredentialClient) HandleResponse(response *CredentialsResponse, validation *RegistrationValidationData) ([]*Credential, error) {
	if validation == nil || validation.transcript == nil {
		return nil, errors.Errorf("validation state missing or already consumed")
	}
	if len(response.Issued) != CredentialCount || len(response.Issued) != len(validation.requested) {
		return nil, ErrIssuedCredentialNumberMismatch
	}

	wire := wireRequests(validation.requested)
	stmt := issuanceStatement(c.params, wire, response.Issued)
	verifier, err := zkp.NewKnowledgeVerifier(stmt, &response.Proof)
	if err != nil {
		return nil, errors.WrapPrefix(ErrInvalidIssuanceProof, err.Error(), 0)
	}
	if err := zkp.Verify(validation.transcript, verifier); err != nil {
		return nil, errors.WrapPrefix(ErrInvalidIssuanceProof, err.Error(), 0)
	}
	validation.transcript = nil // single use

	credentials := make([]*Credential, len(response.Issued))
	for i, rc := range validation.requested {
		credentials[i] = &Credential{
			Amount: rc.amount,
			Vsize:  rc.vsize,
			Serial: rc.serial,
			Ra:     rc.ra,
			Rs:     rc.rs,
			Rv:     rc.rv,
			Mac:    response.Issued[i],
		}
	}
	Logger.WithField("count", len(credentials)).Trace("credentials issued")
	return credentials, nil
}

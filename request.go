package wabisabi

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/nothingmuch/wabisabi/keys"
	"github.com/nothingmuch/wabisabi/zkp"
	"github.com/renproject/secp256k1"
	"github.com/renproject/surge"
)

// CredentialRequest is one requested credential on the wire: the
// attribute commitment triple and, for non-null requests, the bit
// commitments backing the two range proofs.
type CredentialRequest struct {
	Ma secp256k1.Point
	Ms secp256k1.Point
	Mv secp256k1.Point

	BitCommitmentsA group.GroupElementVector
	BitCommitmentsV group.GroupElementVector
}

// RequestProof is the compound proof of a credentials request. Its
// shape mirrors the statement tree: one show proof per presented
// credential, one opening proof per requested credential, one
// disjunction ring per bit commitment, and a single balance proof for
// non-null requests.
type RequestProof struct {
	Shows    []zkp.Proof
	Openings []zkp.Proof
	RangeA   [][]zkp.OrProof
	RangeV   [][]zkp.OrProof
	Balance  *zkp.Proof
}

// ZeroCredentialsRequest asks for k zero-valued credentials. It
// presents nothing and needs no range or balance proofs.
type ZeroCredentialsRequest struct {
	Requested []CredentialRequest
	Proof     RequestProof
}

// RealCredentialsRequest presents k credentials and asks for k new
// ones, declaring the publicly spendable deltas (in minus out).
type RealCredentialsRequest struct {
	DeltaAmount int64
	DeltaVsize  int64

	Presentations []Presentation
	Requested     []CredentialRequest
	Proof         RequestProof
}

// CredentialsResponse carries the issued MACs and the issuance proof,
// which continues the request's transcript.
type CredentialsResponse struct {
	Issued []keys.MAC
	Proof  zkp.Proof
}

// RegistrationValidationData is the client's half-open state between
// sending a request and handling its response: the live transcript and
// the secrets of the requested credentials.
type RegistrationValidationData struct {
	transcript *zkp.Transcript
	requested  []*requestedCredential
	isNull     bool
}

// wireRequests converts requested credentials to their wire form.
func wireRequests(requested []*requestedCredential) []CredentialRequest {
	out := make([]CredentialRequest, len(requested))
	for i, rc := range requested {
		cr := CredentialRequest{Ma: rc.ma, Ms: rc.ms, Mv: rc.mv}
		for j := range rc.bitsA {
			cr.BitCommitmentsA = append(cr.BitCommitmentsA, rc.bitsA[j].commitment)
		}
		for j := range rc.bitsV {
			cr.BitCommitmentsV = append(cr.BitCommitmentsV, rc.bitsV[j].commitment)
		}
		out[i] = cr
	}
	return out
}

// Validate checks a wire request's structural shape against the
// protocol parameters before any proof is touched.
func (r *RealCredentialsRequest) Validate() error {
	if len(r.Presentations) != CredentialCount || len(r.Requested) != CredentialCount {
		return errors.WrapPrefix(ErrIssuedCredentialNumberMismatch, "real request", 0)
	}
	if len(r.Proof.Shows) != CredentialCount || len(r.Proof.Openings) != CredentialCount {
		return errors.WrapPrefix(ErrInvalidShowProof, "proof shape", 0)
	}
	if len(r.Proof.RangeA) != CredentialCount || len(r.Proof.RangeV) != CredentialCount || r.Proof.Balance == nil {
		return errors.WrapPrefix(ErrInvalidRangeProof, "proof shape", 0)
	}
	for i := range r.Requested {
		if len(r.Requested[i].BitCommitmentsA) != AmountBitWidth ||
			len(r.Requested[i].BitCommitmentsV) != VsizeBitWidth {
			return errors.WrapPrefix(ErrInvalidRangeProof, "bit commitment count", 0)
		}
		if len(r.Proof.RangeA[i]) != AmountBitWidth || len(r.Proof.RangeV[i]) != VsizeBitWidth {
			return errors.WrapPrefix(ErrInvalidRangeProof, "ring count", 0)
		}
	}
	return nil
}

// Validate checks a zero request's shape.
func (r *ZeroCredentialsRequest) Validate() error {
	if len(r.Requested) != CredentialCount {
		return errors.WrapPrefix(ErrIssuedCredentialNumberMismatch, "zero request", 0)
	}
	if len(r.Proof.Openings) != CredentialCount || len(r.Proof.Shows) != 0 ||
		len(r.Proof.RangeA) != 0 || len(r.Proof.RangeV) != 0 || r.Proof.Balance != nil {
		return errors.WrapPrefix(ErrInvalidIssuanceProof, "proof shape", 0)
	}
	for i := range r.Requested {
		if len(r.Requested[i].BitCommitmentsA) != 0 || len(r.Requested[i].BitCommitmentsV) != 0 {
			return errors.WrapPrefix(ErrInvalidRangeProof, "zero request carries bit commitments", 0)
		}
	}
	return nil
}

// --- surge encoding ---

func marshalPoints(ps group.GroupElementVector, buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.MarshalU32(uint32(len(ps)), buf, rem)
	if err != nil {
		return buf, rem, err
	}
	for i := range ps {
		if buf, rem, err = ps[i].Marshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return buf, rem, nil
}

func unmarshalPoints(ps *group.GroupElementVector, buf []byte, rem int) ([]byte, int, error) {
	var n uint32
	buf, rem, err := surge.UnmarshalU32(&n, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/group.PointSize {
		return buf, rem, surge.ErrLengthOverflow
	}
	*ps = make(group.GroupElementVector, n)
	for i := range *ps {
		if buf, rem, err = (*ps)[i].Unmarshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return buf, rem, nil
}

// SizeHint implements the surge.SizeHinter interface.
func (r CredentialRequest) SizeHint() int {
	return 3*group.PointSize +
		2*surge.SizeHint(uint32(0)) +
		(len(r.BitCommitmentsA)+len(r.BitCommitmentsV))*group.PointSize
}

// Marshal implements the surge.Marshaler interface.
func (r CredentialRequest) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := r.Ma.Marshal(buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if buf, rem, err = r.Ms.Marshal(buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = r.Mv.Marshal(buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = marshalPoints(r.BitCommitmentsA, buf, rem); err != nil {
		return buf, rem, err
	}
	return marshalPoints(r.BitCommitmentsV, buf, rem)
}

// Unmarshal implements the surge.Unmarshaler interface.
func (r *CredentialRequest) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := r.Ma.Unmarshal(buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if buf, rem, err = r.Ms.Unmarshal(buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = r.Mv.Unmarshal(buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = unmarshalPoints(&r.BitCommitmentsA, buf, rem); err != nil {
		return buf, rem, err
	}
	return unmarshalPoints(&r.BitCommitmentsV, buf, rem)
}

// SizeHint implements the surge.SizeHinter interface.
func (p Presentation) SizeHint() int {
	return 6*group.PointSize + group.ScalarSize
}

// Marshal implements the surge.Marshaler interface.
func (p Presentation) Marshal(buf []byte, rem int) ([]byte, int, error) {
	points := []secp256k1.Point{p.Ca, p.Cs, p.Cv, p.Cx0, p.Cx1, p.CV}
	var err error
	for i := range points {
		if buf, rem, err = points[i].Marshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return p.Serial.Marshal(buf, rem)
}

// Unmarshal implements the surge.Unmarshaler interface.
func (p *Presentation) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	points := []*secp256k1.Point{&p.Ca, &p.Cs, &p.Cv, &p.Cx0, &p.Cx1, &p.CV}
	var err error
	for i := range points {
		if buf, rem, err = points[i].Unmarshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return p.Serial.Unmarshal(buf, rem)
}

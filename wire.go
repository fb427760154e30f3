package wabisabi

import (
	"github.com/nothingmuch/wabisabi/keys"
	"github.com/nothingmuch/wabisabi/zkp"
	"github.com/renproject/surge"
)

// surge encodings of the credential wire messages. Length prefixes are
// 32-bit big-endian; points are 33 bytes, scalars 32.

func marshalProofs(ps []zkp.Proof, buf []byte, rem int) ([]byte, int, error) {
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

func unmarshalProofs(ps *[]zkp.Proof, buf []byte, rem int) ([]byte, int, error) {
	var n uint32
	buf, rem, err := surge.UnmarshalU32(&n, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/8 {
		return buf, rem, surge.ErrLengthOverflow
	}
	*ps = make([]zkp.Proof, n)
	for i := range *ps {
		if buf, rem, err = (*ps)[i].Unmarshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return buf, rem, nil
}

func marshalRings(rings [][]zkp.OrProof, buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.MarshalU32(uint32(len(rings)), buf, rem)
	if err != nil {
		return buf, rem, err
	}
	for i := range rings {
		if buf, rem, err = surge.MarshalU32(uint32(len(rings[i])), buf, rem); err != nil {
			return buf, rem, err
		}
		for j := range rings[i] {
			if buf, rem, err = rings[i][j].Marshal(buf, rem); err != nil {
				return buf, rem, err
			}
		}
	}
	return buf, rem, nil
}

func unmarshalRings(rings *[][]zkp.OrProof, buf []byte, rem int) ([]byte, int, error) {
	var n uint32
	buf, rem, err := surge.UnmarshalU32(&n, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/8 {
		return buf, rem, surge.ErrLengthOverflow
	}
	*rings = make([][]zkp.OrProof, n)
	for i := range *rings {
		var m uint32
		if buf, rem, err = surge.UnmarshalU32(&m, buf, rem); err != nil {
			return buf, rem, err
		}
		if int(m) > surge.MaxBytes/8 {
			return buf, rem, surge.ErrLengthOverflow
		}
		(*rings)[i] = make([]zkp.OrProof, m)
		for j := range (*rings)[i] {
			if buf, rem, err = (*rings)[i][j].Unmarshal(buf, rem); err != nil {
				return buf, rem, err
			}
		}
	}
	return buf, rem, nil
}

// SizeHint implements the surge.SizeHinter interface.
func (p RequestProof) SizeHint() int {
	size := 5 * surge.SizeHint(uint32(0))
	for i := range p.Shows {
		size += p.Shows[i].SizeHint()
	}
	for i := range p.Openings {
		size += p.Openings[i].SizeHint()
	}
	for i := range p.RangeA {
		size += surge.SizeHint(uint32(0))
		for j := range p.RangeA[i] {
			size += p.RangeA[i][j].SizeHint()
		}
	}
	for i := range p.RangeV {
		size += surge.SizeHint(uint32(0))
		for j := range p.RangeV[i] {
			size += p.RangeV[i][j].SizeHint()
		}
	}
	if p.Balance != nil {
		size += p.Balance.SizeHint()
	}
	return size
}

// Marshal implements the surge.Marshaler interface.
func (p RequestProof) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := marshalProofs(p.Shows, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if buf, rem, err = marshalProofs(p.Openings, buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = marshalRings(p.RangeA, buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = marshalRings(p.RangeV, buf, rem); err != nil {
		return buf, rem, err
	}
	hasBalance := uint32(0)
	if p.Balance != nil {
		hasBalance = 1
	}
	if buf, rem, err = surge.MarshalU32(hasBalance, buf, rem); err != nil {
		return buf, rem, err
	}
	if p.Balance != nil {
		return p.Balance.Marshal(buf, rem)
	}
	return buf, rem, nil
}

// Unmarshal implements the surge.Unmarshaler interface.
func (p *RequestProof) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := unmarshalProofs(&p.Shows, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if buf, rem, err = unmarshalProofs(&p.Openings, buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = unmarshalRings(&p.RangeA, buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = unmarshalRings(&p.RangeV, buf, rem); err != nil {
		return buf, rem, err
	}
	var hasBalance uint32
	if buf, rem, err = surge.UnmarshalU32(&hasBalance, buf, rem); err != nil {
		return buf, rem, err
	}
	if hasBalance != 0 {
		p.Balance = new(zkp.Proof)
		return p.Balance.Unmarshal(buf, rem)
	}
	p.Balance = nil
	return buf, rem, nil
}

// SizeHint implements the surge.SizeHinter interface.
func (r ZeroCredentialsRequest) SizeHint() int {
	size := surge.SizeHint(uint32(0)) + r.Proof.SizeHint()
	for i := range r.Requested {
		size += r.Requested[i].SizeHint()
	}
	return size
}

// Marshal implements the surge.Marshaler interface.
func (r ZeroCredentialsRequest) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.MarshalU32(uint32(len(r.Requested)), buf, rem)
	if err != nil {
		return buf, rem, err
	}
	for i := range r.Requested {
		if buf, rem, err = r.Requested[i].Marshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return r.Proof.Marshal(buf, rem)
}

// Unmarshal implements the surge.Unmarshaler interface.
func (r *ZeroCredentialsRequest) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	var n uint32
	buf, rem, err := surge.UnmarshalU32(&n, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/8 {
		return buf, rem, surge.ErrLengthOverflow
	}
	r.Requested = make([]CredentialRequest, n)
	for i := range r.Requested {
		if buf, rem, err = r.Requested[i].Unmarshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return r.Proof.Unmarshal(buf, rem)
}

// SizeHint implements the surge.SizeHinter interface.
func (r RealCredentialsRequest) SizeHint() int {
	size := 2*surge.SizeHint(int64(0)) + 2*surge.SizeHint(uint32(0)) + r.Proof.SizeHint()
	for i := range r.Presentations {
		size += r.Presentations[i].SizeHint()
	}
	for i := range r.Requested {
		size += r.Requested[i].SizeHint()
	}
	return size
}

// Marshal implements the surge.Marshaler interface.
func (r RealCredentialsRequest) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.MarshalI64(r.DeltaAmount, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if buf, rem, err = surge.MarshalI64(r.DeltaVsize, buf, rem); err != nil {
		return buf, rem, err
	}
	if buf, rem, err = surge.MarshalU32(uint32(len(r.Presentations)), buf, rem); err != nil {
		return buf, rem, err
	}
	for i := range r.Presentations {
		if buf, rem, err = r.Presentations[i].Marshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	if buf, rem, err = surge.MarshalU32(uint32(len(r.Requested)), buf, rem); err != nil {
		return buf, rem, err
	}
	for i := range r.Requested {
		if buf, rem, err = r.Requested[i].Marshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return r.Proof.Marshal(buf, rem)
}

// Unmarshal implements the surge.Unmarshaler interface.
func (r *RealCredentialsRequest) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.UnmarshalI64(&r.DeltaAmount, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if buf, rem, err = surge.UnmarshalI64(&r.DeltaVsize, buf, rem); err != nil {
		return buf, rem, err
	}
	var n uint32
	if buf, rem, err = surge.UnmarshalU32(&n, buf, rem); err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/8 {
		return buf, rem, surge.ErrLengthOverflow
	}
	r.Presentations = make([]Presentation, n)
	for i := range r.Presentations {
		if buf, rem, err = r.Presentations[i].Unmarshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	if buf, rem, err = surge.UnmarshalU32(&n, buf, rem); err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/8 {
		return buf, rem, surge.ErrLengthOverflow
	}
	r.Requested = make([]CredentialRequest, n)
	for i := range r.Requested {
		if buf, rem, err = r.Requested[i].Unmarshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return r.Proof.Unmarshal(buf, rem)
}

// SizeHint implements the surge.SizeHinter interface.
func (r CredentialsResponse) SizeHint() int {
	size := surge.SizeHint(uint32(0)) + r.Proof.SizeHint()
	for i := range r.Issued {
		size += r.Issued[i].SizeHint()
	}
	return size
}

// Marshal implements the surge.Marshaler interface.
func (r CredentialsResponse) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.MarshalU32(uint32(len(r.Issued)), buf, rem)
	if err != nil {
		return buf, rem, err
	}
	for i := range r.Issued {
		if buf, rem, err = r.Issued[i].Marshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return r.Proof.Marshal(buf, rem)
}

// Unmarshal implements the surge.Unmarshaler interface.
func (r *CredentialsResponse) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	var n uint32
	buf, rem, err := surge.UnmarshalU32(&n, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/8 {
		return buf, rem, surge.ErrLengthOverflow
	}
	r.Issued = make([]keys.MAC, n)
	for i := range r.Issued {
		if buf, rem, err = r.Issued[i].Unmarshal(buf, rem); err != nil {
			return buf, rem, err
		}
	}
	return r.Proof.Unmarshal(buf, rem)
}

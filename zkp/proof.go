package zkp

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/surge"
)

// Proof is a leaf proof for one linear-relation statement: one public
// nonce per equation, and per equation a response vector matching the
// witness length.
type Proof struct {
	PublicNonces group.GroupElementVector
	Responses    []group.ScalarVector
}

// OrProof is the ring of per-alternative leaf proofs of a disjunction,
// in canonical statement order.
type OrProof struct {
	Alternatives []Proof
}

// SizeHint implements the surge.SizeHinter interface.
func (p Proof) SizeHint() int {
	size := surge.SizeHint(uint32(0)) * 2
	size += len(p.PublicNonces) * group.PointSize
	for i := range p.Responses {
		size += surge.SizeHint(uint32(0)) + len(p.Responses[i])*group.ScalarSize
	}
	return size
}

// Marshal implements the surge.Marshaler interface.
func (p Proof) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.MarshalU32(uint32(len(p.PublicNonces)), buf, rem)
	if err != nil {
		return buf, rem, err
	}
	for i := range p.PublicNonces {
		buf, rem, err = p.PublicNonces[i].Marshal(buf, rem)
		if err != nil {
			return buf, rem, errors.WrapPrefix(err, "marshaling public nonce", 0)
		}
	}
	buf, rem, err = surge.MarshalU32(uint32(len(p.Responses)), buf, rem)
	if err != nil {
		return buf, rem, err
	}
	for i := range p.Responses {
		buf, rem, err = surge.MarshalU32(uint32(len(p.Responses[i])), buf, rem)
		if err != nil {
			return buf, rem, err
		}
		for j := range p.Responses[i] {
			buf, rem, err = p.Responses[i][j].Marshal(buf, rem)
			if err != nil {
				return buf, rem, errors.WrapPrefix(err, "marshaling response", 0)
			}
		}
	}
	return buf, rem, nil
}

// Unmarshal implements the surge.Unmarshaler interface.
func (p *Proof) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	var n uint32
	buf, rem, err := surge.UnmarshalU32(&n, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/group.PointSize {
		return buf, rem, surge.ErrLengthOverflow
	}
	p.PublicNonces = make(group.GroupElementVector, n)
	for i := range p.PublicNonces {
		buf, rem, err = p.PublicNonces[i].Unmarshal(buf, rem)
		if err != nil {
			return buf, rem, errors.WrapPrefix(err, "unmarshaling public nonce", 0)
		}
	}
	buf, rem, err = surge.UnmarshalU32(&n, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/group.ScalarSize {
		return buf, rem, surge.ErrLengthOverflow
	}
	p.Responses = make([]group.ScalarVector, n)
	for i := range p.Responses {
		var m uint32
		buf, rem, err = surge.UnmarshalU32(&m, buf, rem)
		if err != nil {
			return buf, rem, err
		}
		if int(m) > surge.MaxBytes/group.ScalarSize {
			return buf, rem, surge.ErrLengthOverflow
		}
		p.Responses[i] = make(group.ScalarVector, m)
		for j := range p.Responses[i] {
			buf, rem, err = p.Responses[i][j].Unmarshal(buf, rem)
			if err != nil {
				return buf, rem, errors.WrapPrefix(err, "unmarshaling response", 0)
			}
		}
	}
	return buf, rem, nil
}

// SizeHint implements the surge.SizeHinter interface.
func (p OrProof) SizeHint() int {
	size := surge.SizeHint(uint32(0))
	for i := range p.Alternatives {
		size += p.Alternatives[i].SizeHint()
	}
	return size
}

// Marshal implements the surge.Marshaler interface.
func (p OrProof) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.MarshalU32(uint32(len(p.Alternatives)), buf, rem)
	if err != nil {
		return buf, rem, err
	}
	for i := range p.Alternatives {
		buf, rem, err = p.Alternatives[i].Marshal(buf, rem)
		if err != nil {
			return buf, rem, err
		}
	}
	return buf, rem, nil
}

// Unmarshal implements the surge.Unmarshaler interface.
func (p *OrProof) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	var n uint32
	buf, rem, err := surge.UnmarshalU32(&n, buf, rem)
	if err != nil {
		return buf, rem, err
	}
	if int(n) > surge.MaxBytes/group.PointSize {
		return buf, rem, surge.ErrLengthOverflow
	}
	p.Alternatives = make([]Proof, n)
	for i := range p.Alternatives {
		buf, rem, err = p.Alternatives[i].Unmarshal(buf, rem)
		if err != nil {
			return buf, rem, err
		}
	}
	return buf, rem, nil
}

package wabisabi

import (
	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/cbor"
	"github.com/renproject/surge"
)

// Composite request envelopes. The crypto payloads (credential
// requests and responses) travel as surge-encoded byte strings inside
// deterministic CBOR envelopes, so the envelope layer never needs to
// understand group elements.

// RoundID identifies one mixing round.
type RoundID [32]byte

// AliceID identifies one registered input within a round.
type AliceID [32]byte

// InputRegistration registers an input and asks for the initial
// zero-valued credentials.
type InputRegistration struct {
	RoundID  RoundID `cbor:"roundId"`
	OutPoint []byte  `cbor:"outPoint"`
	OwnerSig []byte  `cbor:"ownerSig"`

	ZeroRequest []byte `cbor:"zeroRequest"`
}

// ConnectionConfirmation proves liveness and converts the input's
// value into real credentials.
type ConnectionConfirmation struct {
	RoundID RoundID `cbor:"roundId"`
	AliceID AliceID `cbor:"aliceId"`

	ZeroRequest []byte `cbor:"zeroRequest"`
	RealRequest []byte `cbor:"realRequest"`
}

// Reissuance swaps presented credentials for freshly issued ones.
type Reissuance struct {
	RoundID RoundID `cbor:"roundId"`

	RealRequest []byte `cbor:"realRequest"`
	ZeroRequest []byte `cbor:"zeroRequest"`
}

// OutputRegistration presents credentials covering an output script
// and its vsize cost; it requests nothing back.
type OutputRegistration struct {
	RoundID RoundID `cbor:"roundId"`
	Script  []byte  `cbor:"script"`

	RealRequest []byte `cbor:"realRequest"`
}

// TransactionSignatures delivers one input's witness for the final
// coinjoin transaction.
type TransactionSignatures struct {
	RoundID    RoundID `cbor:"roundId"`
	InputIndex uint32  `cbor:"inputIndex"`
	Witness    []byte  `cbor:"witness"`
}

// CredentialsResponseEnvelope wraps an issuer response.
type CredentialsResponseEnvelope struct {
	RoundID  RoundID `cbor:"roundId"`
	Response []byte  `cbor:"response"`
}

// EncodeEnvelope serializes any envelope deterministically.
func EncodeEnvelope(envelope interface{}) ([]byte, error) {
	data, err := cbor.Marshal(envelope)
	if err != nil {
		return nil, errors.WrapPrefix(err, "encoding envelope", 0)
	}
	return data, nil
}

// DecodeEnvelope parses an envelope into dst.
func DecodeEnvelope(data []byte, dst interface{}) error {
	if err := cbor.Unmarshal(data, dst); err != nil {
		return errors.WrapPrefix(err, "decoding envelope", 0)
	}
	return nil
}

// surgeBytes serializes a surge value to a fresh byte slice.
func surgeBytes(v interface {
	surge.SizeHinter
	surge.Marshaler
}) ([]byte, error) {
	buf := make([]byte, v.SizeHint())
	if _, _, err := v.Marshal(buf, len(buf)); err != nil {
		return nil, errors.WrapPrefix(err, "surge encoding", 0)
	}
	return buf, nil
}

// Bytes returns the canonical encoding of a zero credentials request.
func (r *ZeroCredentialsRequest) Bytes() ([]byte, error) { return surgeBytes(*r) }

// Bytes returns the canonical encoding of a real credentials request.
func (r *RealCredentialsRequest) Bytes() ([]byte, error) { return surgeBytes(*r) }

// Bytes returns the canonical encoding of a credentials response.
func (r *CredentialsResponse) Bytes() ([]byte, error) { return surgeBytes(*r) }

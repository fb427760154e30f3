// Package zkp implements the non-interactive proof system of the
// credential scheme: a generalized Schnorr Σ-protocol for systems of
// linear equations over a shared witness vector, composed by
// conjunction and by witness-indistinguishable disjunction, made
// non-interactive through a cloneable domain-separated transcript.
package zkp

import (
	"encoding/binary"

	"github.com/go-errors/errors"
	"github.com/nothingmuch/wabisabi/group"
	"github.com/renproject/secp256k1"
	"golang.org/x/crypto/sha3"
)

// ProtocolTag is prepended to every transcript's customization string.
const ProtocolTag = "WabiSabi_v1.0"

// Transcript operation labels. Each absorbed item is framed with an
// operation label and a big-endian 32-bit length prefix, standing in
// for the STROBE-128 operations of the reference construction.
const (
	opDomain    = "domain"
	opAD        = "ad"
	opKey       = "key"
	opPRF       = "prf"
	opStatement = "statement"
	opNonces    = "nonce_commitment"
	opChallenge = "challenge"
)

var (
	// ErrInfinityInStatement is returned when a public point or public
	// nonce to be committed is the infinity element.
	ErrInfinityInStatement = errors.Errorf("infinity point committed to transcript")
)

// Transcript is an incremental hash state over cSHAKE128. It absorbs
// statements and public nonces, and produces challenges and synthetic
// secret nonces. Clones are fully independent: forks taken for
// disjunction rings or nonce derivation never disturb the parent.
type Transcript struct {
	h sha3.ShakeHash
}

// NewTranscript creates a transcript bound to the protocol tag and the
// caller's context label, e.g. "UnifiedRegistration/2/false".
func NewTranscript(label string) *Transcript {
	t := &Transcript{h: sha3.NewCShake128(nil, []byte(ProtocolTag))}
	t.absorb(opDomain, []byte(label))
	return t
}

// Clone returns an independent deep copy of the transcript state.
func (t *Transcript) Clone() *Transcript {
	return &Transcript{h: t.h.Clone()}
}

func (t *Transcript) absorb(op string, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(op)))
	_, _ = t.h.Write(n[:])
	_, _ = t.h.Write([]byte(op))
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	_, _ = t.h.Write(n[:])
	_, _ = t.h.Write(data)
}

func (t *Transcript) absorbCount(op string, n int) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(n))
	t.absorb(op, buf[:])
}

// prf absorbs a frame marking the output request, then reads from a
// fork so the main state stays writable. Successive calls produce
// independent outputs because each absorbs a fresh frame first.
func (t *Transcript) prf(n int) []byte {
	t.absorb(opPRF, nil)
	out := make([]byte, n)
	fork := t.h.Clone()
	_, _ = fork.Read(out)
	return out
}

// AddAssociatedData absorbs arbitrary public bytes.
func (t *Transcript) AddAssociatedData(data []byte) {
	t.absorb(opAD, data)
}

// addKey absorbs secret key material. Only ever called on forks used
// for synthetic nonce derivation.
func (t *Transcript) addKey(data []byte) {
	t.absorb(opKey, data)
}

// CommitStatement absorbs a statement: its type tag, the number of
// equations, and for each equation the public point followed by the
// generator row (count-prefixed). Infinity public points are rejected
// before anything is hashed; infinity generators are allowed and hash
// as the all-zero encoding, marking witness components excluded from
// the equation.
func (t *Transcript) CommitStatement(s *Statement) error {
	if err := s.Validate(); err != nil {
		return err
	}
	t.absorb(opStatement, []byte(s.Tag))
	t.absorbCount(opStatement, len(s.Equations))
	for i := range s.Equations {
		eq := &s.Equations[i]
		t.absorb(opAD, group.PointBytes(&eq.Public))
		t.absorbCount(opAD, len(eq.Generators))
		for j := range eq.Generators {
			t.absorb(opAD, group.PointBytes(&eq.Generators[j]))
		}
	}
	return nil
}

// CommitPublicNonces absorbs a count-prefixed sequence of public
// nonces, rejecting infinity.
func (t *Transcript) CommitPublicNonces(nonces group.GroupElementVector) error {
	for i := range nonces {
		if nonces[i].IsInfinity() {
			return ErrInfinityInStatement
		}
	}
	t.absorbCount(opNonces, len(nonces))
	for i := range nonces {
		t.absorb(opAD, group.PointBytes(&nonces[i]))
	}
	return nil
}

// GenerateChallenge derives the challenge scalar from everything
// absorbed so far, reduced modulo the group order.
func (t *Transcript) GenerateChallenge() secp256k1.Fn {
	t.absorb(opChallenge, nil)
	return group.ScalarReduce(t.prf(group.ScalarSize))
}

// GenerateSecretNonces derives one fresh nonzero secret nonce per
// witness element on a fork of the transcript. The nonces depend on
// everything absorbed so far, on the witness itself, and on 32 bytes
// of external randomness; if the randomness source fails silently the
// construction degrades to deterministic nonces, which stay safe
// unless the same witness is proven against an identical prior
// transcript twice.
func (t *Transcript) GenerateSecretNonces(witness group.ScalarVector, rnd group.Random) group.ScalarVector {
	fork := t.Clone()
	for i := range witness {
		fork.addKey(group.ScalarBytes(&witness[i]))
	}
	var seed [32]byte
	rnd.FillBytes(seed[:])
	fork.addKey(seed[:])

	nonces := make(group.ScalarVector, len(witness))
	for i := range nonces {
		for {
			s := group.ScalarReduce(fork.prf(group.ScalarSize))
			if !s.IsZero() {
				nonces[i] = s
				break
			}
		}
	}
	return nonces
}

package group

import (
	"crypto/rand"

	"github.com/renproject/secp256k1"
	"golang.org/x/crypto/sha3"
)

// Random is the randomness source the crypto core consumes. The
// default implementation draws from the operating system CSPRNG; tests
// substitute a deterministic source to get reproducible proofs.
type Random interface {
	// FillBytes fills p with random bytes.
	FillBytes(p []byte)
	// Scalar returns a random scalar, nonzero unless allowZero is set.
	Scalar(allowZero bool) secp256k1.Fn
}

type secureRandom struct{}

// SecureRandom returns the OS-backed randomness source.
func SecureRandom() Random {
	return secureRandom{}
}

func (secureRandom) FillBytes(p []byte) {
	if _, err := rand.Read(p); err != nil {
		panic(err)
	}
}

func (secureRandom) Scalar(allowZero bool) secp256k1.Fn {
	for {
		s := secp256k1.RandomFn()
		if allowZero || !s.IsZero() {
			return s
		}
	}
}

// seededRandom expands a seed through cSHAKE128. Only suitable for
// tests: the stream repeats across processes given the same seed.
type seededRandom struct {
	stream sha3.ShakeHash
}

// SeededRandom returns a deterministic randomness source for tests.
func SeededRandom(seed []byte) Random {
	h := sha3.NewCShake128(nil, []byte("WabiSabi_v1.0/testrng"))
	_, _ = h.Write(seed)
	return &seededRandom{stream: h}
}

func (r *seededRandom) FillBytes(p []byte) {
	_, _ = r.stream.Read(p)
}

func (r *seededRandom) Scalar(allowZero bool) secp256k1.Fn {
	var buf [ScalarSize]byte
	for {
		r.FillBytes(buf[:])
		s := ScalarReduce(buf[:])
		if allowZero || !s.IsZero() {
			return s
		}
	}
}

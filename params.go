package wabisabi

import "strconv"

// Protocol constants. CredentialCount is the credential multiplicity k
// of every request: each request presents exactly k credentials and is
// issued exactly k in return. Nothing below special-cases its value.
const (
	CredentialCount = 2

	// AmountBitWidth bounds amount attributes to [0, 2^51), enough for
	// the total bitcoin supply in satoshis.
	AmountBitWidth = 51

	// VsizeBitWidth bounds vsize attributes to [0, 2^8).
	VsizeBitWidth = 8

	MaxAmount uint64 = 1<<AmountBitWidth - 1
	MaxVsize  uint64 = 1<<VsizeBitWidth - 1
)

// registrationLabel builds the transcript context label for a
// credential registration with multiplicity k.
func registrationLabel(k int, isNull bool) string {
	return "UnifiedRegistration/" + strconv.Itoa(k) + "/" + strconv.FormatBool(isNull)
}

package wabisabi

import "github.com/go-errors/errors"

// Protocol error kinds surfaced by the core. Cryptographic failures
// are fatal to the round; the caller may retry network failures, never
// these.
var (
	ErrCredentialToPresentDuplicated  = errors.Errorf("credential to present duplicated")
	ErrIssuedCredentialNumberMismatch = errors.Errorf("issued credential number mismatch")
	ErrInvalidIssuanceProof           = errors.Errorf("invalid issuance proof")
	ErrInvalidShowProof               = errors.Errorf("invalid show proof")
	ErrInvalidRangeProof              = errors.Errorf("invalid range proof")
	ErrInvalidBalanceProof            = errors.Errorf("invalid balance proof")
	ErrSerialNumberReused             = errors.Errorf("serial number reused")
	ErrAmountOutOfRange               = errors.Errorf("amount out of range")
	ErrUnbalancedRequest              = errors.Errorf("request does not balance")
)

package wabisabi

import (
	"strings"
	"testing"

	"github.com/nothingmuch/wabisabi/group"
	"github.com/nothingmuch/wabisabi/keys"
	"github.com/renproject/secp256k1"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, seed string) (*CredentialIssuer, *CredentialClient) {
	sk := keys.NewCoordinatorSecretKey(group.SeededRandom([]byte(seed + "/issuer")))
	issuer := NewCredentialIssuer(sk, group.SeededRandom([]byte(seed+"/issuer-rng")))
	client, err := NewCredentialClient(issuer.Parameters(), group.SeededRandom([]byte(seed+"/client")))
	require.NoError(t, err)
	return issuer, client
}

// bootstrap runs the null registration and returns the two zero
// credentials.
func bootstrap(t *testing.T, issuer *CredentialIssuer, client *CredentialClient) []*Credential {
	request, validation, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	response, err := issuer.HandleZeroRequest(request)
	require.NoError(t, err)
	credentials, err := client.HandleResponse(response, validation)
	require.NoError(t, err)
	return credentials
}

func TestZeroRequestRoundTrip(t *testing.T) {
	issuer, client := fixture(t, "zero")
	credentials := bootstrap(t, issuer, client)

	require.Len(t, credentials, CredentialCount)
	for _, c := range credentials {
		require.Zero(t, c.Amount)
		require.Zero(t, c.Vsize)
	}
	require.False(t, credentials[0].Ra.Eq(&credentials[1].Ra))
	require.False(t, credentials[0].Serial.Eq(&credentials[1].Serial))
}

func TestRealRequestRoundTrip(t *testing.T) {
	issuer, client := fixture(t, "real")
	zeroes := bootstrap(t, issuer, client)

	// input registration: deposit 1_000_000 sats and a vsize allowance
	request, validation, err := client.CreateRequest(
		[]AttributeValues{{Amount: 1_000_000, Vsize: 200}},
		zeroes,
	)
	require.NoError(t, err)
	require.Equal(t, int64(-1_000_000), request.DeltaAmount)
	require.Equal(t, int64(-200), request.DeltaVsize)

	response, err := issuer.HandleRealRequest(request)
	require.NoError(t, err)
	credentials, err := client.HandleResponse(response, validation)
	require.NoError(t, err)

	require.Len(t, credentials, CredentialCount)
	require.Equal(t, uint64(1_000_000), credentials[0].Amount)
	require.Equal(t, uint64(200), credentials[0].Vsize)
	require.Zero(t, credentials[1].Amount)

	// output registration: spend the credentials publicly
	request, validation, err = client.CreateRequest(nil, credentials)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), request.DeltaAmount)

	response, err = issuer.HandleRealRequest(request)
	require.NoError(t, err)
	_, err = client.HandleResponse(response, validation)
	require.NoError(t, err)
}

func TestReshapeAmounts(t *testing.T) {
	issuer, client := fixture(t, "reshape")
	zeroes := bootstrap(t, issuer, client)

	request, validation, err := client.CreateRequest(
		[]AttributeValues{{Amount: 1_000_000}},
		zeroes,
	)
	require.NoError(t, err)
	response, err := issuer.HandleRealRequest(request)
	require.NoError(t, err)
	funded, err := client.HandleResponse(response, validation)
	require.NoError(t, err)

	// reissue 1_000_000 as 600_000 + 400_000 without a public delta
	request, validation, err = client.CreateRequest(
		[]AttributeValues{{Amount: 600_000}, {Amount: 400_000}},
		funded,
	)
	require.NoError(t, err)
	require.Zero(t, request.DeltaAmount)

	response, err = issuer.HandleRealRequest(request)
	require.NoError(t, err)
	reshaped, err := client.HandleResponse(response, validation)
	require.NoError(t, err)
	require.Equal(t, uint64(600_000), reshaped[0].Amount)
	require.Equal(t, uint64(400_000), reshaped[1].Amount)
}

func TestDuplicatePresentationRejected(t *testing.T) {
	issuer, client := fixture(t, "duplicate")
	zeroes := bootstrap(t, issuer, client)

	_, _, err := client.CreateRequest(nil, []*Credential{zeroes[0], zeroes[0]})
	require.ErrorIs(t, err, ErrCredentialToPresentDuplicated)
	_ = issuer
}

func TestSerialNumberReuseRejected(t *testing.T) {
	issuer, client := fixture(t, "serial-reuse")
	zeroes := bootstrap(t, issuer, client)

	request, validation, err := client.CreateRequest(
		[]AttributeValues{{Amount: 5_000}},
		zeroes,
	)
	require.NoError(t, err)
	response, err := issuer.HandleRealRequest(request)
	require.NoError(t, err)
	_, err = client.HandleResponse(response, validation)
	require.NoError(t, err)

	// presenting the same credentials again reuses their serials
	replay, _, err := client.CreateRequest([]AttributeValues{{Amount: 5_000}}, zeroes)
	require.NoError(t, err)
	_, err = issuer.HandleRealRequest(replay)
	require.Error(t, err)
	require.Contains(t, err.Error(), "serial number reused")
}

func TestTamperedBitCommitmentRejected(t *testing.T) {
	issuer, client := fixture(t, "tamper-bit")
	zeroes := bootstrap(t, issuer, client)

	request, _, err := client.CreateRequest([]AttributeValues{{Amount: 42}}, zeroes)
	require.NoError(t, err)

	var bogus secp256k1.Point
	two := secp256k1.NewFnFromU16(2)
	bogus.Scale(&request.Requested[0].BitCommitmentsA[3], &two)
	request.Requested[0].BitCommitmentsA[3] = bogus

	_, err = issuer.HandleRealRequest(request)
	require.Error(t, err)
	require.Contains(t, err.Error(), "range")
}

func TestTamperedDeltaRejected(t *testing.T) {
	issuer, client := fixture(t, "tamper-delta")
	zeroes := bootstrap(t, issuer, client)

	request, _, err := client.CreateRequest([]AttributeValues{{Amount: 1_000}}, zeroes)
	require.NoError(t, err)
	request.DeltaAmount++

	_, err = issuer.HandleRealRequest(request)
	require.Error(t, err)
}

func TestIssuedNumberMismatchRejected(t *testing.T) {
	issuer, client := fixture(t, "count-mismatch")

	request, validation, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	response, err := issuer.HandleZeroRequest(request)
	require.NoError(t, err)

	response.Issued = response.Issued[:1]
	_, err = client.HandleResponse(response, validation)
	require.ErrorIs(t, err, ErrIssuedCredentialNumberMismatch)
}

func TestTamperedIssuanceProofRejected(t *testing.T) {
	issuer, client := fixture(t, "tamper-issuance")

	request, validation, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	response, err := issuer.HandleZeroRequest(request)
	require.NoError(t, err)

	one := secp256k1.NewFnFromU16(1)
	response.Issued[0].T.Add(&response.Issued[0].T, &one)
	_, err = client.HandleResponse(response, validation)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid issuance proof")
}

func TestAmountOutOfRangeRejected(t *testing.T) {
	rnd := group.SeededRandom([]byte("overflow"))
	_, err := newRequestedCredential(MaxAmount+1, 0, false, rnd)
	require.Error(t, err)
	_, err = newRequestedCredential(0, MaxVsize+1, false, rnd)
	require.Error(t, err)
}

func TestCrossRoundUnlinkability(t *testing.T) {
	issuerA, clientA := fixture(t, "round-a")
	issuerB, clientB := fixture(t, "round-b")

	credsA := bootstrap(t, issuerA, clientA)
	credsB := bootstrap(t, issuerB, clientB)

	// independent rounds over the same inputs share no points
	reqA, _, err := clientA.CreateRequest([]AttributeValues{{Amount: 7}}, credsA)
	require.NoError(t, err)
	reqB, _, err := clientB.CreateRequest([]AttributeValues{{Amount: 7}}, credsB)
	require.NoError(t, err)

	bytesA, err := reqA.Bytes()
	require.NoError(t, err)
	bytesB, err := reqB.Bytes()
	require.NoError(t, err)
	require.NotEqual(t, bytesA, bytesB)
	require.False(t, reqA.Presentations[0].Ca.Eq(&reqB.Presentations[0].Ca))
	require.False(t, reqA.Requested[0].Ma.Eq(&reqB.Requested[0].Ma))
}

func TestSameClientTwoRequestsDiffer(t *testing.T) {
	issuer, client := fixture(t, "two-requests")
	first := bootstrap(t, issuer, client)
	second := bootstrap(t, issuer, client)

	fpA, err := first[0].Fingerprint()
	require.NoError(t, err)
	fpB, err := second[0].Fingerprint()
	require.NoError(t, err)
	require.False(t, strings.EqualFold(fpA, fpB))
}

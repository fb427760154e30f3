package wabisabi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZeroRequestSerializationRoundTrip(t *testing.T) {
	_, client := fixture(t, "wire-zero")
	request, _, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)

	data, err := request.Bytes()
	require.NoError(t, err)

	var decoded ZeroCredentialsRequest
	_, rem, err := decoded.Unmarshal(data, len(data))
	require.NoError(t, err)
	require.Zero(t, rem)
	require.NoError(t, decoded.Validate())

	again, err := decoded.Bytes()
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestRealRequestSerializationSurvivesVerification(t *testing.T) {
	issuer, client := fixture(t, "wire-real")
	zeroes := bootstrap(t, issuer, client)

	request, validation, err := client.CreateRequest([]AttributeValues{{Amount: 12_345, Vsize: 100}}, zeroes)
	require.NoError(t, err)

	data, err := request.Bytes()
	require.NoError(t, err)
	var decoded RealCredentialsRequest
	_, rem, err := decoded.Unmarshal(data, len(data))
	require.NoError(t, err)
	require.Zero(t, rem)

	// the decoded request verifies and gets issued like the original
	response, err := issuer.HandleRealRequest(&decoded)
	require.NoError(t, err)
	credentials, err := client.HandleResponse(response, validation)
	require.NoError(t, err)
	require.Equal(t, uint64(12_345), credentials[0].Amount)
}

func TestResponseSerializationRoundTrip(t *testing.T) {
	issuer, client := fixture(t, "wire-response")
	request, validation, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	response, err := issuer.HandleZeroRequest(request)
	require.NoError(t, err)

	data, err := response.Bytes()
	require.NoError(t, err)
	var decoded CredentialsResponse
	_, rem, err := decoded.Unmarshal(data, len(data))
	require.NoError(t, err)
	require.Zero(t, rem)

	_, err = client.HandleResponse(&decoded, validation)
	require.NoError(t, err)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	_, client := fixture(t, "envelope")
	request, _, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	payload, err := request.Bytes()
	require.NoError(t, err)

	envelope := InputRegistration{
		OutPoint:    []byte("txid:0"),
		ZeroRequest: payload,
	}
	envelope.RoundID[0] = 7

	data, err := EncodeEnvelope(envelope)
	require.NoError(t, err)

	var decoded InputRegistration
	require.NoError(t, DecodeEnvelope(data, &decoded))
	require.Equal(t, envelope.RoundID, decoded.RoundID)
	require.Equal(t, envelope.OutPoint, decoded.OutPoint)
	require.Equal(t, payload, decoded.ZeroRequest)

	// deterministic encoding
	again, err := EncodeEnvelope(envelope)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestPool(t *testing.T) {
	issuer, client := fixture(t, "pool")
	zeroes := bootstrap(t, issuer, client)

	pool := NewPool()
	require.NoError(t, pool.Add(zeroes...))
	require.Equal(t, CredentialCount, pool.ZeroCount())
	require.Error(t, pool.Add(zeroes[0]))

	taken, err := pool.TakeZero(CredentialCount)
	require.NoError(t, err)
	require.Len(t, taken, CredentialCount)
	_, err = pool.TakeZero(1)
	require.Error(t, err)

	// a spent credential can re-enter only once removed from the index
	require.NoError(t, pool.Add(taken[0]))
	require.Equal(t, 1, pool.ZeroCount())
	require.Empty(t, pool.TakeValuable())
}

package paysdk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("strips merchant path and instance segment", func(t *testing.T) {
		got := normalizeEndpoint("/merchants/abc123/client_api/payment_methods/xyz/three_d_secure")
		require.Equal(t, "payment_methods/three_d_secure", got)
	})

	t.Run("strips merchant path alone", func(t *testing.T) {
		got := normalizeEndpoint("/merchants/abc123/client_api/v1/payment_methods")
		require.Equal(t, "v1/payment_methods", got)
	})

	t.Run("collapses nonce segment mid path", func(t *testing.T) {
		got := normalizeEndpoint("/v1/payment_methods/some-nonce/three_d_secure/lookup")
		require.Equal(t, "/v1/payment_methods/three_d_secure/lookup", got)
	})

	t.Run("leaves plain paths untouched", func(t *testing.T) {
		require.Equal(t, "/v1/configuration", normalizeEndpoint("/v1/configuration"))
		require.Equal(t, "/v1/paypal_hermes/create_payment_resource",
			normalizeEndpoint("/v1/paypal_hermes/create_payment_resource"))
	})

	t.Run("is idempotent", func(t *testing.T) {
		paths := []string{
			"/merchants/abc123/client_api/payment_methods/xyz/three_d_secure",
			"/merchants/abc123/client_api/v1/payment_methods",
			"/v1/payment_methods/some-nonce/three_d_secure/lookup",
			"/v1/configuration",
		}
		for _, path := range paths {
			once := normalizeEndpoint(path)
			require.Equal(t, once, normalizeEndpoint(once), "path %q", path)
		}
	})
}

func TestGraphQLEndpointLabel(t *testing.T) {
	t.Parallel()

	t.Run("keeps everything from the first open paren", func(t *testing.T) {
		payload := []byte(`{"query": "mutation CreatePayment(input: {...}) { ... }"}`)
		label, ok := graphQLEndpointLabel(payload)
		require.True(t, ok)
		require.Equal(t, "(input: {...}) { ... }", label)
	})

	t.Run("query without parens is used whole", func(t *testing.T) {
		payload := []byte(`{"query": "query Ping"}`)
		label, ok := graphQLEndpointLabel(payload)
		require.True(t, ok)
		require.Equal(t, "query Ping", label)
	})

	t.Run("missing query yields no label", func(t *testing.T) {
		_, ok := graphQLEndpointLabel([]byte(`{"variables": {}}`))
		require.False(t, ok)
	})

	t.Run("empty payload yields no label", func(t *testing.T) {
		_, ok := graphQLEndpointLabel(nil)
		require.False(t, ok)

		_, ok = graphQLEndpointLabel([]byte(`not json`))
		require.False(t, ok)
	})
}

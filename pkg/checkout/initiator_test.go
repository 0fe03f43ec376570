package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tabpay/pkg/paysdk"
)

// fakeGateway stands in for the paysdk Client.
type fakeGateway struct {
	cfg       *paysdk.Configuration
	cfgErr    error
	auth      paysdk.Authorization
	scheme    string
	postBody  []byte
	postErr   error
	postPaths []string
	postSent  [][]byte
}

func (g *fakeGateway) GetConfiguration(context.Context) (*paysdk.Configuration, error) {
	if g.cfgErr != nil {
		return nil, g.cfgErr
	}
	return g.cfg, nil
}

func (g *fakeGateway) Post(_ context.Context, url string, body []byte, _ map[string]string) ([]byte, error) {
	g.postPaths = append(g.postPaths, url)
	g.postSent = append(g.postSent, body)
	if g.postErr != nil {
		return nil, g.postErr
	}
	return g.postBody, nil
}

func (g *fakeGateway) Authorization() paysdk.Authorization { return g.auth }

func (g *fakeGateway) ReturnURLScheme() string { return g.scheme }

// fakeFingerprint records whether it was consulted.
type fakeFingerprint struct {
	metadataID string
	err        error
	calls      int
	lastReq    FingerprintRequest
}

func (f *fakeFingerprint) InstallationID(context.Context) (string, error) {
	return "install-guid", nil
}

func (f *fakeFingerprint) ClientMetadataID(_ context.Context, req FingerprintRequest,
	_ *paysdk.Configuration) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.metadataID, nil
}

func newTestInitiator(gw *fakeGateway, fp *fakeFingerprint) *Initiator {
	return &Initiator{
		client:      gw,
		fingerprint: fp,
	}
}

func newFakeGateway(responseBody string) *fakeGateway {
	return &fakeGateway{
		cfg:      testConfiguration(),
		auth:     paysdk.ParseAuthorization("sandbox_9dbg82cq_abc"),
		scheme:   "demo",
		postBody: []byte(responseBody),
	}
}

func TestNewInitiator(t *testing.T) {
	t.Parallel()

	client := paysdk.NewClient("sandbox_9dbg82cq_abc",
		paysdk.WithReturnURLScheme("com.example.shop"))
	initiator := NewInitiator(client)

	successURL, cancelURL := initiator.callbackURLs()
	require.Equal(t, "com.example.shop://onetouch/v1/success", successURL)
	require.Equal(t, "com.example.shop://onetouch/v1/cancel", cancelURL)

	client.SetLaunchesBrowserSwitchAsNewTask(true)
	successURL, cancelURL = initiator.callbackURLs()
	require.Equal(t, "com.example.shop.deeplinkhandler://onetouch/v1/success", successURL)
	require.Equal(t, "com.example.shop.deeplinkhandler://onetouch/v1/cancel", cancelURL)
}

func TestInitiateCheckout(t *testing.T) {
	t.Parallel()

	t.Run("one-time payment resolves token pairing id", func(t *testing.T) {
		gw := newFakeGateway(`{"paymentResource": {"redirectUrl": "https://x/y?token=EC-TOKEN"}}`)
		fp := &fakeFingerprint{metadataID: "cmid-1"}
		initiator := newTestInitiator(gw, fp)

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{Amount: "10.00"})
		require.NoError(t, err)

		require.Equal(t, []string{"/v1/paypal_hermes/create_payment_resource"}, gw.postPaths)
		require.Equal(t, "https://x/y?token=EC-TOKEN", authReq.ApprovalURL)
		require.Equal(t, "EC-TOKEN", authReq.PairingID)
		require.Equal(t, "cmid-1", authReq.ClientMetadataID)
		require.Equal(t, "demo://onetouch/v1/success", authReq.SuccessURL)
		require.Nil(t, authReq.BrowserSwitchOptions)

		require.Equal(t, 1, fp.calls)
		require.Equal(t, "install-guid", fp.lastReq.ApplicationGUID)
		require.Equal(t, "EC-TOKEN", fp.lastReq.PairingID)
	})

	t.Run("vault request posts to the billing agreement endpoint", func(t *testing.T) {
		gw := newFakeGateway(`{"agreementSetup": {"approvalUrl": "https://x/y?ba_token=BA-1"}}`)
		fp := &fakeFingerprint{metadataID: "cmid-1"}
		initiator := newTestInitiator(gw, fp)

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{Vault: true})
		require.NoError(t, err)
		require.Equal(t, []string{"/v1/paypal_hermes/setup_billing_agreement"}, gw.postPaths)
		require.Equal(t, "BA-1", authReq.PairingID)
	})

	t.Run("caller-supplied risk correlation id skips the fingerprint", func(t *testing.T) {
		gw := newFakeGateway(`{"paymentResource": {"redirectUrl": "https://x/y?token=EC-TOKEN"}}`)
		fp := &fakeFingerprint{metadataID: "never-used"}
		initiator := newTestInitiator(gw, fp)

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{
			Amount:            "10.00",
			RiskCorrelationID: "caller-cmid",
		})
		require.NoError(t, err)
		require.Equal(t, "caller-cmid", authReq.ClientMetadataID)
		require.Zero(t, fp.calls)
	})

	t.Run("redirect without tokens yields empty pairing id", func(t *testing.T) {
		gw := newFakeGateway(`{"paymentResource": {"redirectUrl": "https://x/y?other=1"}}`)
		fp := &fakeFingerprint{metadataID: "cmid-1"}
		initiator := newTestInitiator(gw, fp)

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{Amount: "10.00"})
		require.NoError(t, err)
		require.Empty(t, authReq.PairingID)
		require.Empty(t, fp.lastReq.PairingID)
	})

	t.Run("configuration failure is terminal before any post", func(t *testing.T) {
		gw := &fakeGateway{cfgErr: errors.New("config down")}
		initiator := newTestInitiator(gw, &fakeFingerprint{})

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{Amount: "10.00"})
		require.Nil(t, authReq)
		require.EqualError(t, err, "config down")
		require.Empty(t, gw.postPaths)
	})

	t.Run("body build failure makes no network call", func(t *testing.T) {
		gw := newFakeGateway(`{}`)
		initiator := newTestInitiator(gw, &fakeFingerprint{})

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{})
		require.Nil(t, authReq)

		var protoErr *ProtocolError
		require.ErrorAs(t, err, &protoErr)
		require.Empty(t, gw.postPaths)
	})

	t.Run("post failure propagates", func(t *testing.T) {
		gw := newFakeGateway(``)
		gw.postErr = &paysdk.TransportError{Status: 422, Message: "invalid amount"}
		fp := &fakeFingerprint{}
		initiator := newTestInitiator(gw, fp)

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{Amount: "10.00"})
		require.Nil(t, authReq)

		var transportErr *paysdk.TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Zero(t, fp.calls)
	})

	t.Run("malformed resource skips correlation resolution", func(t *testing.T) {
		gw := newFakeGateway(`{"paymentResource": {}}`)
		fp := &fakeFingerprint{}
		initiator := newTestInitiator(gw, fp)

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{Amount: "10.00"})
		require.Nil(t, authReq)

		var protoErr *ProtocolError
		require.ErrorAs(t, err, &protoErr)
		require.Zero(t, fp.calls)
	})

	t.Run("scheme changes after construction reach the callback urls", func(t *testing.T) {
		gw := newFakeGateway(`{"paymentResource": {"redirectUrl": "https://x/y?token=EC-1"}}`)
		fp := &fakeFingerprint{metadataID: "cmid-1"}
		initiator := newTestInitiator(gw, fp)

		gw.scheme = "demo.deeplinkhandler"
		authReq, err := initiator.InitiateCheckout(context.Background(), Request{Amount: "10.00"})
		require.NoError(t, err)
		require.Equal(t, "demo.deeplinkhandler://onetouch/v1/success", authReq.SuccessURL)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(gw.postSent[0], &decoded))
		require.Equal(t, "demo.deeplinkhandler://onetouch/v1/success", decoded["return_url"])
		require.Equal(t, "demo.deeplinkhandler://onetouch/v1/cancel", decoded["cancel_url"])
	})

	t.Run("fingerprint failure maps to a correlation error", func(t *testing.T) {
		gw := newFakeGateway(`{"paymentResource": {"redirectUrl": "https://x/y?token=EC-1"}}`)
		fp := &fakeFingerprint{err: errors.New("magnes offline")}
		initiator := newTestInitiator(gw, fp)

		authReq, err := initiator.InitiateCheckout(context.Background(), Request{Amount: "10.00"})
		require.Nil(t, authReq)

		var corrErr *CorrelationError
		require.ErrorAs(t, err, &corrErr)
	})
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	t.Run("maps the gateway response to a typed nonce", func(t *testing.T) {
		gw := newFakeGateway(`{
			"paypalAccounts": [
				{"nonce": "nonce-123", "type": "PayPalAccount", "details": {"email": "payer@example.com"}}
			]
		}`)
		initiator := newTestInitiator(gw, &fakeFingerprint{})

		nonce, err := initiator.Tokenize(context.Background(), Account{
			PaymentToken:  "EC-1",
			PayerID:       "payer-1",
			CorrelationID: "cmid-1",
			Intent:        IntentSale,
		})
		require.NoError(t, err)
		require.Equal(t, "nonce-123", nonce.Nonce)
		require.Equal(t, "PayPalAccount", nonce.Type)
		require.Equal(t, "payer@example.com", nonce.Email)

		require.Equal(t, []string{"/v1/payment_methods/paypal_accounts"}, gw.postPaths)

		sent := decodeBody(t, gw.postSent[0])
		account := sent["paypal_account"].(map[string]any)
		require.Equal(t, "cmid-1", account["correlation_id"])
		require.Equal(t, "sale", account["intent"])

		response := account["response"].(map[string]any)
		require.Equal(t, "EC-1", response["payment_token"])
		require.Equal(t, "payer-1", response["payer_id"])
	})

	t.Run("response without a nonce is a protocol error", func(t *testing.T) {
		gw := newFakeGateway(`{"paypalAccounts": []}`)
		initiator := newTestInitiator(gw, &fakeFingerprint{})

		_, err := initiator.Tokenize(context.Background(), Account{BillingToken: "BA-1"})

		var protoErr *ProtocolError
		require.ErrorAs(t, err, &protoErr)
	})

	t.Run("account without approval tokens never posts", func(t *testing.T) {
		gw := newFakeGateway(`{}`)
		initiator := newTestInitiator(gw, &fakeFingerprint{})

		_, err := initiator.Tokenize(context.Background(), Account{})

		var protoErr *ProtocolError
		require.ErrorAs(t, err, &protoErr)
		require.Empty(t, gw.postPaths)
	})
}

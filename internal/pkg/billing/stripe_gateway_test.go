package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

type fakeStripe struct {
	mu       sync.Mutex
	requests map[string]url.Values
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f.mu.Lock()
	f.requests[r.Method+" "+r.URL.Path] = r.PostForm
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/accounts":
		_, _ = w.Write([]byte(`{"id": "acct_1", "object": "account"}`))
	case "/v1/account_links":
		_, _ = w.Write([]byte(`{"object": "account_link", "url": "https://connect.stripe.test/onboard"}`))
	case "/v1/checkout/sessions":
		_, _ = w.Write([]byte(`{"id": "cs_1", "object": "checkout.session", "url": "https://checkout.stripe.test/cs_1"}`))
	case "/v1/customers/cus_1":
		_, _ = w.Write([]byte(`{"id": "cus_1", "object": "customer", "email": "fan@example.com"}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "no such resource"}}`))
	}
}

func newFakeStripeGateway(t *testing.T) (*StripeGateway, *fakeStripe) {
	t.Helper()
	fake := &fakeStripe{requests: map[string]url.Values{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeGatewayWithBackends("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend}), fake
}

func TestStripeGatewayPayoutAccount(t *testing.T) {
	gw, fake := newFakeStripeGateway(t)
	ctx := context.Background()

	id, err := gw.CreatePayoutAccount(ctx, "alice@example.com", "GB", "https://www.youtube.com/@alice")
	require.NoError(t, err)
	assert.Equal(t, "acct_1", id)

	form := fake.requests["POST /v1/accounts"]
	assert.Equal(t, "express", form.Get("type"))
	assert.Equal(t, "GB", form.Get("country"))
	assert.Equal(t, creatorMCC, form.Get("business_profile[mcc]"))
	assert.Equal(t, "https://www.youtube.com/@alice", form.Get("business_profile[url]"))

	link, err := gw.CreateOnboardingLink(ctx, id, "https://api.test/return", "https://app.test/refresh")
	require.NoError(t, err)
	assert.Equal(t, "https://connect.stripe.test/onboard", link)
	assert.Equal(t, "account_onboarding", fake.requests["POST /v1/account_links"].Get("type"))
}

func TestStripeGatewayCheckoutSession(t *testing.T) {
	gw, fake := newFakeStripeGateway(t)
	name := "Bob"

	link, err := gw.CreateCheckoutSession(context.Background(), CheckoutRequest{
		ProfileID:      7,
		Amount:         500,
		Currency:       "gbp",
		PayeeAccountID: "acct_1",
		ApplicationFee: 25,
		DisplayName:    "Alice",
		SuccessURL:     "https://app.test/success",
		CancelURL:      "https://app.test/cancel",
		Metadata:       TipMetadata{ProfileID: 7, Name: &name},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", link)

	form := fake.requests["POST /v1/checkout/sessions"]
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "500", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "gbp", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "25", form.Get("payment_intent_data[application_fee_amount]"))
	assert.Equal(t, "acct_1", form.Get("payment_intent_data[transfer_data][destination]"))
	assert.Equal(t, "7", form.Get("metadata[creator_profile_id]"))
	assert.Equal(t, "Bob", form.Get("metadata[name]"))
}

func TestStripeGatewayCustomerEmail(t *testing.T) {
	gw, _ := newFakeStripeGateway(t)

	email, err := gw.CustomerEmail(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "fan@example.com", email)

	_, err = gw.CustomerEmail(context.Background(), "cus_missing")
	assert.ErrorContains(t, err, "retrieve stripe customer")
}

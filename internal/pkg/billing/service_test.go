package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/app/repository"
	"github.com/tubtip/tubtip/internal/pkg/apperror"
	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/database/dbtest"
	"github.com/tubtip/tubtip/internal/pkg/jobqueue"
)

const testSecret = "whsec_test"

type fakeGateway struct {
	mu             sync.Mutex
	accountsMade   int
	lastCountry    string
	lastProfileURL string
	checkouts      []CheckoutRequest
	emails         map[string]string
}

func (g *fakeGateway) CreatePayoutAccount(_ context.Context, _, countryCode, profileURL string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accountsMade++
	g.lastCountry = countryCode
	g.lastProfileURL = profileURL
	return fmt.Sprintf("acct_%d", g.accountsMade), nil
}

func (g *fakeGateway) CreateOnboardingLink(_ context.Context, accountID, _, _ string) (string, error) {
	return "https://connect.stripe.test/setup/" + accountID, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkouts = append(g.checkouts, req)
	return "https://checkout.stripe.test/c/pay/cs_test", nil
}

func (g *fakeGateway) CustomerEmail(_ context.Context, customerID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if email, ok := g.emails[customerID]; ok {
		return email, nil
	}
	return "", fmt.Errorf("no such customer: %s", customerID)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []jobqueue.SendEmailJobPayload
}

func (q *fakeQueue) EnqueueSendEmail(_ context.Context, p jobqueue.SendEmailJobPayload) (*jobqueue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, p)
	return &jobqueue.Job{ID: fmt.Sprint(len(q.jobs)), Type: jobqueue.JobTypeSendEmail}, nil
}

type fixture struct {
	svc     *Service
	repos   *repository.Repositories
	gateway *fakeGateway
	queue   *fakeQueue
	account *models.Account
	profile *models.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	account := &models.Account{Email: "alice@example.com", Username: "alice", AuthProvider: models.AuthProviderPassword}
	require.NoError(t, repos.Account.Create(ctx, account))
	profile := &models.Profile{AccountID: account.ID, DisplayName: "Alice", YoutubeChannelName: "alicetube"}
	require.NoError(t, repos.Profile.Create(ctx, profile))

	gateway := &fakeGateway{emails: map[string]string{"cus_1": "fan@example.com"}}
	queue := &fakeQueue{}
	cfg := config.StripeConfig{
		FeePercent:        5,
		ConnectReturnURL:  "https://api.tubtip.test/api/v1/stripe/connect/callback",
		ConnectRefreshURL: "https://tubtip.test/connect/failed",
		ConnectSuccessURL: "https://tubtip.test/connect/success",
		ConnectFailureURL: "https://tubtip.test/connect/failed",
	}
	svc := NewService(repos, gateway, queue, cfg, "https://tubtip.test/")
	return &fixture{svc: svc, repos: repos, gateway: gateway, queue: queue, account: account, profile: profile}
}

func (f *fixture) connect(t *testing.T, country string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.StartPayoutOnboarding(ctx, f.account, ConnectInput{Country: country})
	require.NoError(t, err)
	_, err = f.repos.Profile.MarkPayoutConnected(ctx, "acct_1")
	require.NoError(t, err)
}

func signedEvent(t *testing.T, eventType string, object interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_" + eventType,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]json.RawMessage{"object": raw},
	})
	require.NoError(t, err)
	return payload
}

func verify(t *testing.T, payload []byte) stripe.Event {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: testSecret})
	event, err := VerifyEvent(signed.Payload, signed.Header, testSecret)
	require.NoError(t, err)
	return event
}

func checkoutObject(profileID uint, sessionID string, amount int64) map[string]interface{} {
	return map[string]interface{}{
		"id":           sessionID,
		"object":       "checkout.session",
		"amount_total": amount,
		"currency":     "gbp",
		"customer":     "cus_1",
		"metadata": TipMetadata{
			ProfileID: profileID,
			Name:      strPtr("Bob"),
			Message:   strPtr("Love the channel, \"keep going\" ✨"),
			IsPrivate: false,
		}.Encode(),
	}
}

func TestVerifyEvent(t *testing.T) {
	payload := signedEvent(t, EventCheckoutCompleted, map[string]interface{}{"id": "cs_1"})

	event := verify(t, payload)
	assert.Equal(t, EventCheckoutCompleted, string(event.Type))

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_other"})
	_, err := VerifyEvent(signed.Payload, signed.Header, testSecret)
	assert.ErrorIs(t, err, apperror.ErrInvalidSignature)

	_, err = VerifyEvent(payload, "", testSecret)
	assert.ErrorIs(t, err, apperror.ErrInvalidSignature)

	garbage := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte("{not json"), Secret: testSecret})
	_, err = VerifyEvent(garbage.Payload, garbage.Header, testSecret)
	assert.ErrorIs(t, err, apperror.ErrInvalidPayload)
}

func TestHandleCheckoutCompletedRecordsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := verify(t, signedEvent(t, EventCheckoutCompleted, checkoutObject(f.profile.ID, "cs_123", 500)))

	result, err := f.svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, ResultRecorded, result)

	result, err = f.svc.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, result)

	count, err := f.repos.Tip.CountByProfile(ctx, f.profile.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	tip, err := f.repos.Tip.GetBySessionID(ctx, "cs_123")
	require.NoError(t, err)
	assert.Equal(t, int64(500), tip.Amount)
	assert.Equal(t, "gbp", tip.Currency)
	require.NotNil(t, tip.Name)
	assert.Equal(t, "Bob", *tip.Name)
	require.NotNil(t, tip.Message)
	assert.Equal(t, "Love the channel, \"keep going\" ✨", *tip.Message)

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, "fan@example.com", job.To)
	assert.Equal(t, "payment_success", job.Template)
	assert.Equal(t, map[string]string{"display_name": "Alice", "amount": "5.00", "currency": "gbp"}, job.Data)
}

func TestHandleCheckoutCompletedConcurrentDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := verify(t, signedEvent(t, EventCheckoutCompleted, checkoutObject(f.profile.ID, "cs_race", 300)))

	const deliveries = 8
	results := make(chan WebhookResult, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.svc.HandleCheckoutCompleted(ctx, event)
			assert.NoError(t, err)
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	recorded := 0
	for r := range results {
		if r == ResultRecorded {
			recorded++
		} else {
			assert.Equal(t, ResultDuplicate, r)
		}
	}
	assert.Equal(t, 1, recorded)
	count, err := f.repos.Tip.CountByProfile(ctx, f.profile.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, f.queue.jobs, 1)
}

func TestHandleCheckoutCompletedRejectsBadPayloads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unknownProfile := verify(t, signedEvent(t, EventCheckoutCompleted, checkoutObject(9999, "cs_x", 100)))
	_, err := f.svc.HandleCheckoutCompleted(ctx, unknownProfile)
	assert.ErrorIs(t, err, apperror.ErrInvalidPayload)

	noMetadata := verify(t, signedEvent(t, EventCheckoutCompleted, map[string]interface{}{"id": "cs_y", "amount_total": 100}))
	_, err = f.svc.HandleCheckoutCompleted(ctx, noMetadata)
	assert.ErrorIs(t, err, apperror.ErrInvalidPayload)

	count, _ := f.repos.Tip.CountByProfile(ctx, f.profile.ID, true)
	assert.Zero(t, count)
}

func TestCheckoutEmailFallsBackToCustomerDetails(t *testing.T) {
	f := newFixture(t)
	obj := checkoutObject(f.profile.ID, "cs_guest", 900)
	obj["customer"] = nil
	obj["customer_details"] = map[string]string{"email": "guest@example.com"}

	_, err := f.svc.HandleCheckoutCompleted(context.Background(), verify(t, signedEvent(t, EventCheckoutCompleted, obj)))
	require.NoError(t, err)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "guest@example.com", f.queue.jobs[0].To)
	assert.Equal(t, "9.00", f.queue.jobs[0].Data["amount"])
}

func TestHandleAccountUpdated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.StartPayoutOnboarding(ctx, f.account, ConnectInput{Country: "UnitedKingdom"})
	require.NoError(t, err)

	pending := verify(t, signedEvent(t, EventAccountUpdated, map[string]interface{}{"id": "acct_1", "object": "account", "charges_enabled": false}))
	result, err := f.svc.HandleEvent(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, result)
	assert.Equal(t, "https://tubtip.test/connect/failed", f.svc.ConnectRedirect(ctx, f.account.ID))

	enabled := verify(t, signedEvent(t, EventAccountUpdated, map[string]interface{}{"id": "acct_1", "object": "account", "charges_enabled": true}))
	result, err = f.svc.HandleEvent(ctx, enabled)
	require.NoError(t, err)
	assert.Equal(t, ResultRecorded, result)

	// a later disabled event does not revert the flag
	_, err = f.svc.HandleEvent(ctx, pending)
	require.NoError(t, err)
	profile, err := f.repos.Profile.GetByID(ctx, f.profile.ID)
	require.NoError(t, err)
	assert.True(t, profile.PayoutConnected)
	assert.Equal(t, "https://tubtip.test/connect/success", f.svc.ConnectRedirect(ctx, f.account.ID))

	unknown := verify(t, signedEvent(t, EventAccountUpdated, map[string]interface{}{"id": "acct_nope", "charges_enabled": true}))
	result, err = f.svc.HandleEvent(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, result)
}

func TestUnhandledEventIsIgnored(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.HandleEvent(context.Background(), verify(t, signedEvent(t, "customer.created", map[string]string{"id": "cus_1"})))
	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, result)
}

func TestStartPayoutOnboarding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link, err := f.svc.StartPayoutOnboarding(ctx, f.account, ConnectInput{Country: "UnitedKingdom"})
	require.NoError(t, err)
	assert.Equal(t, "https://connect.stripe.test/setup/acct_1", link)
	assert.Equal(t, "GB", f.gateway.lastCountry)
	assert.Equal(t, "https://www.youtube.com/@alicetube", f.gateway.lastProfileURL)

	profile, err := f.repos.Profile.GetByID(ctx, f.profile.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.PayoutAccountID)
	assert.Equal(t, "acct_1", *profile.PayoutAccountID)
	assert.Equal(t, "UnitedKingdom", profile.CountryName())
	assert.False(t, profile.PayoutConnected)

	// resuming for the same country reuses the account
	_, err = f.svc.StartPayoutOnboarding(ctx, f.account, ConnectInput{Country: "UnitedKingdom"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.accountsMade)

	_, err = f.svc.StartPayoutOnboarding(ctx, f.account, ConnectInput{Country: "Narnia"})
	assert.ErrorIs(t, err, apperror.ErrFieldValidation)

	_, err = f.repos.Profile.MarkPayoutConnected(ctx, "acct_1")
	require.NoError(t, err)
	_, err = f.svc.StartPayoutOnboarding(ctx, f.account, ConnectInput{Country: "UnitedKingdom"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestStartPayoutOnboardingWithoutProfile(t *testing.T) {
	f := newFixture(t)
	other := &models.Account{Email: "bob@example.com", Username: "bob"}
	require.NoError(t, f.repos.Account.Create(context.Background(), other))

	_, err := f.svc.StartPayoutOnboarding(context.Background(), other, ConnectInput{Country: "UnitedKingdom"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreateCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CheckoutInput{Username: "alice", Units: 2, Name: strPtr(" Bob "), Message: strPtr("hi"), IsPrivate: true}

	_, err := f.svc.CreateCheckout(ctx, in)
	assert.ErrorIs(t, err, apperror.ErrFieldValidation, "creator without payout account")

	f.connect(t, "UnitedKingdom")
	checkoutURL, err := f.svc.CreateCheckout(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/c/pay/cs_test", checkoutURL)

	require.Len(t, f.gateway.checkouts, 1)
	req := f.gateway.checkouts[0]
	assert.Equal(t, int64(600), req.Amount)
	assert.Equal(t, int64(30), req.ApplicationFee)
	assert.Equal(t, "gbp", req.Currency)
	assert.Equal(t, "acct_1", req.PayeeAccountID)
	assert.Equal(t, "Alice", req.DisplayName)
	assert.Equal(t, "https://tubtip.test/alice?amount=600&result=success", req.SuccessURL)
	assert.Equal(t, "https://tubtip.test/alice?amount=600&message=hi&result=cancel", req.CancelURL)
	assert.Equal(t, TipMetadata{ProfileID: f.profile.ID, Name: strPtr("Bob"), Message: strPtr("hi"), IsPrivate: true}, req.Metadata)

	_, err = f.svc.CreateCheckout(ctx, CheckoutInput{Username: "alice", Units: 0})
	assert.ErrorIs(t, err, apperror.ErrFieldValidation)

	_, err = f.svc.CreateCheckout(ctx, CheckoutInput{Username: "nobody", Units: 1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFormatMajor(t *testing.T) {
	assert.Equal(t, "5.00", FormatMajor(500))
	assert.Equal(t, "0.05", FormatMajor(5))
	assert.Equal(t, "1234.56", FormatMajor(123456))
}

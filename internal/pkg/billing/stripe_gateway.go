package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

const (
	creatorMCC                = "7929"
	creatorProductDescription = "Content creator on YouTube"
)

// StripeGateway implements Gateway with Stripe Connect express accounts and
// Checkout sessions.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// NewStripeGatewayWithBackends is used by tests to point the client at a
// fake Stripe server.
func NewStripeGatewayWithBackends(secretKey string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreatePayoutAccount(ctx context.Context, email, countryCode, profileURL string) (string, error) {
	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Country:      stripe.String(countryCode),
		Email:        stripe.String(email),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			MCC:                stripe.String(creatorMCC),
			ProductDescription: stripe.String(creatorProductDescription),
		},
	}
	if profileURL != "" {
		params.BusinessProfile.URL = stripe.String(profileURL)
	}
	params.Context = ctx

	acct, err := g.api.Accounts.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe account: %w", err)
	}
	return acct.ID, nil
}

func (g *StripeGateway) CreateOnboardingLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		ReturnURL:  stripe.String(returnURL),
		RefreshURL: stripe.String(refreshURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := g.api.AccountLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe account link: %w", err)
	}
	return link.URL, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Give %s a tubetip", req.DisplayName)),
				},
				UnitAmount: stripe.Int64(req.Amount),
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(req.ApplicationFee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.PayeeAccountID),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	for k, v := range req.Metadata.Encode() {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe checkout session: %w", err)
	}
	return sess.URL, nil
}

func (g *StripeGateway) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("retrieve stripe customer: %w", err)
	}
	return cust.Email, nil
}

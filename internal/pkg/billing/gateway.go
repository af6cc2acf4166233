package billing

import "context"

// CheckoutRequest describes a one-off payment to a connected payout account.
type CheckoutRequest struct {
	ProfileID      uint
	Amount         int64
	Currency       string
	PayeeAccountID string
	ApplicationFee int64
	DisplayName    string
	SuccessURL     string
	CancelURL      string
	Metadata       TipMetadata
}

// Gateway is the payment processor surface the service depends on.
type Gateway interface {
	CreatePayoutAccount(ctx context.Context, email, countryCode, profileURL string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

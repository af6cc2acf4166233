package billing

// WebhookResult is reported back to the webhook sender.
type WebhookResult string

const (
	ResultRecorded  WebhookResult = "success"
	ResultDuplicate WebhookResult = "duplicate"
	ResultIgnored   WebhookResult = "ignored"
)

// CheckoutInput is the public request to tip a creator.
type CheckoutInput struct {
	Username  string  `json:"username" validate:"required,min=3,max=50"`
	Units     int64   `json:"number_of_tube_tips" validate:"required,gte=1,lte=100"`
	Name      *string `json:"name" validate:"omitempty,max=100"`
	Message   *string `json:"message" validate:"omitempty,max=500"`
	IsPrivate bool    `json:"private"`
}

// ConnectInput starts payout onboarding.
type ConnectInput struct {
	Country string `json:"country" validate:"required"`
}

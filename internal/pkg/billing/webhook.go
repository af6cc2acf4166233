package billing

import (
	"encoding/json"
	"errors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/tubtip/tubtip/internal/pkg/apperror"
)

// SignatureHeader carries the processor's HMAC signature.
const SignatureHeader = "Stripe-Signature"

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventAccountUpdated    = "account.updated"
)

// VerifyEvent checks the signature of a webhook delivery and decodes it.
// Signature failures map to InvalidSignature, anything else to InvalidPayload.
func VerifyEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return event, apperror.InvalidSignature(err)
		}
		return event, apperror.InvalidPayload("", err)
	}
	return event, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrTooOld)
}

func decodeEventObject(event stripe.Event, into interface{}) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return apperror.InvalidPayload("event has no data object", nil)
	}
	if err := json.Unmarshal(event.Data.Raw, into); err != nil {
		return apperror.InvalidPayload("", err)
	}
	return nil
}

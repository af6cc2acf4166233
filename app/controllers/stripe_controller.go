package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/internal/pkg/billing"
	"github.com/tubtip/tubtip/internal/pkg/usercontext"
)

// HandleConnect starts payout onboarding and returns the hosted URL.
func (h *Controller) HandleConnect(c *fiber.Ctx) error {
	var in billing.ConnectInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	acct, err := h.Accounts.Current(c.UserContext(), usercontext.GetAccountID(c))
	if err != nil {
		return err
	}
	link, err := h.Billing.StartPayoutOnboarding(c.UserContext(), acct, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": link})
}

// HandleConnectCallback sends the creator to the success or failure page.
func (h *Controller) HandleConnectCallback(c *fiber.Ctx) error {
	return c.Redirect(h.Billing.ConnectRedirect(c.UserContext(), usercontext.GetAccountID(c)), fiber.StatusTemporaryRedirect)
}

// HandleCheckout prices a tip and returns the hosted checkout URL.
func (h *Controller) HandleCheckout(c *fiber.Ctx) error {
	var in billing.CheckoutInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	link, err := h.Billing.CreateCheckout(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": link})
}

func (h *Controller) HandleCheckoutWebhook(c *fiber.Ctx) error {
	return h.handleWebhook(c, h.Stripe.CheckoutWebhookSecret)
}

func (h *Controller) HandleConnectWebhook(c *fiber.Ctx) error {
	return h.handleWebhook(c, h.Stripe.ConnectWebhookSecret)
}

// handleWebhook verifies the signature against the endpoint's own secret
// before anything is read from the payload.
func (h *Controller) handleWebhook(c *fiber.Ctx, secret string) error {
	event, err := billing.VerifyEvent(c.Body(), c.Get(billing.SignatureHeader), secret)
	if err != nil {
		h.log.Warn().Err(err).Str("path", c.Path()).Msg("rejected webhook")
		return err
	}
	result, err := h.Billing.HandleEvent(c.UserContext(), event)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": result})
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/app/repository"
	"github.com/tubtip/tubtip/internal/pkg/apperror"
	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/jobqueue"
	"github.com/tubtip/tubtip/internal/pkg/logger"
	"github.com/tubtip/tubtip/internal/pkg/mail"
	"github.com/tubtip/tubtip/internal/pkg/metrics"
)

// EmailQueue accepts notification jobs.
type EmailQueue interface {
	EnqueueSendEmail(ctx context.Context, payload jobqueue.SendEmailJobPayload) (*jobqueue.Job, error)
}

// Service issues payment links and reconciles processor webhooks into tips.
type Service struct {
	profiles    repository.ProfileRepository
	tips        repository.TipRepository
	gateway     Gateway
	emails      EmailQueue
	cfg         config.StripeConfig
	frontendURL string
	log         zerolog.Logger
}

func NewService(repos *repository.Repositories, gateway Gateway, emails EmailQueue, cfg config.StripeConfig, frontendURL string) *Service {
	return &Service{
		profiles:    repos.Profile,
		tips:        repos.Tip,
		gateway:     gateway,
		emails:      emails,
		cfg:         cfg,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         logger.WithComponent("billing"),
	}
}

// StartPayoutOnboarding creates (or reuses) the creator's payout account and
// returns the hosted onboarding URL.
func (s *Service) StartPayoutOnboarding(ctx context.Context, account *models.Account, in ConnectInput) (string, error) {
	if err := models.Validate.Struct(in); err != nil {
		return "", apperror.FromValidator(err)
	}
	profile, err := s.profiles.GetByAccountID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperror.NotFound("Creator profile not found")
		}
		return "", apperror.Internal(err)
	}
	if profile.PayoutConnected {
		return "", apperror.Conflict("Bank account already connected")
	}

	pricing, err := ResolveCountryPricing(in.Country)
	if err != nil {
		return "", apperror.FieldValidation("country", fmt.Sprintf("%s is not supported", in.Country))
	}

	// an unfinished onboarding for the same country can be resumed
	payoutID := ""
	if profile.PayoutAccountID != nil && profile.CountryName() == pricing.Country {
		payoutID = *profile.PayoutAccountID
	}
	if payoutID == "" {
		payoutID, err = s.gateway.CreatePayoutAccount(ctx, account.Email, pricing.CountryCode, profile.YoutubeURL())
		if err != nil {
			return "", apperror.Internal(err)
		}
		s.log.Info().Uint("profile_id", profile.ID).Str("country", pricing.CountryCode).Msg("payout account created")
	}

	link, err := s.gateway.CreateOnboardingLink(ctx, payoutID, s.cfg.ConnectReturnURL, s.cfg.ConnectRefreshURL)
	if err != nil {
		return "", apperror.Internal(err)
	}

	country := pricing.Country
	if _, err := s.profiles.Update(ctx, profile.ID, repository.ProfilePatch{
		PayoutAccountID: &payoutID,
		Country:         &country,
	}); err != nil {
		return "", apperror.Internal(err)
	}
	return link, nil
}

// ConnectRedirect picks the frontend page shown after onboarding returns.
func (s *Service) ConnectRedirect(ctx context.Context, accountID uint) string {
	profile, err := s.profiles.GetByAccountID(ctx, accountID)
	if err != nil || !profile.PayoutConnected {
		return s.cfg.ConnectFailureURL
	}
	return s.cfg.ConnectSuccessURL
}

// CreateCheckout prices a tip for the creator and returns the hosted
// checkout URL.
func (s *Service) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	in.Name = trimmedOrNil(in.Name)
	in.Message = trimmedOrNil(in.Message)
	if err := models.Validate.Struct(in); err != nil {
		return "", apperror.FromValidator(err)
	}

	profile, err := s.profiles.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperror.NotFound("Creator profile not found")
		}
		return "", apperror.Internal(err)
	}
	if !profile.PayoutConnected || profile.PayoutAccountID == nil {
		return "", apperror.FieldValidation("username", "Creator cannot receive tips yet")
	}
	pricing, err := ResolveCountryPricing(profile.CountryName())
	if err != nil {
		return "", apperror.FieldValidation("username", "Creator cannot receive tips yet")
	}

	amount := ComputeAmount(in.Units, pricing.UnitTipValue)
	req := CheckoutRequest{
		ProfileID:      profile.ID,
		Amount:         amount,
		Currency:       pricing.Currency,
		PayeeAccountID: *profile.PayoutAccountID,
		ApplicationFee: ComputeFee(amount, s.cfg.FeePercent),
		DisplayName:    profile.DisplayName,
		SuccessURL:     s.resultURL(in.Username, "success", amount, nil),
		CancelURL:      s.resultURL(in.Username, "cancel", amount, in.Message),
		Metadata: TipMetadata{
			ProfileID: profile.ID,
			Name:      in.Name,
			Message:   in.Message,
			IsPrivate: in.IsPrivate,
		},
	}
	checkoutURL, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", apperror.Internal(err)
	}
	return checkoutURL, nil
}

func (s *Service) resultURL(username, result string, amount int64, message *string) string {
	q := url.Values{}
	q.Set("result", result)
	q.Set("amount", strconv.FormatInt(amount, 10))
	if message != nil {
		q.Set("message", *message)
	}
	return fmt.Sprintf("%s/%s?%s", s.frontendURL, url.PathEscape(username), q.Encode())
}

// checkoutSession is the subset of the session object the reconciler reads.
type checkoutSession struct {
	ID              string            `json:"id"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	Customer        *stripe.Customer  `json:"customer"`
	CustomerDetails *customerDetails  `json:"customer_details"`
	Metadata        map[string]string `json:"metadata"`
}

type customerDetails struct {
	Email string `json:"email"`
}

// HandleCheckoutCompleted records the tip for a completed checkout exactly
// once per session id and queues the supporter's receipt email.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, event stripe.Event) (WebhookResult, error) {
	result, err := s.handleCheckoutCompleted(ctx, event)
	s.observe(EventCheckoutCompleted, result, err)
	return result, err
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) (WebhookResult, error) {
	var session checkoutSession
	if err := decodeEventObject(event, &session); err != nil {
		return "", err
	}
	if session.ID == "" {
		return "", apperror.InvalidPayload("checkout session has no id", nil)
	}

	if _, err := s.tips.GetBySessionID(ctx, session.ID); err == nil {
		return ResultDuplicate, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", apperror.Internal(err)
	}

	meta, err := DecodeTipMetadata(session.Metadata)
	if err != nil {
		return "", apperror.InvalidPayload("invalid checkout metadata", err)
	}
	profile, err := s.profiles.GetByID(ctx, meta.ProfileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperror.InvalidPayload("unknown creator profile", err)
		}
		return "", apperror.Internal(err)
	}

	tip := &models.Tip{
		ProfileID:         profile.ID,
		Amount:            session.AmountTotal,
		Currency:          strings.ToLower(session.Currency),
		Name:              meta.Name,
		Message:           meta.Message,
		IsPrivate:         meta.IsPrivate,
		CheckoutSessionID: session.ID,
	}
	created, err := s.tips.CreateIfNotExists(ctx, tip)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if !created {
		return ResultDuplicate, nil
	}
	metrics.TipsRecordedTotal.WithLabelValues(tip.Currency).Inc()
	s.log.Info().Uint("profile_id", profile.ID).Str("session_id", session.ID).Int64("amount", tip.Amount).Msg("tip recorded")

	s.notifySupporter(ctx, session, profile, tip)
	return ResultRecorded, nil
}

// notifySupporter is best effort: the tip stays recorded when it fails.
func (s *Service) notifySupporter(ctx context.Context, session checkoutSession, profile *models.Profile, tip *models.Tip) {
	email := ""
	if session.Customer != nil && session.Customer.ID != "" {
		var err error
		email, err = s.gateway.CustomerEmail(ctx, session.Customer.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("customer lookup failed")
		}
	}
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}
	if email == "" {
		s.log.Warn().Str("session_id", session.ID).Msg("no supporter email, skipping receipt")
		return
	}

	_, err := s.emails.EnqueueSendEmail(ctx, jobqueue.SendEmailJobPayload{
		To:       email,
		Template: string(mail.TemplatePaymentSuccess),
		Data: map[string]string{
			"display_name": profile.DisplayName,
			"amount":       FormatMajor(tip.Amount),
			"currency":     tip.Currency,
		},
	})
	if err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("enqueue receipt email failed")
	}
}

// HandleAccountUpdated marks the payout account connected once the
// processor enables charges. The flag never goes back to false here.
func (s *Service) HandleAccountUpdated(ctx context.Context, event stripe.Event) (WebhookResult, error) {
	result, err := s.handleAccountUpdated(ctx, event)
	s.observe(EventAccountUpdated, result, err)
	return result, err
}

func (s *Service) handleAccountUpdated(ctx context.Context, event stripe.Event) (WebhookResult, error) {
	var acct stripe.Account
	if err := decodeEventObject(event, &acct); err != nil {
		return "", err
	}
	if acct.ID == "" {
		return "", apperror.InvalidPayload("account has no id", nil)
	}
	if !acct.ChargesEnabled {
		return ResultIgnored, nil
	}

	profile, err := s.profiles.MarkPayoutConnected(ctx, acct.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Str("account_id", acct.ID).Msg("account.updated for unknown payout account")
			return ResultIgnored, nil
		}
		return "", apperror.Internal(err)
	}
	s.log.Info().Uint("profile_id", profile.ID).Msg("payout account connected")
	return ResultRecorded, nil
}

// HandleEvent dispatches a verified event by type. Unhandled types are
// acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) (WebhookResult, error) {
	switch string(event.Type) {
	case EventCheckoutCompleted:
		return s.HandleCheckoutCompleted(ctx, event)
	case EventAccountUpdated:
		return s.HandleAccountUpdated(ctx, event)
	default:
		s.observe(string(event.Type), ResultIgnored, nil)
		return ResultIgnored, nil
	}
}

func (s *Service) observe(eventType string, result WebhookResult, err error) {
	label := string(result)
	if err != nil {
		label = string(apperror.From(err).Kind)
	}
	metrics.WebhookEventsTotal.WithLabelValues(eventType, label).Inc()
}

// FormatMajor renders minor units as a decimal amount, e.g. 500 -> "5.00".
func FormatMajor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

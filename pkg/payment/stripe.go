package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"expertly/pkg/logger"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
	// BaseURL overrides the API endpoint; empty means the provider's default.
	BaseURL string
}

type StripeGateway struct {
	api *client.API
	log *logger.Logger
}

func NewStripeGateway(cfg StripeConfig, log *logger.Logger) *StripeGateway {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var backends *stripe.Backends
	if cfg.BaseURL == "" {
		backends = stripe.NewBackends(httpClient)
	} else {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(cfg.BaseURL),
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(0),
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}

	return &StripeGateway{
		api: client.New(cfg.SecretKey, backends),
		log: log,
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountCents),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.log.Error("Stripe create payment intent failed", "amount_cents", p.AmountCents, "error", err)
		return nil, translateStripeError(err)
	}

	g.log.Info("Stripe payment intent created", "intent_id", pi.ID, "status", pi.Status)
	return toIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		g.log.Error("Stripe retrieve payment intent failed", "intent_id", intentID, "error", err)
		return nil, translateStripeError(err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethod string) (*Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	if paymentMethod != "" {
		params.PaymentMethod = stripe.String(paymentMethod)
	}

	pi, err := g.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		g.log.Error("Stripe confirm payment intent failed", "intent_id", intentID, "error", err)
		return nil, translateStripeError(err)
	}

	g.log.Info("Stripe payment intent confirmed", "intent_id", pi.ID, "status", pi.Status)
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       IntentStatus(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}
}

func translateStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return fmt.Errorf("%w: %s", ErrIntentMissing, stripeErr.Msg)
		}
		if stripeErr.Msg != "" {
			return fmt.Errorf("%w: %s", ErrGateway, stripeErr.Msg)
		}
	}
	return fmt.Errorf("%w: %v", ErrGateway, err)
}

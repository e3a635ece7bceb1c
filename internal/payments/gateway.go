package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"worldtour/internal/shared/config"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
)

// ErrPaymentGateway wraps every failure reported by a payment provider
var ErrPaymentGateway = errors.New("payment gateway error")

// minStripeSessionLifetime is the shortest expires_at Stripe accepts
const minStripeSessionLifetime = 30 * time.Minute

// SessionRequest describes a single-line checkout. Amount is in minor units.
// Requests carrying the same IdempotencyKey open the same session.
type SessionRequest struct {
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	ExpiresAt      *time.Time
	IdempotencyKey string
}

// Session is a hosted checkout the customer is redirected to. Open is false
// once the session completed or expired.
type Session struct {
	ID   string
	URL  string
	Open bool
}

// Gateway opens and looks up payment sessions with a provider
type Gateway interface {
	CreatePaymentSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetPaymentSession(ctx context.Context, sessionID string) (*Session, error)
}

// NewGateway picks the provider configured by PAYMENT_PROVIDER
func NewGateway(cfg *config.Config) Gateway {
	if cfg.UsesStripe() {
		return NewStripeGateway(stripe.NewClient(cfg.Payments.StripeSecretKey), cfg.Payments)
	}
	return NewSimulatedGateway(cfg.GetAPIBasePath())
}

// StripeGateway opens Stripe Checkout Sessions
type StripeGateway struct {
	client *stripe.Client
	cfg    config.PaymentsConfig
}

func NewStripeGateway(client *stripe.Client, cfg config.PaymentsConfig) *StripeGateway {
	return &StripeGateway{client: client, cfg: cfg}
}

func (g *StripeGateway) CreatePaymentSession(ctx context.Context, req SessionRequest) (*Session, error) {
	cs, err := g.client.V1CheckoutSessions.Create(ctx, checkoutParams(req, g.cfg, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}
	return stripeSession(cs), nil
}

func (g *StripeGateway) GetPaymentSession(ctx context.Context, sessionID string) (*Session, error) {
	cs, err := g.client.V1CheckoutSessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}
	return stripeSession(cs), nil
}

func stripeSession(cs *stripe.CheckoutSession) *Session {
	return &Session{ID: cs.ID, URL: cs.URL, Open: cs.Status == stripe.CheckoutSessionStatusOpen}
}

func checkoutParams(req SessionRequest, cfg config.PaymentsConfig, now time.Time) *stripe.CheckoutSessionCreateParams {
	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String("payment"),
		SuccessURL: stripe.String(cfg.SuccessURL),
		CancelURL:  stripe.String(cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: req.Metadata,
	}
	// the session must not outlive the hold it pays for
	if req.ExpiresAt != nil && req.ExpiresAt.Sub(now) >= minStripeSessionLifetime {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	return params
}

// SimulatedGateway settles nothing; the session is resolved by calling the
// simulated result endpoint.
type SimulatedGateway struct {
	basePath string
}

func NewSimulatedGateway(basePath string) *SimulatedGateway {
	return &SimulatedGateway{basePath: basePath}
}

func (g *SimulatedGateway) CreatePaymentSession(_ context.Context, req SessionRequest) (*Session, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrPaymentGateway)
	}
	id := "sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return g.session(id), nil
}

// GetPaymentSession reports simulated sessions as open until a result is posted,
// after which the booking is no longer pending and the session is not reused.
func (g *SimulatedGateway) GetPaymentSession(_ context.Context, sessionID string) (*Session, error) {
	if !strings.HasPrefix(sessionID, "sim_") {
		return nil, fmt.Errorf("%w: unknown simulated session %s", ErrPaymentGateway, sessionID)
	}
	return g.session(sessionID), nil
}

func (g *SimulatedGateway) session(id string) *Session {
	return &Session{ID: id, URL: g.basePath + "/payments/simulated/" + id, Open: true}
}

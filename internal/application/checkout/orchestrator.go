// Package checkout drives a single checkout attempt: collecting addresses,
// placing the order, obtaining a payment intent and reacting to the hosted
// payment UI.
package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Step is the visible checkout step.
type Step string

const (
	StepCollectingInfo  Step = "collecting_info"
	StepAwaitingPayment Step = "awaiting_payment"
)

// Session is the state of one checkout attempt. It is never persisted.
type Session struct {
	Shipping       valueobject.Address
	Billing        valueobject.Address
	SameAsShipping bool
	Step           Step
	OrderID        string
	ClientSecret   string
	Processing     bool
	// IdempotencyKey is sent with every placement for the current cart and
	// address combination.
	IdempotencyKey string
	LastError      *StageError
	Completed      bool
}

// Orchestrator coordinates the cart store, order placement and the payment
// gateway for one session. Create a new Orchestrator per checkout attempt.
type Orchestrator struct {
	cart      CartStore
	placer    OrderPlacer
	payments  payment.IntentGateway
	navigator Navigator
	notifier  Notifier
	logger    *zap.Logger

	userID   string
	currency valueobject.Currency
	newKey   func() string

	mu        sync.Mutex
	session   Session
	placedFor string
	abandoned bool
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithUserID attaches the signed-in shopper to placements.
func WithUserID(userID string) Option {
	return func(o *Orchestrator) { o.userID = userID }
}

// WithCurrency sets the charge currency. Defaults to CAD.
func WithCurrency(c valueobject.Currency) Option {
	return func(o *Orchestrator) {
		if c != "" {
			o.currency = c
		}
	}
}

// WithNotifier sets where stage failures are shown.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the orchestrator logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKeyGenerator replaces the idempotency key generator.
func WithKeyGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newKey = gen
		}
	}
}

// New starts a fresh session in the collecting_info step with blank
// address forms and same-as-shipping enabled.
func New(store CartStore, placer OrderPlacer, payments payment.IntentGateway, nav Navigator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cart:      store,
		placer:    placer,
		payments:  payments,
		navigator: nav,
		notifier:  nopNotifier{},
		logger:    zap.NewNop(),
		currency:  valueobject.DefaultCurrency,
		newKey:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.session = Session{
		Shipping:       valueobject.NewBlankAddress(),
		Billing:        valueobject.NewBlankAddress(),
		SameAsShipping: true,
		Step:           StepCollectingInfo,
		IdempotencyKey: o.newKey(),
	}
	return o
}

// Snapshot returns a copy of the session for rendering.
func (o *Orchestrator) Snapshot() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// IsCartEmpty reports whether checkout should render the empty-cart view.
func (o *Orchestrator) IsCartEmpty() bool {
	return o.cart.IsEmpty()
}

func (o *Orchestrator) editable() error {
	if o.abandoned {
		return ErrAbandoned
	}
	if o.session.Processing {
		return ErrBusy
	}
	if o.session.Step != StepCollectingInfo {
		return ErrWrongStep
	}
	return nil
}

// SetShipping replaces the shipping form.
func (o *Orchestrator) SetShipping(a valueobject.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editable(); err != nil {
		return err
	}
	o.session.Shipping = a
	return nil
}

// SetBilling replaces the billing form. It is ignored at Continue time while
// same-as-shipping is set.
func (o *Orchestrator) SetBilling(a valueobject.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editable(); err != nil {
		return err
	}
	o.session.Billing = a
	return nil
}

// SetSameAsShipping toggles copying the shipping address into billing.
func (o *Orchestrator) SetSameAsShipping(same bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.editable(); err != nil {
		return err
	}
	o.session.SameAsShipping = same
	return nil
}

// Continue moves from collecting_info to awaiting_payment. It places the
// order (or reuses the order already placed for an identical cart and
// addresses), then requests a payment intent for the cart total.
//
// On failure the session stays in collecting_info and the returned error is
// a *StageError naming the failed stage. Processing is cleared on every path.
// An empty cart returns ErrEmptyCart without calling any collaborator.
func (o *Orchestrator) Continue(ctx context.Context) error {
	if o.cart.IsEmpty() {
		return ErrEmptyCart
	}

	o.mu.Lock()
	if err := o.editable(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.session.Processing = true
	o.session.LastError = nil
	sess := o.session
	placedFor := o.placedFor
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.session.Processing = false
		o.mu.Unlock()
	}()

	billing := sess.Billing
	if sess.SameAsShipping {
		billing = sess.Shipping
	}

	req := o.buildOrderRequest(sess.Shipping, billing, sess.SameAsShipping)
	req.IdempotencyKey = sess.IdempotencyKey
	fingerprint := placementFingerprint(o.cart.Fingerprint(), sess.Shipping, billing)

	orderID := sess.OrderID
	if orderID == "" || placedFor != fingerprint {
		key := req.IdempotencyKey
		if placedFor != "" {
			// The cart or addresses changed since the last placement.
			key = o.newKey()
		}
		req.IdempotencyKey = key

		result, err := o.placer.PlaceOrder(ctx, req, o.userID)
		if err == nil && (result == nil || result.OrderID == "") {
			err = errors.New("order placement returned no order id")
		}
		if err != nil {
			return o.fail(StageOrderPlacement, err)
		}

		orderID = result.OrderID
		if !o.apply(func(s *Session) {
			s.OrderID = orderID
			s.IdempotencyKey = key
			o.placedFor = fingerprint
		}) {
			return ErrAbandoned
		}
		o.logger.Info("Order placed",
			zap.String("order_id", orderID),
			zap.Bool("replayed", result.Replayed),
			zap.Int("lines", len(req.Items)))
	} else {
		o.logger.Info("Reusing order placed for unchanged cart", zap.String("order_id", orderID))
	}

	total, err := valueobject.NewMoney(req.Total, o.currency)
	if err != nil {
		return o.fail(StagePaymentIntent, err)
	}
	intent, err := o.payments.CreatePaymentIntent(ctx, payment.IntentRequest{
		AmountMinor:    total.MinorUnits(),
		Currency:       o.currency,
		OrderID:        orderID,
		ReceiptEmail:   sess.Shipping.Email,
		IdempotencyKey: fmt.Sprintf("%s:%s:%d", req.IdempotencyKey, orderID, total.MinorUnits()),
	})
	if err == nil && (intent == nil || intent.ClientSecret == "") {
		err = payment.ErrMissingClientSecret
	}
	if err != nil {
		return o.fail(StagePaymentIntent, err)
	}

	if !o.apply(func(s *Session) {
		s.ClientSecret = intent.ClientSecret
		s.Step = StepAwaitingPayment
	}) {
		return ErrAbandoned
	}
	o.logger.Info("Payment intent ready",
		zap.String("order_id", orderID),
		zap.Int64("amount_minor", total.MinorUnits()))
	return nil
}

// Back returns from awaiting_payment to collecting_info. The client secret is
// discarded; the order id and form data are kept. It is a no-op in
// collecting_info.
func (o *Orchestrator) Back() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.abandoned {
		return ErrAbandoned
	}
	if o.session.Completed {
		return ErrWrongStep
	}
	if o.session.Step != StepAwaitingPayment {
		return nil
	}
	o.session.ClientSecret = ""
	o.session.Step = StepCollectingInfo
	return nil
}

// OnPaymentSuccess handles confirmation from the hosted payment UI: it clears
// the cart and navigates to the confirmation view with the order id.
// Repeated calls leave the cart empty and navigate only once. Before a
// payment has been initialized it returns ErrWrongStep and changes nothing.
func (o *Orchestrator) OnPaymentSuccess(ctx context.Context) error {
	o.mu.Lock()
	first := !o.session.Completed
	if first && (o.session.Step != StepAwaitingPayment || o.session.OrderID == "") {
		o.mu.Unlock()
		return ErrWrongStep
	}
	o.session.Completed = true
	o.session.LastError = nil
	orderID := o.session.OrderID
	o.mu.Unlock()

	err := o.cart.ClearCart(ctx)
	if err != nil {
		o.logger.Warn("Failed to persist cleared cart",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
	if first {
		o.logger.Info("Payment confirmed", zap.String("order_id", orderID))
		if o.navigator != nil {
			o.navigator.ToConfirmation(orderID)
		}
	}
	return err
}

// OnPaymentFailure records a confirmation failure reported by the hosted
// payment UI. The session stays in awaiting_payment so the shopper can retry
// confirmation without placing the order again.
func (o *Orchestrator) OnPaymentFailure(cause error) *StageError {
	if cause == nil {
		cause = errors.New("payment was not confirmed")
	}
	se := &StageError{Stage: StagePaymentConfirmation, Err: cause}

	o.mu.Lock()
	if o.session.Step == StepAwaitingPayment && !o.session.Completed {
		o.session.LastError = se
	}
	orderID := o.session.OrderID
	o.mu.Unlock()

	o.logger.Warn("Payment confirmation failed",
		zap.String("order_id", orderID),
		zap.Error(cause))
	o.notifier.Notify(se)
	return se
}

// Abandon marks the session as discarded. Results of in-flight collaborator
// calls are dropped when they return.
func (o *Orchestrator) Abandon() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.abandoned = true
}

// apply mutates the session unless it was abandoned.
func (o *Orchestrator) apply(fn func(s *Session)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.abandoned {
		return false
	}
	fn(&o.session)
	return true
}

func (o *Orchestrator) fail(stage Stage, err error) error {
	se := &StageError{Stage: stage, Err: err}
	if !o.apply(func(s *Session) { s.LastError = se }) {
		return ErrAbandoned
	}
	o.logger.Warn("Checkout stage failed",
		zap.String("stage", string(stage)),
		zap.Error(err))
	o.notifier.Notify(se)
	return se
}

func (o *Orchestrator) buildOrderRequest(shipping, billing valueobject.Address, same bool) order.PlaceOrderRequest {
	items := o.cart.Items()
	lines := make([]order.LineItem, 0, len(items))
	for _, it := range items {
		price, _ := it.Product.UnitPrice()
		lines = append(lines, order.LineItem{
			ProductID:   it.Product.ID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
	}
	return order.PlaceOrderRequest{
		Total:          o.cart.TotalPrice(),
		Currency:       o.currency,
		Status:         order.StatusPending,
		Items:          lines,
		Shipping:       shipping,
		Billing:        billing,
		SameAsShipping: same,
	}
}

// placementFingerprint identifies what an order was placed for.
func placementFingerprint(cartFingerprint string, shipping, billing valueobject.Address) string {
	h := sha256.New()
	h.Write([]byte(cartFingerprint))
	enc := json.NewEncoder(h)
	_ = enc.Encode(shipping.Normalize())
	_ = enc.Encode(billing.Normalize())
	return hex.EncodeToString(h.Sum(nil))
}

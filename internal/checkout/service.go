// Package checkout turns a client-supplied cart into a financially consistent
// order. Every monetary figure is recomputed from the catalog at submission
// time; client-side prices are never trusted or stored.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aldomata/storefront-checkout/internal/catalog"
	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
	"github.com/aldomata/storefront-checkout/internal/customer"
	"github.com/aldomata/storefront-checkout/internal/outbox"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
)

const (
	// TaxRate is the flat rate applied to the subtotal.
	TaxRate = 0.10
	// ExpressDeliveryFee is charged when deliveryMethod == "express".
	ExpressDeliveryFee = 50.0

	DeliveryExpress = "express"

	// createAttempts bounds order-number retry-on-conflict.
	createAttempts = 3

	idempotencyTTL = 24 * time.Hour
)

// LineInput is one cart line as submitted by the client. Quantity must be >= 1;
// no price field exists on purpose.
type LineInput struct {
	Kind     domain.ItemKind
	ItemID   string
	Quantity int
}

// Request is a checkout submission.
type Request struct {
	Lines []LineInput

	FullName        string
	Email           string
	Phone           string
	DeliveryAddress string
	City            string
	PostalCode      string
	Instructions    string
	DeliveryMethod  string

	PaymentMethod string

	// IdempotencyKey, when present, makes a replayed submission return the
	// first result instead of creating a second order.
	IdempotencyKey string
}

// Result is the caller-facing view of a created order.
type Result struct {
	OrderID       string               `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	TotalAmount   float64              `json:"total_amount"`
	OrderStatus   domain.OrderStatus   `json:"order_status"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

// IdempotencyCache is the replay cache port; nil disables idempotency.
type IdempotencyCache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GenerateKey(operation, key string) string
}

type Service struct {
	repo      Repository
	catalog   catalog.Lookup
	customers customer.Resolver
	idem      IdempotencyCache

	genNumber NumberGenerator
	newID     func() string
	now       func() time.Time
}

func NewService(repo Repository, lookup catalog.Lookup, customers customer.Resolver, idem IdempotencyCache) *Service {
	return &Service{
		repo:      repo,
		catalog:   lookup,
		customers: customers,
		idem:      idem,
		genNumber: DefaultNumberGenerator,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Checkout validates the request, resolves authoritative prices, computes
// totals and persists the order as pending/pending. All-or-nothing: a single
// unresolvable line aborts the whole request and no order row is written.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if len(req.Lines) == 0 {
		return nil, apperr.New(apperr.KindValidation, "no items")
	}
	if err := validateCustomerFields(req); err != nil {
		return nil, err
	}

	if cached, ok := s.replayedResult(ctx, req.IdempotencyKey); ok {
		return cached, nil
	}

	if _, err := s.customers.ResolveByEmail(ctx, strings.TrimSpace(req.Email)); err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("checkout: resolve customer: %w", err)
	}

	lines, err := s.resolveLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(req, lines)

	if err := s.createWithRetry(ctx, order); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"order_type", order.OrderType,
		"total_amount", order.TotalAmount,
	)

	result := &Result{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		TotalAmount:   order.TotalAmount,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
	}
	s.storeResult(ctx, req.IdempotencyKey, result)
	return result, nil
}

// GetOrder returns the order for a status view.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "load order", err)
	}
	return order, nil
}

func validateCustomerFields(req Request) error {
	required := []string{req.FullName, req.Email, req.Phone, req.DeliveryAddress}
	for _, f := range required {
		if strings.TrimSpace(f) == "" {
			return apperr.New(apperr.KindValidation, "missing customer information")
		}
	}
	for _, l := range req.Lines {
		if !l.Kind.Valid() {
			return apperr.Newf(apperr.KindValidation, "unknown item kind %q", l.Kind)
		}
		if l.ItemID == "" {
			return apperr.New(apperr.KindValidation, "missing item id")
		}
		if l.Quantity < 1 {
			return apperr.Newf(apperr.KindValidation, "invalid quantity for item %s", l.ItemID)
		}
	}
	return nil
}

// resolveLines snapshots every line against the catalog. Any single miss
// aborts the request, naming the item so the client can fix its stale cart.
func (s *Service) resolveLines(ctx context.Context, inputs []LineInput) ([]domain.OrderLine, error) {
	lines := make([]domain.OrderLine, 0, len(inputs))
	for _, in := range inputs {
		item, err := s.catalog.Resolve(ctx, in.Kind, in.ItemID)
		if errors.Is(err, catalog.ErrItemNotFound) {
			return nil, apperr.Newf(apperr.KindNotFound, "%s %s not found", in.Kind, in.ItemID)
		}
		if err != nil {
			return nil, fmt.Errorf("checkout: resolve %s %s: %w", in.Kind, in.ItemID, err)
		}

		lines = append(lines, domain.OrderLine{
			Kind:      in.Kind,
			ItemID:    in.ItemID,
			ItemName:  item.Name,
			Quantity:  in.Quantity,
			UnitPrice: item.Price,
			LineTotal: round2(item.Price * float64(in.Quantity)),
		})
	}
	return lines, nil
}

func (s *Service) buildOrder(req Request, lines []domain.OrderLine) *domain.Order {
	subtotal := 0.0
	for _, l := range lines {
		subtotal += l.LineTotal
	}
	subtotal = round2(subtotal)

	deliveryCost := 0.0
	if strings.EqualFold(req.DeliveryMethod, DeliveryExpress) {
		deliveryCost = ExpressDeliveryFee
	}
	tax := round2(subtotal * TaxRate)

	now := s.now().UTC()
	return &domain.Order{
		ID:          s.newID(),
		OrderNumber: s.genNumber(now),
		Customer: domain.Customer{
			FullName:        req.FullName,
			Email:           strings.TrimSpace(req.Email),
			Phone:           req.Phone,
			DeliveryAddress: req.DeliveryAddress,
			City:            req.City,
			PostalCode:      req.PostalCode,
			Instructions:    req.Instructions,
			DeliveryMethod:  req.DeliveryMethod,
		},
		OrderType:     domain.DeriveOrderType(lines),
		Lines:         lines,
		Subtotal:      subtotal,
		DeliveryCost:  deliveryCost,
		Tax:           tax,
		TotalAmount:   round2(subtotal + deliveryCost + tax),
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: domain.PaymentPending,
		OrderStatus:   domain.OrderPending,
		CreatedAt:     now,
	}
}

// createWithRetry persists the order, regenerating the order number on a
// uniqueness conflict up to createAttempts times.
func (s *Service) createWithRetry(ctx context.Context, order *domain.Order) error {
	for attempt := 1; ; attempt++ {
		event, err := outbox.NewEvent(order.ID, outbox.EventOrderCreated, orderEventPayload(order))
		if err != nil {
			return apperr.Wrap(apperr.KindPersistence, "build order event", err)
		}

		err = s.repo.Create(ctx, order, event)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateOrderNumber) {
			return apperr.Wrap(apperr.KindPersistence, "persist order", err)
		}
		if attempt == createAttempts {
			return apperr.Wrap(apperr.KindPersistence, "persist order", err)
		}

		slog.WarnContext(ctx, "order number collision, regenerating",
			"order_number", order.OrderNumber, "attempt", attempt)
		order.OrderNumber = s.genNumber(s.now().UTC())
	}
}

func (s *Service) replayedResult(ctx context.Context, idemKey string) (*Result, bool) {
	if s.idem == nil || idemKey == "" {
		return nil, false
	}
	raw, err := s.idem.Get(ctx, s.idem.GenerateKey("checkout", idemKey))
	if err != nil {
		// Cache trouble must not block checkout; it only costs replay safety.
		slog.WarnContext(ctx, "idempotency cache read failed", "error", err)
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		slog.WarnContext(ctx, "idempotency cache entry corrupt", "error", err)
		return nil, false
	}
	slog.InfoContext(ctx, "duplicate checkout replayed from cache",
		"idempotency_key", idemKey, "order_id", res.OrderID)
	return &res, true
}

func (s *Service) storeResult(ctx context.Context, idemKey string, res *Result) {
	if s.idem == nil || idemKey == "" {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	key := s.idem.GenerateKey("checkout", idemKey)
	if err := s.idem.Set(ctx, key, string(raw), idempotencyTTL); err != nil {
		slog.WarnContext(ctx, "idempotency cache write failed", "error", err)
	}
}

func orderEventPayload(order *domain.Order) map[string]any {
	return map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"order_type":   order.OrderType,
		"email":        order.Customer.Email,
		"total_amount": order.TotalAmount,
		"created_at":   order.CreatedAt,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldomata/storefront-checkout/internal/catalog"
	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
	"github.com/aldomata/storefront-checkout/internal/customer"
	"github.com/aldomata/storefront-checkout/internal/outbox"
	"github.com/aldomata/storefront-checkout/internal/pkg/apperr"
)

// mockRepo implements Repository for testing.
type mockRepo struct {
	created      []*domain.Order
	events       []outbox.Event
	dupConflicts int // number of Create calls that fail with a number conflict
	createErr    error
}

func (m *mockRepo) Create(_ context.Context, order *domain.Order, event outbox.Event) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.dupConflicts > 0 {
		m.dupConflicts--
		return ErrDuplicateOrderNumber
	}
	cp := *order
	m.created = append(m.created, &cp)
	m.events = append(m.events, event)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	for _, o := range m.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (m *mockRepo) AttachIntent(_ context.Context, _, _ string) error { return nil }

func (m *mockRepo) FinalizePayment(_ context.Context, _ string, _ outbox.Event) (FinalizeResult, error) {
	return FinalizeApplied, nil
}

func (m *mockRepo) ListPendingBefore(_ context.Context, _ time.Time, _ int) ([]*domain.Order, error) {
	return nil, nil
}

// fakeCatalog resolves from a fixed map keyed by "kind/id".
type fakeCatalog struct {
	items map[string]catalog.Item
}

func (f *fakeCatalog) Resolve(_ context.Context, kind domain.ItemKind, itemID string) (catalog.Item, error) {
	item, ok := f.items[fmt.Sprintf("%s/%s", kind, itemID)]
	if !ok {
		return catalog.Item{}, catalog.ErrItemNotFound
	}
	return item, nil
}

type fakeResolver struct {
	known map[string]customer.Customer
}

func (f *fakeResolver) ResolveByEmail(_ context.Context, email string) (customer.Customer, error) {
	c, ok := f.known[email]
	if !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	return c, nil
}

// memIdem implements IdempotencyCache in memory.
type memIdem struct {
	entries map[string]string
}

func (m *memIdem) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.entries[key] = value
	return nil
}

func (m *memIdem) Get(_ context.Context, key string) (string, error) {
	return m.entries[key], nil
}

func (m *memIdem) GenerateKey(op, key string) string { return op + ":" + key }

func newTestService(repo *mockRepo) *Service {
	cat := &fakeCatalog{items: map[string]catalog.Item{
		"product/A": {Kind: domain.KindProduct, ID: "A", Name: "Product A", Price: 10.00},
		"service/B": {Kind: domain.KindService, ID: "B", Name: "Service B", Price: 5.00},
	}}
	res := &fakeResolver{known: map[string]customer.Customer{
		"jane@example.com": {ID: "u1", Email: "jane@example.com"},
	}}
	svc := NewService(repo, cat, res, &memIdem{entries: map[string]string{}})
	svc.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }
	return svc
}

func validRequest() Request {
	return Request{
		Lines: []LineInput{
			{Kind: domain.KindProduct, ItemID: "A", Quantity: 2},
			{Kind: domain.KindService, ItemID: "B", Quantity: 1},
		},
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Phone:           "+1555000111",
		DeliveryAddress: "1 Main St",
		DeliveryMethod:  "standard",
		PaymentMethod:   "card",
	}
}

func TestCheckout_TotalsFromCatalogPrices(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	res, err := svc.Checkout(context.Background(), validRequest())

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	order := repo.created[0]

	assert.InDelta(t, 25.00, order.Subtotal, 1e-9)
	assert.InDelta(t, 2.50, order.Tax, 1e-9)
	assert.InDelta(t, 0.0, order.DeliveryCost, 1e-9)
	assert.InDelta(t, 27.50, order.TotalAmount, 1e-9)
	assert.InDelta(t, 27.50, res.TotalAmount, 1e-9)
	assert.Equal(t, domain.OrderPending, res.OrderStatus)
	assert.Equal(t, domain.PaymentPending, res.PaymentStatus)
	assert.Equal(t, domain.OrderTypeMixed, order.OrderType)
}

func TestCheckout_ExpressDeliveryFlatFee(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	req := validRequest()
	req.DeliveryMethod = "express"
	res, err := svc.Checkout(context.Background(), req)

	require.NoError(t, err)
	assert.InDelta(t, 77.50, res.TotalAmount, 1e-9)
}

func TestCheckout_SnapshotsNameAndPrice(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	_, err := svc.Checkout(context.Background(), validRequest())

	require.NoError(t, err)
	order := repo.created[0]
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "Product A", order.Lines[0].ItemName)
	assert.InDelta(t, 10.00, order.Lines[0].UnitPrice, 1e-9)
	assert.InDelta(t, 20.00, order.Lines[0].LineTotal, 1e-9)
}

func TestCheckout_EmptyItems(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	req := validRequest()
	req.Lines = nil
	_, err := svc.Checkout(context.Background(), req)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, repo.created)
}

func TestCheckout_MissingCustomerFields(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	req := validRequest()
	req.Phone = ""
	_, err := svc.Checkout(context.Background(), req)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, repo.created)
}

func TestCheckout_UnknownCustomer(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	req := validRequest()
	req.Email = "stranger@example.com"
	_, err := svc.Checkout(context.Background(), req)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, repo.created)
}

func TestCheckout_SingleMissingItemAbortsAll(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	req := validRequest()
	req.Lines = append(req.Lines, LineInput{Kind: domain.KindProduct, ItemID: "ghost", Quantity: 1})
	_, err := svc.Checkout(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	// The missing item is named so the client can reconcile its cart.
	assert.Contains(t, err.Error(), "ghost")
	assert.Empty(t, repo.created)
}

func TestCheckout_InvalidQuantity(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	req := validRequest()
	req.Lines[0].Quantity = 0
	_, err := svc.Checkout(context.Background(), req)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, repo.created)
}

func TestCheckout_OrderNumberConflictRetries(t *testing.T) {
	repo := &mockRepo{dupConflicts: 2}
	svc := newTestService(repo)

	res, err := svc.Checkout(context.Background(), validRequest())

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.NotEmpty(t, res.OrderNumber)
}

func TestCheckout_OrderNumberConflictExhausted(t *testing.T) {
	repo := &mockRepo{dupConflicts: 3}
	svc := newTestService(repo)

	_, err := svc.Checkout(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.Empty(t, repo.created)
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	req := validRequest()
	req.IdempotencyKey = "idem-1"

	first, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, repo.created, 1)
}

func TestCheckout_EnqueuesOrderCreatedEvent(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	_, err := svc.Checkout(context.Background(), validRequest())

	require.NoError(t, err)
	require.Len(t, repo.events, 1)
	assert.Equal(t, outbox.EventOrderCreated, repo.events[0].Type)
	assert.Equal(t, repo.created[0].ID, repo.events[0].AggregateID)
}

func TestCheckout_RepositoryFailure(t *testing.T) {
	repo := &mockRepo{createErr: errors.New("disk full")}
	svc := newTestService(repo)

	_, err := svc.Checkout(context.Background(), validRequest())

	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestDefaultNumberGenerator_Format(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	n := DefaultNumberGenerator(now)

	assert.Regexp(t, `^ORD-20260828-[0-9A-F]{6}$`, n)
}

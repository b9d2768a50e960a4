package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/adapter"
	"content-subscription-platform/internal/domain/ports/repository"
	"content-subscription-platform/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memPaymentRepo is a small in-memory PaymentRepository used by unit tests.
type memPaymentRepo struct {
	mu       sync.RWMutex
	byID     map[string]*model.PaymentRecord
	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error
	saves    int
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{byID: make(map[string]*model.PaymentRecord)}
}

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	if p.ConfirmedAt != nil {
		t := *p.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	m.byID[p.ID] = &cp
	m.saves++
	return nil
}

func (m *memPaymentRepo) saveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByGatewayID(ctx context.Context, tx repository.Tx, gatewayID string) (*model.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.byID {
		if p.GatewayID == gatewayID {
			cp := *p
			if p.ConfirmedAt != nil {
				t := *p.ConfirmedAt
				cp.ConfirmedAt = &t
			}
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentRecord
	for _, p := range m.byID {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) ListStaleNonTerminal(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentRecord
	for _, p := range m.byID {
		if !p.Status.IsTerminal() && p.UpdatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memPaymentRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID), nil
}

func (m *memPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.PaymentStatus]int)
	for _, p := range m.byID {
		out[p.Status]++
	}
	return out, nil
}

// memUserRepo is a small in-memory UserRepository used by unit tests.
type memUserRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.User
	saveErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	if u.Subscription.ExpiresAt != nil {
		t := *u.Subscription.ExpiresAt
		cp.Subscription.ExpiresAt = &t
	}
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	if u.Subscription.ExpiresAt != nil {
		t := *u.Subscription.ExpiresAt
		cp.Subscription.ExpiresAt = &t
	}
	return &cp, nil
}

func (m *memUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for _, u := range m.store {
		cp := *u
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *memUserRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *memUserRepo) CountActiveSubscriptions(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, u := range m.store {
		if model.EffectiveTier(u.Subscription, now) != model.TierNone {
			n++
		}
	}
	return n, nil
}

func (m *memUserRepo) CollapseExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.store {
		if u.Subscription.Collapse(now) {
			n++
		}
	}
	return n, nil
}

// memVideoRepo is a small in-memory VideoRepository used by unit tests.
type memVideoRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Video
}

func newMemVideoRepo() *memVideoRepo {
	return &memVideoRepo{store: make(map[string]*model.Video)}
}

func (m *memVideoRepo) Save(ctx context.Context, tx repository.Tx, v *model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.store[v.ID] = &cp
	return nil
}

func (m *memVideoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVideoRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Video
	for _, v := range m.store {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

// mockGateway is a function-field PaymentGateway mock.
type mockGateway struct {
	CreatePaymentFunc  func(ctx context.Context, orderID, description string, amount float64, currency, callbackURL string) (adapter.CreatedPayment, error)
	FetchStatusFunc    func(ctx context.Context, paymentID string) (adapter.StatusReport, error)
	VerifyCallbackFunc func(signature string, rawBody []byte) bool
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreatePayment(ctx context.Context, orderID, description string, amount float64, currency, callbackURL string) (adapter.CreatedPayment, error) {
	if g.CreatePaymentFunc != nil {
		return g.CreatePaymentFunc(ctx, orderID, description, amount, currency, callbackURL)
	}
	return adapter.CreatedPayment{
		PaymentID:  "gw-" + orderID,
		PayAddress: "addr-xyz",
		PaymentURL: "https://pay.example/" + orderID,
		Status:     "waiting",
	}, nil
}

func (g *mockGateway) FetchStatus(ctx context.Context, paymentID string) (adapter.StatusReport, error) {
	if g.FetchStatusFunc != nil {
		return g.FetchStatusFunc(ctx, paymentID)
	}
	return adapter.StatusReport{Status: "waiting"}, nil
}

func (g *mockGateway) VerifyCallback(signature string, rawBody []byte) bool {
	if g.VerifyCallbackFunc != nil {
		return g.VerifyCallbackFunc(signature, rawBody)
	}
	return signature == "valid"
}

// mockTxManager serializes callbacks with a mutex, mimicking the row lock the
// real TxManager gets from SELECT ... FOR UPDATE.
type mockTxManager struct {
	mu sync.Mutex
}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// memCache is an in-memory SubscriptionCache.
type memCache struct {
	mu    sync.RWMutex
	store map[string]model.SubscriptionState
}

func newMemCache() *memCache {
	return &memCache{store: make(map[string]model.SubscriptionState)}
}

func (c *memCache) Get(ctx context.Context, userID string) (model.SubscriptionState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.store[userID]
	return s, ok
}

func (c *memCache) Set(ctx context.Context, userID string, s model.SubscriptionState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[userID] = s
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, userID)
	return nil
}

// reconcileDeps bundles everything the reconciliation tests wire together.
type reconcileDeps struct {
	payments *memPaymentRepo
	users    *memUserRepo
	videos   *memVideoRepo
	gateway  *mockGateway
	tm       *mockTxManager
	cache    *memCache
	plans    model.PlanCatalog
}

func newReconcileDeps() *reconcileDeps {
	return &reconcileDeps{
		payments: newMemPaymentRepo(),
		users:    newMemUserRepo(),
		videos:   newMemVideoRepo(),
		gateway:  &mockGateway{},
		tm:       &mockTxManager{},
		cache:    newMemCache(),
		plans:    testPlans(),
	}
}

func testPlans() model.PlanCatalog {
	d := 30 * 24 * time.Hour
	return model.PlanCatalog{
		model.TierBeginner: {Tier: model.TierBeginner, Name: "Beginner to Mid", PriceUSD: 17.99, Duration: d},
		model.TierAdvanced: {Tier: model.TierAdvanced, Name: "Mid to Pro", PriceUSD: 24.99, Duration: d},
		model.TierComplete: {Tier: model.TierComplete, Name: "Complete Pack", PriceUSD: 19.99, Duration: d},
	}
}

func (d *reconcileDeps) newReconcileUC() usecase.ReconcileUseCase {
	return usecase.NewReconcileUseCase(d.payments, d.users, d.gateway, d.tm, d.plans, d.cache, newTestLogger())
}

func (d *reconcileDeps) newCheckoutUC() usecase.CheckoutUseCase {
	return usecase.NewCheckoutUseCase(d.payments, d.users, d.gateway, d.plans, "https://example.com/payment_webhook", newTestLogger())
}

func (d *reconcileDeps) newEntitlementUC() usecase.EntitlementUseCase {
	return usecase.NewEntitlementUseCase(d.users, d.videos, d.cache, newTestLogger())
}

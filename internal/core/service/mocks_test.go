package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRiskConfig() RiskConfig {
	return RiskConfig{
		DefaultMode:         domain.RiskModeMedium,
		HighValueThreshold:  100_000,
		HighFrequencyCount:  10,
		HighFrequencyWindow: 24 * time.Hour,
		ModeCacheTTL:        300 * time.Second,
		MetricsCacheTTL:     60 * time.Second,
	}
}

func testLiquidityConfig() LiquidityConfig {
	return LiquidityConfig{
		DispatchBudget: 120 * time.Millisecond,
		MaxSources:     5,
		QuoteCacheTTL:  domain.QuoteTTL,
	}
}

func testSettlementConfig() SettlementConfig {
	return SettlementConfig{IntradayLookback: 4 * time.Hour}
}

// mockCache is an in-memory ports.Cache.
type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte

	GetFn func(ctx context.Context, key string) ([]byte, error)
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) GetDel(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	delete(m.data, key)
	return val, nil
}

var _ ports.Cache = (*mockCache)(nil)

// mockBus is a no-op ports.EventBus that records published subjects.
type mockBus struct {
	mu        sync.Mutex
	published []string

	PublishFn func(ctx context.Context, subject string, payload []byte) error
}

func newMockBus() *mockBus { return &mockBus{} }

func (m *mockBus) Publish(ctx context.Context, subject string, payload []byte) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, subject, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

var _ ports.EventBus = (*mockBus)(nil)

// mockQuoteProvider is a scriptable ports.QuoteProvider.
type mockQuoteProvider struct {
	name        string
	supports    map[[2]string]bool
	utility     float64
	latency     time.Duration
	shouldError bool
}

func newMockQuoteProvider(name string, pair [2]string, utility float64, latency time.Duration) *mockQuoteProvider {
	return &mockQuoteProvider{
		name:     name,
		supports: map[[2]string]bool{pair: true},
		utility:  utility,
		latency:  latency,
	}
}

func (m *mockQuoteProvider) Name() string { return m.name }

func (m *mockQuoteProvider) Supports(base, quote string) bool {
	return m.supports[[2]string{base, quote}]
}

func (m *mockQuoteProvider) Quote(ctx context.Context, base, quote string, amount domain.Money) (*domain.Quote, error) {
	if m.shouldError {
		return nil, domain.NewError(domain.ErrCodeExternalService, m.name+" unavailable")
	}
	select {
	case <-time.After(m.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &domain.Quote{
		QuoteID:      domain.NewTransactionID(),
		FromCurrency: base,
		ToCurrency:   quote,
		Amount:       amount,
		MidRate:      1.0,
		AppliedRate:  0.99,
		Spread:       0.01,
		Source:       m.name,
		TTLSeconds:   30,
		ExpiresAt:    time.Now().UTC().Add(domain.QuoteTTL),
		UtilityScore: m.utility,
	}, nil
}

var _ ports.QuoteProvider = (*mockQuoteProvider)(nil)

// mockPaymentRepository is an in-memory ports.PaymentRepository.
type mockPaymentRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.Payment
	byIdemK map[uuid.UUID]*domain.Payment

	CurrencyBalances30dFn func(ctx context.Context) ([]domain.CurrencyBalance, error)
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{
		byID:    make(map[uuid.UUID]*domain.Payment),
		byIdemK: make(map[uuid.UUID]*domain.Payment),
	}
}

func (m *mockPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byIdemK[p.IdempotencyKey]; exists {
		return domain.NewError(domain.ErrCodeDuplicatePayment, "idempotency key already used")
	}
	m.byID[p.TransactionID] = p
	m.byIdemK[p.IdempotencyKey] = p
	return nil
}

func (m *mockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, domain.NewNotFoundError("payment", id.String())
}

func (m *mockPaymentRepository) FindByIDForUpdate(ctx context.Context, tx ports.Executor, id uuid.UUID) (*domain.Payment, error) {
	return m.FindByID(ctx, id)
}

func (m *mockPaymentRepository) FindByIdempotencyKey(ctx context.Context, key uuid.UUID) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byIdemK[key]; ok {
		return p, nil
	}
	return nil, nil
}

func (m *mockPaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.TransactionID] = p
	return nil
}

func (m *mockPaymentRepository) UpdateTx(ctx context.Context, tx ports.Executor, p *domain.Payment) error {
	return m.Update(ctx, p)
}

func (m *mockPaymentRepository) FindOpenForBatching(ctx context.Context, tx ports.Executor) ([]*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Payment
	for _, p := range m.byID {
		if p.Status == domain.StatusApproved && p.SettlementBatchID == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) CountRecentByAccount(ctx context.Context, accountID string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	cutoff := time.Now().Add(-window)
	for _, p := range m.byID {
		if p.DebtorAccount == accountID && p.CreatedAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *mockPaymentRepository) CurrencyBalances30d(ctx context.Context) ([]domain.CurrencyBalance, error) {
	if m.CurrencyBalances30dFn != nil {
		return m.CurrencyBalances30dFn(ctx)
	}
	return nil, nil
}

func (m *mockPaymentRepository) FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Payment
	for _, p := range m.byID {
		if p.SettlementBatchID != nil && *p.SettlementBatchID == batchID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) FindTransactionReport(ctx context.Context, filter domain.TransactionReportFilter) ([]*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Payment
	for _, p := range m.byID {
		if filter.Currency != "" && p.Currency != filter.Currency {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.StartDate != nil && p.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && p.CreatedAt.After(*filter.EndDate) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

var _ ports.PaymentRepository = (*mockPaymentRepository)(nil)

// mockSettlementRepository is an in-memory ports.SettlementRepository.
type mockSettlementRepository struct {
	mu        sync.Mutex
	batches   map[uuid.UUID]*domain.SettlementBatch
	positions map[uuid.UUID][]*domain.NetPosition

	CreateBatchFn func(ctx context.Context, tx ports.Executor, batch *domain.SettlementBatch) error
}

func newMockSettlementRepository() *mockSettlementRepository {
	return &mockSettlementRepository{
		batches:   make(map[uuid.UUID]*domain.SettlementBatch),
		positions: make(map[uuid.UUID][]*domain.NetPosition),
	}
}

func (m *mockSettlementRepository) CreateBatch(ctx context.Context, tx ports.Executor, batch *domain.SettlementBatch) error {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, tx, batch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[batch.BatchID] = batch
	return nil
}

func (m *mockSettlementRepository) UpdateBatch(ctx context.Context, tx ports.Executor, batch *domain.SettlementBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[batch.BatchID] = batch
	return nil
}

func (m *mockSettlementRepository) FindBatchByID(ctx context.Context, id uuid.UUID) (*domain.SettlementBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.batches[id]; ok {
		return b, nil
	}
	return nil, domain.NewNotFoundError("settlement_batch", id.String())
}

func (m *mockSettlementRepository) SaveNetPositions(ctx context.Context, tx ports.Executor, positions []*domain.NetPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(positions) > 0 {
		m.positions[positions[0].BatchID] = positions
	}
	return nil
}

func (m *mockSettlementRepository) FindNetPositionsByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.NetPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[batchID], nil
}

func (m *mockSettlementRepository) FindBatchesClosedOnDate(ctx context.Context, date time.Time) ([]*domain.SettlementBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SettlementBatch
	y1, mo1, d1 := date.Date()
	for _, b := range m.batches {
		y2, mo2, d2 := b.ClosedAt.Date()
		if y1 == y2 && mo1 == mo2 && d1 == d2 {
			out = append(out, b)
		}
	}
	return out, nil
}

var _ ports.SettlementRepository = (*mockSettlementRepository)(nil)

// mockReportRepository is an in-memory ports.ReportRepository.
type mockReportRepository struct {
	mu       sync.Mutex
	reserves *domain.ProofOfReserves
}

func newMockReportRepository() *mockReportRepository { return &mockReportRepository{} }

func (m *mockReportRepository) SaveProofOfReserves(ctx context.Context, report *domain.ProofOfReserves) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserves = report
	return nil
}

func (m *mockReportRepository) SaveProofOfSettlement(ctx context.Context, report *domain.ProofOfSettlement) error {
	return nil
}

func (m *mockReportRepository) LatestProofOfReserves(ctx context.Context) (*domain.ProofOfReserves, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserves == nil {
		return nil, domain.NewNotFoundError("proof_of_reserves", "latest")
	}
	return m.reserves, nil
}

var _ ports.ReportRepository = (*mockReportRepository)(nil)

// noopTxRunner runs fn with a nil Executor — sufficient for unit tests
// against mock repositories that ignore the tx argument entirely.
func noopTxRunner(ctx context.Context, fn func(tx ports.Executor) error) error {
	return fn(nil)
}

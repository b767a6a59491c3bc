package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
// All methods are safe for concurrent use by batch workers.
type MockRepository struct {
	mu sync.Mutex

	transactions map[int64]*fleet.Transaction
	cards        map[int64]*fleet.FuelCard
	stations     map[int64]*fleet.GasStation
	assignments  []fleet.CardAssignment
	refuels      []fleet.VehicleRefuel
	locations    []fleet.VehicleLocation
	results      map[int64]*fleet.AnalysisResult
	runs         map[int64]*Run
	nextID       int64

	// Hooks for test assertions
	UpsertResultCalls  int
	LastUpsertedResult *fleet.AnalysisResult
	StartRunCalled     bool
	CompleteRunCalled  bool

	// Error injection for testing error paths
	GetTransactionErr   error
	ListTransactionsErr error
	GetFuelCardErr      error
	ListRefuelsErr      error
	ListLocationsErr    error
	UpsertResultErr     error
	StartRunErr         error
	CompleteRunErr      error
	PingErr             error

	// FailTransactions makes GetTransaction fail for the listed IDs
	FailTransactions map[int64]error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		transactions:     make(map[int64]*fleet.Transaction),
		cards:            make(map[int64]*fleet.FuelCard),
		stations:         make(map[int64]*fleet.GasStation),
		results:          make(map[int64]*fleet.AnalysisResult),
		runs:             make(map[int64]*Run),
		FailTransactions: make(map[int64]error),
		nextID:           1000,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Ping(context.Context) error {
	return m.PingErr
}

func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) assignID(id *int64) {
	if *id == 0 {
		m.nextID++
		*id = m.nextID
	}
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func containsID(ids []int64, id *int64) bool {
	if id == nil {
		return false
	}
	for _, v := range ids {
		if v == *id {
			return true
		}
	}
	return false
}

// GetTransaction retrieves a transaction from the in-memory map
func (m *MockRepository) GetTransaction(_ context.Context, id int64) (*fleet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetTransactionErr != nil {
		return nil, m.GetTransactionErr
	}
	if err, ok := m.FailTransactions[id]; ok {
		return nil, err
	}
	tx, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	copied := *tx
	return &copied, nil
}

// ListTransactions filters the in-memory transactions the same way the
// SQLite store does
func (m *MockRepository) ListTransactions(_ context.Context, filter TransactionFilter) ([]*fleet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListTransactionsErr != nil {
		return nil, m.ListTransactionsErr
	}

	cardByNumber := make(map[string]*fleet.FuelCard, len(m.cards))
	for _, c := range m.cards {
		cardByNumber[c.Number] = c
	}

	result := make([]*fleet.Transaction, 0)
	for _, tx := range m.transactions {
		if !inRange(tx.Timestamp, filter.From, filter.To) {
			continue
		}
		card := cardByNumber[tx.CardNumber]
		if len(filter.CardIDs) > 0 && (card == nil || !containsID(filter.CardIDs, &card.ID)) {
			continue
		}
		if len(filter.VehicleIDs) > 0 {
			byCard := card != nil && containsID(filter.VehicleIDs, card.VehicleID)
			if !byCard && !containsID(filter.VehicleIDs, tx.VehicleID) {
				continue
			}
		}
		if len(filter.OrganizationIDs) > 0 && !containsID(filter.OrganizationIDs, tx.OrganizationID) {
			continue
		}
		copied := *tx
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// SaveTransaction stores a copy of the transaction
func (m *MockRepository) SaveTransaction(_ context.Context, tx *fleet.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assignID(&tx.ID)
	copied := *tx
	m.transactions[tx.ID] = &copied
	return nil
}

// GetFuelCard retrieves a card by ID
func (m *MockRepository) GetFuelCard(_ context.Context, id int64) (*fleet.FuelCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetFuelCardErr != nil {
		return nil, m.GetFuelCardErr
	}
	card, ok := m.cards[id]
	if !ok {
		return nil, fmt.Errorf("fuel card %d: %w", id, ErrNotFound)
	}
	copied := *card
	return &copied, nil
}

// GetFuelCardByNumber retrieves a card by number
func (m *MockRepository) GetFuelCardByNumber(_ context.Context, number string) (*fleet.FuelCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetFuelCardErr != nil {
		return nil, m.GetFuelCardErr
	}
	for _, card := range m.cards {
		if card.Number == number {
			copied := *card
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("fuel card %s: %w", number, ErrNotFound)
}

// SaveFuelCard stores a copy of the card
func (m *MockRepository) SaveFuelCard(_ context.Context, card *fleet.FuelCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assignID(&card.ID)
	copied := *card
	m.cards[card.ID] = &copied
	return nil
}

// GetGasStation retrieves a station by ID
func (m *MockRepository) GetGasStation(_ context.Context, id int64) (*fleet.GasStation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.stations[id]
	if !ok {
		return nil, fmt.Errorf("gas station %d: %w", id, ErrNotFound)
	}
	copied := *st
	return &copied, nil
}

// SaveGasStation stores a copy of the station
func (m *MockRepository) SaveGasStation(_ context.Context, station *fleet.GasStation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assignID(&station.ID)
	copied := *station
	m.stations[station.ID] = &copied
	return nil
}

// ListCardAssignments returns the assignments of a card
func (m *MockRepository) ListCardAssignments(_ context.Context, cardID int64) ([]fleet.CardAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]fleet.CardAssignment, 0)
	for _, a := range m.assignments {
		if a.CardID == cardID {
			result = append(result, a)
		}
	}
	return result, nil
}

// SaveCardAssignment appends an assignment
func (m *MockRepository) SaveCardAssignment(_ context.Context, a *fleet.CardAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assignID(&a.ID)
	m.assignments = append(m.assignments, *a)
	return nil
}

// ListRefuels returns refuels of a vehicle in [from, to]
func (m *MockRepository) ListRefuels(_ context.Context, vehicleID int64, from, to time.Time, fuelType string) ([]fleet.VehicleRefuel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListRefuelsErr != nil {
		return nil, m.ListRefuelsErr
	}
	result := make([]fleet.VehicleRefuel, 0)
	for _, r := range m.refuels {
		if r.VehicleID != vehicleID || !inRange(r.Timestamp, from, to) {
			continue
		}
		if fuelType != "" && r.FuelType != fuelType {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

// SaveRefuel appends a refuel event
func (m *MockRepository) SaveRefuel(_ context.Context, r *fleet.VehicleRefuel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assignID(&r.ID)
	m.refuels = append(m.refuels, *r)
	return nil
}

// ListLocations returns location samples of a vehicle in [from, to]
func (m *MockRepository) ListLocations(_ context.Context, vehicleID int64, from, to time.Time) ([]fleet.VehicleLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListLocationsErr != nil {
		return nil, m.ListLocationsErr
	}
	result := make([]fleet.VehicleLocation, 0)
	for _, l := range m.locations {
		if l.VehicleID == vehicleID && inRange(l.Timestamp, from, to) {
			result = append(result, l)
		}
	}
	return result, nil
}

// SaveLocation appends a location sample
func (m *MockRepository) SaveLocation(_ context.Context, l *fleet.VehicleLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assignID(&l.ID)
	m.locations = append(m.locations, *l)
	return nil
}

// UpsertResult stores a copy of the result keyed by transaction ID
func (m *MockRepository) UpsertResult(_ context.Context, r *fleet.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpsertResultCalls++
	m.LastUpsertedResult = r
	if m.UpsertResultErr != nil {
		return m.UpsertResultErr
	}
	copied := *r
	m.results[r.TransactionID] = &copied
	return nil
}

// GetResult retrieves a result by transaction ID
func (m *MockRepository) GetResult(_ context.Context, transactionID int64) (*fleet.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[transactionID]
	if !ok {
		return nil, fmt.Errorf("result for transaction %d: %w", transactionID, ErrNotFound)
	}
	copied := *r
	return &copied, nil
}

// ResultCount returns how many results are stored
func (m *MockRepository) ResultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

func (m *MockRepository) matchResult(r *fleet.AnalysisResult, filter ResultFilter) bool {
	if filter.Status != "" && r.Status != filter.Status {
		return false
	}
	if filter.IsAnomaly != nil && r.IsAnomaly != *filter.IsAnomaly {
		return false
	}
	if filter.AnomalyType != "" && (r.AnomalyType == nil || *r.AnomalyType != filter.AnomalyType) {
		return false
	}
	if filter.VehicleID != nil && !containsID([]int64{*filter.VehicleID}, r.VehicleID) {
		return false
	}
	if filter.CardID != nil && !containsID([]int64{*filter.CardID}, r.FuelCardID) {
		return false
	}
	tx, ok := m.transactions[r.TransactionID]
	if !ok {
		return false
	}
	if filter.OrganizationID != nil && !containsID([]int64{*filter.OrganizationID}, tx.OrganizationID) {
		return false
	}
	return inRange(tx.Timestamp, filter.From, filter.To)
}

// ListResults returns results matching the filter, newest transaction first
func (m *MockRepository) ListResults(_ context.Context, filter ResultFilter) (*ResultList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*fleet.AnalysisResult, 0)
	for _, r := range m.results {
		if m.matchResult(r, filter) {
			copied := *r
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ti := m.transactions[matched[i].TransactionID].Timestamp
		tj := m.transactions[matched[j].TransactionID].Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return matched[i].TransactionID > matched[j].TransactionID
	})

	limit := clampLimit(filter.Limit, defaultListLimit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	list := &ResultList{TotalCount: len(matched), Limit: limit, Offset: offset}
	if offset >= len(matched) {
		list.Results = make([]*fleet.AnalysisResult, 0)
		return list, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	list.Results = matched[offset:end]
	return list, nil
}

// GetResultSummary aggregates the in-memory results
func (m *MockRepository) GetResultSummary(_ context.Context, from, to time.Time) (*ResultSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := newResultSummary()
	confidenceSum := 0
	for _, r := range m.results {
		if !m.matchResult(r, ResultFilter{From: from, To: to}) {
			continue
		}
		summary.Total++
		summary.ByStatus[r.Status]++
		confidenceSum += r.Confidence
		if r.AnomalyType != nil {
			summary.Anomalies++
			summary.ByAnomaly[*r.AnomalyType]++
		}
	}
	if summary.Total > 0 {
		summary.AverageConfidence = float64(confidenceSum) / float64(summary.Total)
	}
	return summary, nil
}

// StartRun creates a new run and returns its ID
func (m *MockRepository) StartRun(_ context.Context, from, to time.Time, trigger string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return 0, m.StartRunErr
	}

	var id int64
	m.assignID(&id)
	m.runs[id] = &Run{
		ID:         id,
		Trigger:    trigger,
		PeriodFrom: from,
		PeriodTo:   to,
		StartedAt:  time.Now(),
		Status:     RunStatusRunning,
	}
	return id, nil
}

// CompleteRun marks a run as complete
func (m *MockRepository) CompleteRun(_ context.Context, runID int64, stats *fleet.PeriodStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil
	}
	now := time.Now()
	run.CompletedAt = &now
	run.Total = stats.Total
	run.Analyzed = stats.Analyzed
	run.Errored = stats.Errored
	run.Anomalies = anomalyCount(stats)
	run.Status = RunStatusFor(stats)
	return nil
}

// FailRun marks a run as failed
func (m *MockRepository) FailRun(_ context.Context, runID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil
	}
	now := time.Now()
	run.CompletedAt = &now
	run.Status = RunStatusFailed
	run.Error = reason
	return nil
}

// ListRuns returns runs, newest first
func (m *MockRepository) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })

	limit = clampLimit(limit, defaultRunLimit)
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun retrieves a run by ID
func (m *MockRepository) GetRun(_ context.Context, runID int64) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	copied := *run
	return &copied, nil
}

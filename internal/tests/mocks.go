package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ridepool/internal/domain"
	"ridepool/internal/queue"
	"ridepool/internal/redis"
	"ridepool/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK REQUEST REPOSITORY
// ──────────────────────────────────────────────

// MockRequestRepository wraps a real RequestRepository and lets tests tamper
// with what ListPending reports.
type MockRequestRepository struct {
	repository.RequestRepository

	// Error injection
	ListPendingError error

	// ListPendingOverride, when set, is returned instead of the stored
	// pending requests.
	ListPendingOverride []*domain.Request
}

func (m *MockRequestRepository) ListPending(ctx context.Context) ([]*domain.Request, error) {
	if m.ListPendingError != nil {
		return nil, m.ListPendingError
	}
	if m.ListPendingOverride != nil {
		return m.ListPendingOverride, nil
	}
	return m.RequestRepository.ListPending(ctx)
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository wraps a real VehicleRepository and calls
// AfterGetByID once each plain read has returned.
type MockVehicleRepository struct {
	repository.VehicleRepository

	AfterGetByID func()
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	v, err := m.VehicleRepository.GetByID(ctx, id)
	if m.AfterGetByID != nil {
		m.AfterGetByID()
	}
	return v, err
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor wraps a real Transactor and calls BeforeTx ahead of every
// transaction it opens and AfterTx once it has finished.
type MockTransactor struct {
	repository.Transactor

	BeforeTx func()
	AfterTx  func()

	// Counters
	TxCallCount int32
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	atomic.AddInt32(&m.TxCallCount, 1)
	if m.BeforeTx != nil {
		m.BeforeTx()
	}
	err := m.Transactor.WithinTx(ctx, fn)
	if m.AfterTx != nil {
		m.AfterTx()
	}
	return err
}

// ──────────────────────────────────────────────
// MOCK LOCKER
// ──────────────────────────────────────────────

// MockLocker is a mock implementation of redis.Locker.
type MockLocker struct {
	mu   sync.Mutex
	held map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLocker creates a new mock locker.
func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]time.Time)}
}

func (m *MockLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (redis.Lock, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return nil, m.AcquireError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, ok := m.held[name]; ok && time.Now().Before(expiry) {
		return nil, nil
	}
	m.held[name] = time.Now().Add(ttl)
	return &mockLock{locker: m, name: name}, nil
}

// Hold marks name as held by someone else until released.
func (m *MockLocker) Hold(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = time.Now().Add(time.Hour)
}

// IsHeld reports whether name is currently held.
func (m *MockLocker) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.held[name]
	return ok && time.Now().Before(expiry)
}

type mockLock struct {
	locker *MockLocker
	name   string
}

func (l *mockLock) Release(ctx context.Context) error {
	atomic.AddInt32(&l.locker.ReleaseCallCount, 1)
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.name)
	return nil
}

// ──────────────────────────────────────────────
// MOCK DISPATCHER
// ──────────────────────────────────────────────

// MockDispatcher records dispatched jobs without running them.
type MockDispatcher struct {
	mu   sync.Mutex
	jobs []queue.Job

	// Error injection
	DispatchError error
}

// NewMockDispatcher creates a new mock dispatcher.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Dispatch(ctx context.Context, job queue.Job) error {
	if m.DispatchError != nil {
		return m.DispatchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

// Jobs returns the dispatched jobs of type t, in dispatch order.
func (m *MockDispatcher) Jobs(t queue.JobType) []queue.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []queue.Job
	for _, j := range m.jobs {
		if j.Type == t {
			out = append(out, j)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.VehicleLocation

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError     error
	FindNearbyVehiclesError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.VehicleLocation, 0),
	}
}

// SetLocations sets all locations (for test setup).
func (m *MockLocationStore) SetLocations(locations []redis.VehicleLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = locations
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, vehicleID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.VehicleID == vehicleID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.VehicleLocation{
		VehicleID: vehicleID,
		Lat:       lat,
		Lng:       lng,
	})
	return nil
}

// FindNearbyVehicles returns every stored location; the mock does no geo
// filtering.
func (m *MockLocationStore) FindNearbyVehicles(ctx context.Context, lat, lng, radiusKm float64) ([]redis.VehicleLocation, error) {
	if m.FindNearbyVehiclesError != nil {
		return nil, m.FindNearbyVehiclesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.VehicleLocation, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, vehicleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.VehicleID == vehicleID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// Location returns the stored location of a vehicle.
func (m *MockLocationStore) Location(vehicleID string) (redis.VehicleLocation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.VehicleID == vehicleID {
			return loc, true
		}
	}
	return redis.VehicleLocation{}, false
}

// ──────────────────────────────────────────────
// MOCK STATUS CACHE
// ──────────────────────────────────────────────

// MockStatusCache is an in-memory redis.StatusCache.
type MockStatusCache struct {
	mu          sync.Mutex
	statuses    map[string]redis.CachedStatus
	invalidated []string

	// Counters
	GetCallCount int32
	HitCount     int32
	SetCallCount int32

	// Error injection
	GetError error
}

// NewMockStatusCache creates a new mock status cache.
func NewMockStatusCache() *MockStatusCache {
	return &MockStatusCache{statuses: make(map[string]redis.CachedStatus)}
}

func (m *MockStatusCache) GetStatus(ctx context.Context, requestID string) (*redis.CachedStatus, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[requestID]
	if !ok {
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	return &s, nil
}

func (m *MockStatusCache) SetStatus(ctx context.Context, status *redis.CachedStatus) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[status.RequestID] = *status
	return nil
}

func (m *MockStatusCache) InvalidateStatuses(ctx context.Context, requestIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range requestIDs {
		delete(m.statuses, id)
		m.invalidated = append(m.invalidated, id)
	}
	return nil
}

// Invalidated returns every request ID invalidated so far.
func (m *MockStatusCache) Invalidated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.invalidated...)
}

var (
	_ redis.Locker                 = (*MockLocker)(nil)
	_ redis.LocationStoreInterface = (*MockLocationStore)(nil)
	_ redis.StatusCache            = (*MockStatusCache)(nil)
	_ queue.Dispatcher             = (*MockDispatcher)(nil)
	_ repository.VehicleRepository = (*MockVehicleRepository)(nil)
	_ repository.Transactor        = (*MockTransactor)(nil)
)

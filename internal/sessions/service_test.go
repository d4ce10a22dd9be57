package sessions_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boleto/internal/events"
	"boleto/internal/seats"
	"boleto/internal/sessions"
	"boleto/internal/shared/config"
	"boleto/internal/shared/errs"
	"boleto/pkg/cache"
	"boleto/pkg/clock"
	"boleto/pkg/logger"
)

// fakeLockTable is an in-memory stand-in for the Redis lock table with the
// same all-or-nothing semantics.
type fakeLockTable struct {
	mu    sync.Mutex
	locks map[string]string // "event:row-col" -> session
}

func newFakeLockTable() *fakeLockTable {
	return &fakeLockTable{locks: make(map[string]string)}
}

func (f *fakeLockTable) key(eventID string, ref seats.SeatRef) string {
	return eventID + ":" + ref.Key()
}

func (f *fakeLockTable) Acquire(ctx context.Context, eventID, sessionID string, refs []seats.SeatRef, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ref := range refs {
		owner, held := f.locks[f.key(eventID, ref)]
		if held && owner != sessionID {
			return errs.New(errs.KindConflict, "seat %s is locked by another session", ref.Key())
		}
	}
	for _, ref := range refs {
		f.locks[f.key(eventID, ref)] = sessionID
	}
	return nil
}

func (f *fakeLockTable) Release(ctx context.Context, eventID, sessionID string, refs []seats.SeatRef) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	released := 0
	for _, ref := range refs {
		if f.locks[f.key(eventID, ref)] == sessionID {
			delete(f.locks, f.key(eventID, ref))
			released++
		}
	}
	return released, nil
}

func (f *fakeLockTable) Refresh(ctx context.Context, eventID, sessionID string, refs []seats.SeatRef, ttl time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	refreshed := 0
	for _, ref := range refs {
		if f.locks[f.key(eventID, ref)] == sessionID {
			refreshed++
		}
	}
	return refreshed, nil
}

func (f *fakeLockTable) VerifyHeld(ctx context.Context, eventID, sessionID string, refs []seats.SeatRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ref := range refs {
		if f.locks[f.key(eventID, ref)] != sessionID {
			return errs.New(errs.KindConflict, "lock on seat %s is no longer held", ref.Key())
		}
	}
	return nil
}

func (f *fakeLockTable) owner(eventID string, ref seats.SeatRef) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, held := f.locks[f.key(eventID, ref)]
	return owner, held
}

func (f *fakeLockTable) lockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locks)
}

// fakeSessionRepo keeps sessions in memory.
type fakeSessionRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*sessions.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: make(map[uuid.UUID]*sessions.Session)}
}

func copySession(s *sessions.Session) *sessions.Session {
	cp := *s
	cp.Seats = make([]sessions.SessionSeat, len(s.Seats))
	copy(cp.Seats, s.Seats)
	return &cp
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *sessions.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	f.byID[session.ID] = copySession(session)
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.byID[id]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	return copySession(stored), nil
}

func (f *fakeSessionRepo) GetActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*sessions.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, stored := range f.byID {
		if stored.OwnerID == ownerID && stored.State.IsActive() {
			return copySession(stored), nil
		}
	}
	return nil, sessions.ErrSessionNotFound
}

func (f *fakeSessionRepo) Save(ctx context.Context, session *sessions.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.byID[session.ID]
	if !ok {
		return sessions.ErrSessionNotFound
	}
	// Save never touches seat rows
	cp := copySession(session)
	cp.Seats = stored.Seats
	f.byID[session.ID] = cp
	return nil
}

func (f *fakeSessionRepo) ReplaceSeats(ctx context.Context, session *sessions.Session, newSeats []sessions.SessionSeat) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range newSeats {
		if newSeats[i].ID == uuid.Nil {
			newSeats[i].ID = uuid.New()
		}
		newSeats[i].SessionID = session.ID
	}

	cp := copySession(session)
	cp.Seats = make([]sessions.SessionSeat, len(newSeats))
	copy(cp.Seats, newSeats)
	f.byID[session.ID] = cp
	return nil
}

func (f *fakeSessionRepo) UpdateSeatNames(ctx context.Context, session *sessions.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byID[session.ID] = copySession(session)
	return nil
}

func (f *fakeSessionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]sessions.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var expired []sessions.Session
	for _, stored := range f.byID {
		if stored.State.IsActive() && !stored.ExpiresAt.After(now) {
			expired = append(expired, *copySession(stored))
			if len(expired) == limit {
				break
			}
		}
	}
	return expired, nil
}

// fakeSoldRepo serves a fixed set of sold seats.
type fakeSoldRepo struct {
	sold []seats.SoldSeat
}

func (f *fakeSoldRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]seats.SoldSeat, error) {
	return f.sold, nil
}

func (f *fakeSoldRepo) ListByRefs(ctx context.Context, eventID uuid.UUID, refs []seats.SeatRef) ([]seats.SoldSeat, error) {
	wanted := make(map[string]bool, len(refs))
	for _, ref := range refs {
		wanted[ref.Key()] = true
	}
	var hits []seats.SoldSeat
	for _, sold := range f.sold {
		if sold.EventID == eventID && wanted[sold.Ref().Key()] {
			hits = append(hits, sold)
		}
	}
	return hits, nil
}

// fakeEventService serves one fixed event.
type fakeEventService struct {
	event events.Event
}

func (f *fakeEventService) SetCacheService(cache.Service) {}

func (f *fakeEventService) GetSellableEvent(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	if id != f.event.ID {
		return nil, errs.New(errs.KindNotFound, "event %s not found", id)
	}
	cp := f.event
	return &cp, nil
}

func (f *fakeEventService) GetEventByID(ctx context.Context, id uuid.UUID) (*events.EventResponse, error) {
	if id != f.event.ID {
		return nil, errs.New(errs.KindNotFound, "event %s not found", id)
	}
	resp := f.event.ToResponse()
	return &resp, nil
}

func (f *fakeEventService) CreateEvent(uuid.UUID, events.CreateEventRequest) (*events.EventResponse, error) {
	panic("not used")
}

func (f *fakeEventService) UpdateEvent(uuid.UUID, events.UpdateEventRequest) (*events.EventResponse, error) {
	panic("not used")
}

func (f *fakeEventService) GetAllEvents(events.EventListQuery) (*events.PaginatedEvents, error) {
	panic("not used")
}

type fixture struct {
	service  sessions.Service
	repo     *fakeSessionRepo
	locks    *fakeLockTable
	soldRepo *fakeSoldRepo
	clock    *clock.Fake
	event    events.Event
	owner    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	event := events.Event{
		ID:           uuid.New(),
		Name:         "Jazz Night",
		Venue:        "Main Hall",
		TotalRows:    10,
		TotalColumns: 10,
		Price:        25.0,
		Status:       events.StatusPublished,
	}

	cfg := &config.Config{
		Purchase: config.PurchaseConfig{
			SeatLockTTL:        5 * time.Minute,
			SessionIdleTTL:     30 * time.Minute,
			SweepInterval:      15 * time.Second,
			MaxSeatsPerSession: 4,
			MinAttendeeNameLen: 3,
		},
	}

	repo := newFakeSessionRepo()
	locks := newFakeLockTable()
	soldRepo := &fakeSoldRepo{}
	clk := clock.NewFake(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))

	service := sessions.NewService(
		repo,
		locks,
		soldRepo,
		&fakeEventService{event: event},
		cfg,
		clk,
		logger.New(),
	)

	return &fixture{
		service:  service,
		repo:     repo,
		locks:    locks,
		soldRepo: soldRepo,
		clock:    clk,
		event:    event,
		owner:    uuid.New(),
	}
}

func mustStart(t *testing.T, fx *fixture) uuid.UUID {
	t.Helper()
	resp, err := fx.service.Start(context.Background(), fx.owner, fx.event.ID)
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

func mustSelect(t *testing.T, fx *fixture, sessionID uuid.UUID, refs ...seats.SeatRef) *sessions.SessionResponse {
	t.Helper()
	resp, err := fx.service.SelectSeats(context.Background(), sessionID, fx.owner, refs)
	require.NoError(t, err)
	return resp
}

func namesFor(refs ...seats.SeatRef) map[string]string {
	names := make(map[string]string, len(refs))
	for i, ref := range refs {
		names[ref.Key()] = fmt.Sprintf("Attendee %d", i+1)
	}
	return names
}

func TestStartSession(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.service.Start(context.Background(), fx.owner, fx.event.ID)
	require.NoError(t, err)

	assert.Equal(t, sessions.StateSeatSelection, resp.State)
	assert.Equal(t, fx.event.ID.String(), resp.EventID)
	assert.Empty(t, resp.Seats)
	assert.Equal(t, fx.clock.Now().Add(30*time.Minute), resp.ExpiresAt)
}

func TestStartSessionUnknownEvent(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.Start(context.Background(), fx.owner, uuid.New())

	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestStartSessionCancelsPreviousActive(t *testing.T) {
	fx := newFixture(t)

	firstID := mustStart(t, fx)
	mustSelect(t, fx, firstID, seats.SeatRef{Row: 1, Column: 1})
	require.Equal(t, 1, fx.locks.lockCount())

	secondID := mustStart(t, fx)

	assert.NotEqual(t, firstID, secondID)
	assert.Equal(t, 0, fx.locks.lockCount(), "previous session's locks must be freed")

	stored, err := fx.repo.GetByID(context.Background(), firstID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StateCancelled, stored.State)
}

func TestSelectSeatsMovesToNameAssignment(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)

	resp := mustSelect(t, fx, sessionID, seats.SeatRef{Row: 1, Column: 1}, seats.SeatRef{Row: 1, Column: 2})

	assert.Equal(t, sessions.StateNameAssignment, resp.State)
	assert.Len(t, resp.Seats, 2)
	assert.Equal(t, 50.0, resp.TotalPrice)
	assert.Equal(t, fx.clock.Now().Add(5*time.Minute), resp.ExpiresAt)

	owner, held := fx.locks.owner(fx.event.ID.String(), seats.SeatRef{Row: 1, Column: 1})
	require.True(t, held)
	assert.Equal(t, sessionID.String(), owner)
}

func TestSelectSeatsLocksAllOrNothing(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)

	// Another session already holds 2-2
	other := uuid.New().String()
	require.NoError(t, fx.locks.Acquire(context.Background(), fx.event.ID.String(), other,
		[]seats.SeatRef{{Row: 2, Column: 2}}, time.Minute))

	_, err := fx.service.SelectSeats(context.Background(), sessionID, fx.owner,
		[]seats.SeatRef{{Row: 2, Column: 1}, {Row: 2, Column: 2}})

	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	// The free seat must not stay locked behind the failed batch
	_, held := fx.locks.owner(fx.event.ID.String(), seats.SeatRef{Row: 2, Column: 1})
	assert.False(t, held)

	// The session is still in seat selection
	stored, err := fx.repo.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StateSeatSelection, stored.State)
}

func TestSelectSeatsConcurrentSingleWinner(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	contested := seats.SeatRef{Row: 3, Column: 7}

	// One buyer per goroutine, each with its own session, all after one seat
	const contenders = 8
	owners := make([]uuid.UUID, contenders)
	sessionIDs := make([]uuid.UUID, contenders)
	for i := range owners {
		owners[i] = uuid.New()
		resp, err := fx.service.Start(ctx, owners[i], fx.event.ID)
		require.NoError(t, err)
		sessionIDs[i] = uuid.MustParse(resp.ID)
	}

	results := make([]error, contenders)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := fx.service.SelectSeats(ctx, sessionIDs[i], owners[i], []seats.SeatRef{contested})
			results[i] = err
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for i, err := range results {
		if err == nil {
			winners++
			owner, held := fx.locks.owner(fx.event.ID.String(), contested)
			require.True(t, held)
			assert.Equal(t, sessionIDs[i].String(), owner, "the lock must belong to the winning session")
			continue
		}
		assert.Equal(t, errs.KindConflict, errs.KindOf(err))
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, fx.locks.lockCount())
}

func TestSelectSeatsRejectsSoldSeat(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)
	fx.soldRepo.sold = []seats.SoldSeat{{
		EventID:    fx.event.ID,
		SeatRow:    4,
		SeatColumn: 4,
	}}

	_, err := fx.service.SelectSeats(context.Background(), sessionID, fx.owner,
		[]seats.SeatRef{{Row: 4, Column: 4}})

	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
	assert.Equal(t, 0, fx.locks.lockCount())
}

func TestSelectSeatsValidation(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)
	ctx := context.Background()

	cases := []struct {
		name string
		refs []seats.SeatRef
	}{
		{"empty selection", nil},
		{"too many seats", []seats.SeatRef{{Row: 1, Column: 1}, {Row: 1, Column: 2}, {Row: 1, Column: 3}, {Row: 1, Column: 4}, {Row: 1, Column: 5}}},
		{"duplicate seat", []seats.SeatRef{{Row: 1, Column: 1}, {Row: 1, Column: 1}}},
		{"row out of bounds", []seats.SeatRef{{Row: 11, Column: 1}}},
		{"column out of bounds", []seats.SeatRef{{Row: 1, Column: 0}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.service.SelectSeats(ctx, sessionID, fx.owner, tc.refs)
			require.Error(t, err)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
			assert.Equal(t, 0, fx.locks.lockCount())
		})
	}
}

func TestSelectSeatsReplacesSelection(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)
	ctx := context.Background()

	mustSelect(t, fx, sessionID, seats.SeatRef{Row: 3, Column: 3}, seats.SeatRef{Row: 3, Column: 4})

	// Assign names, then re-select: names must reset
	_, err := fx.service.AssignNames(ctx, sessionID, fx.owner,
		namesFor(seats.SeatRef{Row: 3, Column: 3}, seats.SeatRef{Row: 3, Column: 4}))
	require.NoError(t, err)

	resp := mustSelect(t, fx, sessionID, seats.SeatRef{Row: 3, Column: 4}, seats.SeatRef{Row: 3, Column: 5})

	assert.Len(t, resp.Seats, 2)
	for _, seat := range resp.Seats {
		assert.Empty(t, seat.AttendeeName, "re-selection must clear names")
	}

	// 3-3 released, 3-4 kept, 3-5 added
	_, held := fx.locks.owner(fx.event.ID.String(), seats.SeatRef{Row: 3, Column: 3})
	assert.False(t, held)
	owner, held := fx.locks.owner(fx.event.ID.String(), seats.SeatRef{Row: 3, Column: 5})
	require.True(t, held)
	assert.Equal(t, sessionID.String(), owner)
	assert.Equal(t, 2, fx.locks.lockCount())
}

func TestAssignNames(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)
	ctx := context.Background()
	a := seats.SeatRef{Row: 5, Column: 5}
	b := seats.SeatRef{Row: 5, Column: 6}
	mustSelect(t, fx, sessionID, a, b)

	t.Run("missing a seat", func(t *testing.T) {
		_, err := fx.service.AssignNames(ctx, sessionID, fx.owner, map[string]string{a.Key(): "Ana Perez"})
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("name too short after trimming", func(t *testing.T) {
		_, err := fx.service.AssignNames(ctx, sessionID, fx.owner, map[string]string{
			a.Key(): "Ana Perez",
			b.Key(): "  ab  ",
		})
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("multibyte name below minimum length", func(t *testing.T) {
		// Two runes but four UTF-8 bytes, still too short
		_, err := fx.service.AssignNames(ctx, sessionID, fx.owner, map[string]string{
			a.Key(): "Ana Perez",
			b.Key(): "Ñé",
		})
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("multibyte name at minimum length", func(t *testing.T) {
		resp, err := fx.service.AssignNames(ctx, sessionID, fx.owner, map[string]string{
			a.Key(): "Ana Perez",
			b.Key(): "Ñéz",
		})
		require.NoError(t, err)
		assert.Equal(t, sessions.StateNameAssignment, resp.State)
	})

	t.Run("unknown seat in map", func(t *testing.T) {
		_, err := fx.service.AssignNames(ctx, sessionID, fx.owner, map[string]string{
			a.Key(): "Ana Perez",
			b.Key(): "Juan Lopez",
			"9-9":   "Ghost",
		})
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("complete map succeeds and trims", func(t *testing.T) {
		resp, err := fx.service.AssignNames(ctx, sessionID, fx.owner, map[string]string{
			a.Key(): "  Ana Perez  ",
			b.Key(): "Juan Lopez",
		})
		require.NoError(t, err)
		assert.Equal(t, sessions.StateNameAssignment, resp.State)

		byKey := map[string]string{}
		for _, seat := range resp.Seats {
			byKey[fmt.Sprintf("%d-%d", seat.Row, seat.Column)] = seat.AttendeeName
		}
		assert.Equal(t, "Ana Perez", byKey[a.Key()])
		assert.Equal(t, "Juan Lopez", byKey[b.Key()])
	})
}

func TestAssignNamesBeforeSelectingSeats(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)

	_, err := fx.service.AssignNames(context.Background(), sessionID, fx.owner,
		map[string]string{"1-1": "Ana Perez"})

	require.Error(t, err)
	assert.Equal(t, errs.KindSessionNotActive, errs.KindOf(err))
}

func TestCancelReleasesLocks(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)
	ctx := context.Background()
	mustSelect(t, fx, sessionID, seats.SeatRef{Row: 7, Column: 7})

	require.NoError(t, fx.service.Cancel(ctx, sessionID, fx.owner))
	assert.Equal(t, 0, fx.locks.lockCount())

	stored, err := fx.repo.GetByID(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StateCancelled, stored.State)

	// Cancelling a dead session is a no-op
	assert.NoError(t, fx.service.Cancel(ctx, sessionID, fx.owner))
}

func TestForeignSessionReportsNotFound(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)
	stranger := uuid.New()

	_, err := fx.service.Get(context.Background(), sessionID, stranger)
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err),
		"foreign sessions must be indistinguishable from missing ones")
}

func TestLazyExpiryOnRead(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)
	ctx := context.Background()
	mustSelect(t, fx, sessionID, seats.SeatRef{Row: 1, Column: 2})

	fx.clock.Advance(5*time.Minute + time.Second)

	// An expired session reads as gone, and its locks are freed on the way out
	_, err := fx.service.Get(ctx, sessionID, fx.owner)
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Equal(t, 0, fx.locks.lockCount())

	stored, err := fx.repo.GetByID(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StateExpired, stored.State)

	// Mutations on the expired session are rejected
	_, err = fx.service.SelectSeats(ctx, sessionID, fx.owner, []seats.SeatRef{{Row: 1, Column: 3}})
	require.Error(t, err)
	assert.Equal(t, errs.KindSessionNotActive, errs.KindOf(err))
}

func TestPingExtendsHold(t *testing.T) {
	fx := newFixture(t)
	sessionID := mustStart(t, fx)
	ctx := context.Background()
	mustSelect(t, fx, sessionID, seats.SeatRef{Row: 4, Column: 4})

	fx.clock.Advance(4 * time.Minute)

	resp, err := fx.service.Ping(ctx, sessionID, fx.owner)
	require.NoError(t, err)
	assert.Equal(t, fx.clock.Now().Add(5*time.Minute), resp.ExpiresAt)
}

func TestSweepExpired(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// Session that will expire
	firstID := mustStart(t, fx)
	mustSelect(t, fx, firstID, seats.SeatRef{Row: 8, Column: 8})

	// Fresh session of a different owner, on the longer idle TTL
	otherOwner := uuid.New()
	fresh, err := fx.service.Start(ctx, otherOwner, fx.event.ID)
	require.NoError(t, err)

	fx.clock.Advance(5*time.Minute + time.Second)

	expired, released, err := fx.service.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, released)
	assert.Equal(t, 0, fx.locks.lockCount())

	stored, err := fx.repo.GetByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StateExpired, stored.State)

	untouched, err := fx.repo.GetByID(ctx, uuid.MustParse(fresh.ID))
	require.NoError(t, err)
	assert.Equal(t, sessions.StateSeatSelection, untouched.State)

	// A second pass finds nothing
	expired, released, err = fx.service.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Zero(t, released)
}

func TestFinalize(t *testing.T) {
	a := seats.SeatRef{Row: 6, Column: 1}
	b := seats.SeatRef{Row: 6, Column: 2}
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, uuid.UUID) {
		t.Helper()
		fx := newFixture(t)
		sessionID := mustStart(t, fx)
		mustSelect(t, fx, sessionID, a, b)
		_, err := fx.service.AssignNames(ctx, sessionID, fx.owner, namesFor(a, b))
		require.NoError(t, err)
		return fx, sessionID
	}

	t.Run("happy path completes and releases locks", func(t *testing.T) {
		fx, sessionID := setup(t)

		finalized := false
		session, event, err := fx.service.Finalize(ctx, sessionID, fx.owner,
			func(ctx context.Context, session *sessions.Session, event *events.Event) error {
				finalized = true
				assert.Len(t, session.Seats, 2)
				assert.Equal(t, fx.event.ID, event.ID)
				return nil
			})

		require.NoError(t, err)
		assert.True(t, finalized)
		assert.Equal(t, sessions.StateCompleted, session.State)
		assert.Equal(t, 25.0, event.Price)
		assert.Equal(t, 0, fx.locks.lockCount())

		// A second confirm hits the completed state
		_, _, err = fx.service.Finalize(ctx, sessionID, fx.owner,
			func(context.Context, *sessions.Session, *events.Event) error { return nil })
		require.Error(t, err)
		assert.Equal(t, errs.KindSessionNotActive, errs.KindOf(err))
	})

	t.Run("missing attendee name blocks confirmation", func(t *testing.T) {
		fx := newFixture(t)
		sessionID := mustStart(t, fx)
		mustSelect(t, fx, sessionID, a, b)

		_, _, err := fx.service.Finalize(ctx, sessionID, fx.owner,
			func(context.Context, *sessions.Session, *events.Event) error {
				t.Fatal("finalize must not run without names")
				return nil
			})
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("lost lock is a conflict", func(t *testing.T) {
		fx, sessionID := setup(t)

		// Simulate TTL expiry of one lock
		_, err := fx.locks.Release(ctx, fx.event.ID.String(), sessionID.String(), []seats.SeatRef{b})
		require.NoError(t, err)

		_, _, err = fx.service.Finalize(ctx, sessionID, fx.owner,
			func(context.Context, *sessions.Session, *events.Event) error {
				t.Fatal("finalize must not run without all locks")
				return nil
			})
		require.Error(t, err)
		assert.Equal(t, errs.KindConflict, errs.KindOf(err))
	})

	t.Run("persist failure leaves the session confirmable", func(t *testing.T) {
		fx, sessionID := setup(t)

		wantErr := errs.New(errs.KindConsistency, "seat sold while its lock was held")
		_, _, err := fx.service.Finalize(ctx, sessionID, fx.owner,
			func(context.Context, *sessions.Session, *events.Event) error { return wantErr })
		require.Error(t, err)
		assert.Equal(t, errs.KindConsistency, errs.KindOf(err))

		stored, err := fx.repo.GetByID(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sessions.StateNameAssignment, stored.State,
			"failed finalization must not complete the session")
	})
}

package sessions

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"boleto/internal/events"
	"boleto/internal/seats"
	"boleto/internal/shared/config"
	"boleto/internal/shared/errs"
	"boleto/pkg/clock"
	"boleto/pkg/logger"
)

// FinalizeFunc persists the sale for a validated session. It runs while the
// session guard is held and every seat lock has been verified.
type FinalizeFunc func(ctx context.Context, session *Session, event *events.Event) error

// LockTable is the slice of the seat lock table the session layer needs.
// Satisfied by *seats.LockTable.
type LockTable interface {
	Acquire(ctx context.Context, eventID, sessionID string, refs []seats.SeatRef, ttl time.Duration) error
	Release(ctx context.Context, eventID, sessionID string, refs []seats.SeatRef) (int, error)
	Refresh(ctx context.Context, eventID, sessionID string, refs []seats.SeatRef, ttl time.Duration) (int, error)
	VerifyHeld(ctx context.Context, eventID, sessionID string, refs []seats.SeatRef) error
}

type Service interface {
	Start(ctx context.Context, ownerID, eventID uuid.UUID) (*SessionResponse, error)
	Get(ctx context.Context, sessionID, ownerID uuid.UUID) (*SessionResponse, error)
	SelectSeats(ctx context.Context, sessionID, ownerID uuid.UUID, refs []seats.SeatRef) (*SessionResponse, error)
	AssignNames(ctx context.Context, sessionID, ownerID uuid.UUID, names map[string]string) (*SessionResponse, error)
	Cancel(ctx context.Context, sessionID, ownerID uuid.UUID) error
	Ping(ctx context.Context, sessionID, ownerID uuid.UUID) (*SessionResponse, error)

	// Finalize runs the confirmation protocol: it serializes on the session,
	// re-validates state, names and locks, invokes fn to persist the sale,
	// then completes the session and releases its locks.
	Finalize(ctx context.Context, sessionID, ownerID uuid.UUID, fn FinalizeFunc) (*Session, *events.Event, error)

	// SweepExpired transitions every overdue session to EXPIRED and
	// releases its seat locks. Returns expired session and released lock
	// counts.
	SweepExpired(ctx context.Context) (int, int, error)
}

type service struct {
	repo     Repository
	locks    LockTable
	soldRepo seats.Repository
	events   events.Service
	config   *config.Config
	clock    clock.Clock
	logger   *logger.Logger
	guard    *guard
}

func NewService(
	repo Repository,
	locks LockTable,
	soldRepo seats.Repository,
	eventService events.Service,
	cfg *config.Config,
	clk clock.Clock,
	log *logger.Logger,
) Service {
	return &service{
		repo:     repo,
		locks:    locks,
		soldRepo: soldRepo,
		events:   eventService,
		config:   cfg,
		clock:    clk,
		logger:   log,
		guard:    newGuard(),
	}
}

func (s *service) Start(ctx context.Context, ownerID, eventID uuid.UUID) (*SessionResponse, error) {
	event, err := s.events.GetSellableEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	// A buyer holds at most one active session. Starting a new one
	// cancels the previous session and frees its seats.
	if prev, err := s.repo.GetActiveByOwner(ctx, ownerID); err == nil {
		unlock := s.guard.lock(prev.ID.String())
		_ = s.cancelSession(ctx, prev)
		unlock()
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to check for active session")
	}

	now := s.clock.Now().UTC()
	session := &Session{
		EventID:        eventID,
		OwnerID:        ownerID,
		State:          StateSeatSelection,
		ExpiresAt:      now.Add(s.config.Purchase.SessionIdleTTL),
		LastActivityAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to create session")
	}

	s.logger.LogSessionStarted(ctx, session.ID.String(), eventID.String(), ownerID.String())

	resp := session.ToResponse(event.Price)
	return &resp, nil
}

func (s *service) Get(ctx context.Context, sessionID, ownerID uuid.UUID) (*SessionResponse, error) {
	unlock := s.guard.lock(sessionID.String())
	defer unlock()

	session, err := s.loadOwned(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	s.lazyExpire(ctx, session)
	if session.State == StateExpired {
		return nil, errs.New(errs.KindNotFound, "session %s not found", sessionID)
	}

	return s.respond(ctx, session)
}

func (s *service) SelectSeats(ctx context.Context, sessionID, ownerID uuid.UUID, refs []seats.SeatRef) (*SessionResponse, error) {
	unlock := s.guard.lock(sessionID.String())
	defer unlock()

	session, err := s.loadOwned(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	s.lazyExpire(ctx, session)
	if !session.State.IsActive() {
		return nil, errs.New(errs.KindSessionNotActive, "session %s is %s", sessionID, session.State)
	}

	event, err := s.events.GetSellableEvent(ctx, session.EventID)
	if err != nil {
		return nil, err
	}

	if err := s.validateSelection(event, refs); err != nil {
		return nil, err
	}

	// Reject seats already sold before touching any lock
	sold, err := s.soldRepo.ListByRefs(ctx, session.EventID, refs)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to check sold seats")
	}
	if len(sold) > 0 {
		return nil, errs.New(errs.KindConflict, "seat %s is already sold", sold[0].Ref().Key())
	}

	// Acquire the new selection first. Seats the session already holds
	// just get their TTL refreshed, so overlap with the old selection is
	// fine. On conflict nothing changed and the old selection stands.
	oldRefs := session.SeatRefs()
	if err := s.locks.Acquire(ctx, session.EventID.String(), sessionID.String(), refs, s.config.Purchase.SeatLockTTL); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	newSeats := make([]SessionSeat, 0, len(refs))
	for _, ref := range refs {
		newSeats = append(newSeats, SessionSeat{SeatRow: ref.Row, SeatColumn: ref.Column})
	}

	session.State = StateNameAssignment
	session.LastActivityAt = now
	session.ExpiresAt = now.Add(s.config.Purchase.SeatLockTTL)

	if err := s.repo.ReplaceSeats(ctx, session, newSeats); err != nil {
		// Roll back the locks we just took that were not part of the
		// previous selection.
		added := refsDiff(refs, oldRefs)
		_, _ = s.locks.Release(ctx, session.EventID.String(), sessionID.String(), added)
		return nil, errs.Wrap(errs.KindInternal, err, "failed to persist seat selection")
	}
	session.Seats = newSeats

	// Drop locks on seats removed from the selection
	removed := refsDiff(oldRefs, refs)
	if len(removed) > 0 {
		_, _ = s.locks.Release(ctx, session.EventID.String(), sessionID.String(), removed)
	}

	s.logger.LogSeatsLocked(ctx, sessionID.String(), len(refs), s.config.Purchase.SeatLockTTL)

	resp := session.ToResponse(event.Price)
	return &resp, nil
}

func (s *service) AssignNames(ctx context.Context, sessionID, ownerID uuid.UUID, names map[string]string) (*SessionResponse, error) {
	unlock := s.guard.lock(sessionID.String())
	defer unlock()

	session, err := s.loadOwned(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	s.lazyExpire(ctx, session)
	if session.State != StateNameAssignment {
		return nil, errs.New(errs.KindSessionNotActive, "session %s has no seats awaiting names", sessionID)
	}

	cleaned, err := s.validateNames(session, names)
	if err != nil {
		return nil, err
	}

	// Assigning names keeps the hold alive
	refs := session.SeatRefs()
	refreshed, err := s.locks.Refresh(ctx, session.EventID.String(), sessionID.String(), refs, s.config.Purchase.SeatLockTTL)
	if err != nil {
		return nil, err
	}
	if refreshed != len(refs) {
		return nil, errs.New(errs.KindConflict, "seat locks expired, select seats again")
	}

	now := s.clock.Now().UTC()
	for i := range session.Seats {
		session.Seats[i].AttendeeName = cleaned[session.Seats[i].Ref().Key()]
	}
	session.LastActivityAt = now
	session.ExpiresAt = now.Add(s.config.Purchase.SeatLockTTL)

	if err := s.repo.UpdateSeatNames(ctx, session); err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to persist attendee names")
	}

	return s.respond(ctx, session)
}

func (s *service) Cancel(ctx context.Context, sessionID, ownerID uuid.UUID) error {
	unlock := s.guard.lock(sessionID.String())
	defer unlock()

	session, err := s.loadOwned(ctx, sessionID, ownerID)
	if err != nil {
		return err
	}

	switch session.State {
	case StateCompleted:
		return errs.New(errs.KindSessionNotActive, "session %s is already completed", sessionID)
	case StateCancelled, StateExpired:
		// Cancelling a dead session is a no-op
		return nil
	}

	return s.cancelSession(ctx, session)
}

func (s *service) Ping(ctx context.Context, sessionID, ownerID uuid.UUID) (*SessionResponse, error) {
	unlock := s.guard.lock(sessionID.String())
	defer unlock()

	session, err := s.loadOwned(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	s.lazyExpire(ctx, session)
	if !session.State.IsActive() {
		return nil, errs.New(errs.KindSessionNotActive, "session %s is %s", sessionID, session.State)
	}

	now := s.clock.Now().UTC()
	session.LastActivityAt = now

	refs := session.SeatRefs()
	if len(refs) > 0 {
		refreshed, err := s.locks.Refresh(ctx, session.EventID.String(), sessionID.String(), refs, s.config.Purchase.SeatLockTTL)
		if err != nil {
			return nil, err
		}
		if refreshed != len(refs) {
			return nil, errs.New(errs.KindConflict, "seat locks expired, select seats again")
		}
		session.ExpiresAt = now.Add(s.config.Purchase.SeatLockTTL)
	} else {
		session.ExpiresAt = now.Add(s.config.Purchase.SessionIdleTTL)
	}

	if err := s.repo.Save(ctx, session); err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to persist session")
	}

	return s.respond(ctx, session)
}

func (s *service) Finalize(ctx context.Context, sessionID, ownerID uuid.UUID, fn FinalizeFunc) (*Session, *events.Event, error) {
	unlock := s.guard.lock(sessionID.String())
	defer unlock()

	session, err := s.loadOwned(ctx, sessionID, ownerID)
	if err != nil {
		return nil, nil, err
	}

	s.lazyExpire(ctx, session)
	if session.State != StateNameAssignment {
		return nil, nil, errs.New(errs.KindSessionNotActive, "session %s cannot be confirmed in state %s", sessionID, session.State)
	}

	for i := range session.Seats {
		if session.Seats[i].AttendeeName == "" {
			return nil, nil, errs.New(errs.KindValidation, "seat %s has no attendee name", session.Seats[i].Ref().Key())
		}
	}

	event, err := s.events.GetSellableEvent(ctx, session.EventID)
	if err != nil {
		return nil, nil, err
	}

	refs := session.SeatRefs()
	if err := s.locks.VerifyHeld(ctx, session.EventID.String(), sessionID.String(), refs); err != nil {
		return nil, nil, err
	}

	if err := fn(ctx, session, event); err != nil {
		return nil, nil, err
	}

	// The sale is durable from here on. A failure below leaves the
	// session record behind the truth in Postgres, which the logs must
	// surface, but it can never unsell a seat.
	session.State = StateCompleted
	session.LastActivityAt = s.clock.Now().UTC()
	if err := s.repo.Save(ctx, session); err != nil {
		s.logger.LogConsistencyFailure(ctx, sessionID.String(), err)
	}

	if _, err := s.locks.Release(ctx, session.EventID.String(), sessionID.String(), refs); err != nil {
		s.logger.LogConsistencyFailure(ctx, sessionID.String(), err)
	}

	return session, event, nil
}

func (s *service) SweepExpired(ctx context.Context) (int, int, error) {
	now := s.clock.Now().UTC()
	overdue, err := s.repo.ListExpired(ctx, now, 100)
	if err != nil {
		return 0, 0, errs.Wrap(errs.KindInternal, err, "failed to list expired sessions")
	}

	expired := 0
	released := 0
	for i := range overdue {
		session := &overdue[i]

		unlock := s.guard.lock(session.ID.String())

		// Re-read under the guard, the session may have progressed since
		// the listing.
		current, err := s.repo.GetByID(ctx, session.ID)
		if err != nil || !current.State.IsActive() || current.ExpiresAt.After(now) {
			unlock()
			continue
		}

		n, err := s.expireSession(ctx, current)
		unlock()
		if err != nil {
			continue
		}
		expired++
		released += n
	}

	if expired > 0 {
		s.logger.LogSweep(ctx, expired, released)
	}

	return expired, released, nil
}

// loadOwned fetches the session and hides its existence from anyone but
// the owner.
func (s *service) loadOwned(ctx context.Context, sessionID, ownerID uuid.UUID) (*Session, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, errs.New(errs.KindNotFound, "session %s not found", sessionID)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to load session")
	}

	if session.OwnerID != ownerID {
		return nil, errs.New(errs.KindNotFound, "session %s not found", sessionID)
	}

	return session, nil
}

// lazyExpire flips an overdue session to EXPIRED on the spot so callers
// never operate on a session the sweeper just has not reached yet.
func (s *service) lazyExpire(ctx context.Context, session *Session) {
	if !session.State.IsActive() || session.ExpiresAt.After(s.clock.Now().UTC()) {
		return
	}
	_, _ = s.expireSession(ctx, session)
}

func (s *service) expireSession(ctx context.Context, session *Session) (int, error) {
	released := 0
	if refs := session.SeatRefs(); len(refs) > 0 {
		n, err := s.locks.Release(ctx, session.EventID.String(), session.ID.String(), refs)
		if err == nil {
			released = n
		}
	}

	session.State = StateExpired
	if err := s.repo.Save(ctx, session); err != nil {
		return released, err
	}
	return released, nil
}

func (s *service) cancelSession(ctx context.Context, session *Session) error {
	if refs := session.SeatRefs(); len(refs) > 0 {
		_, _ = s.locks.Release(ctx, session.EventID.String(), session.ID.String(), refs)
	}

	session.State = StateCancelled
	if err := s.repo.Save(ctx, session); err != nil {
		return errs.Wrap(errs.KindInternal, err, "failed to cancel session")
	}
	return nil
}

func (s *service) validateSelection(event *events.Event, refs []seats.SeatRef) error {
	if len(refs) == 0 {
		return errs.New(errs.KindValidation, "select at least one seat")
	}
	if len(refs) > s.config.Purchase.MaxSeatsPerSession {
		return errs.New(errs.KindValidation, "cannot select more than %d seats", s.config.Purchase.MaxSeatsPerSession)
	}

	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if !event.SeatInBounds(ref.Row, ref.Column) {
			return errs.New(errs.KindValidation, "seat %s is outside the event grid", ref.Key())
		}
		if seen[ref.Key()] {
			return errs.New(errs.KindValidation, "seat %s selected twice", ref.Key())
		}
		seen[ref.Key()] = true
	}

	return nil
}

// validateNames checks the name map covers the selection exactly and
// returns the trimmed names keyed by seat reference.
func (s *service) validateNames(session *Session, names map[string]string) (map[string]string, error) {
	selected := make(map[string]bool, len(session.Seats))
	for i := range session.Seats {
		selected[session.Seats[i].Ref().Key()] = true
	}

	cleaned := make(map[string]string, len(names))
	for key, name := range names {
		if _, err := seats.ParseSeatRef(key); err != nil {
			return nil, err
		}
		if !selected[key] {
			return nil, errs.New(errs.KindValidation, "seat %s is not part of the session", key)
		}

		trimmed := strings.TrimSpace(name)
		if utf8.RuneCountInString(trimmed) < s.config.Purchase.MinAttendeeNameLen {
			return nil, errs.New(errs.KindValidation, "attendee name for seat %s must be at least %d characters", key, s.config.Purchase.MinAttendeeNameLen)
		}
		cleaned[key] = trimmed
	}

	for key := range selected {
		if _, ok := cleaned[key]; !ok {
			return nil, errs.New(errs.KindValidation, "missing attendee name for seat %s", key)
		}
	}

	return cleaned, nil
}

func (s *service) respond(ctx context.Context, session *Session) (*SessionResponse, error) {
	event, err := s.events.GetEventByID(ctx, session.EventID)
	if err != nil {
		return nil, err
	}

	resp := session.ToResponse(event.Price)
	return &resp, nil
}

func refsDiff(a, b []seats.SeatRef) []seats.SeatRef {
	inB := make(map[string]bool, len(b))
	for _, ref := range b {
		inB[ref.Key()] = true
	}

	var diff []seats.SeatRef
	for _, ref := range a {
		if !inB[ref.Key()] {
			diff = append(diff, ref)
		}
	}
	return diff
}

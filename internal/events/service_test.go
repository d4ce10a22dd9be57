package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"boleto/internal/events"
	"boleto/internal/shared/errs"
)

type fakeRepo struct {
	byID map[uuid.UUID]*events.Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*events.Event)}
}

func (f *fakeRepo) Create(event *events.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	cp := *event
	f.byID[event.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(id uuid.UUID) (*events.Event, error) {
	event, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *event
	return &cp, nil
}

func (f *fakeRepo) Update(id uuid.UUID, updates map[string]interface{}) (*events.Event, error) {
	event, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"]; ok {
		event.Status = events.Status(status.(string))
	}
	if price, ok := updates["price"]; ok {
		event.Price = price.(float64)
	}
	cp := *event
	return &cp, nil
}

func (f *fakeRepo) GetAll(query events.EventListQuery) ([]events.Event, int64, error) {
	var all []events.Event
	for _, event := range f.byID {
		all = append(all, *event)
	}
	return all, int64(len(all)), nil
}

func createRequest() events.CreateEventRequest {
	return events.CreateEventRequest{
		Name:         "Jazz Night",
		Venue:        "Main Hall",
		DateTime:     time.Now().Add(48 * time.Hour),
		TotalRows:    10,
		TotalColumns: 12,
		Price:        45.0,
	}
}

func TestCreateEventStartsAsDraft(t *testing.T) {
	service := events.NewService(newFakeRepo())

	resp, err := service.CreateEvent(uuid.New(), createRequest())
	require.NoError(t, err)

	assert.Equal(t, string(events.StatusDraft), string(resp.Status))
	assert.Equal(t, 120, resp.TotalSeats)
}

func TestCreateEventRejectsPastDate(t *testing.T) {
	service := events.NewService(newFakeRepo())

	req := createRequest()
	req.DateTime = time.Now().Add(-time.Hour)

	_, err := service.CreateEvent(uuid.New(), req)
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestGetSellableEvent(t *testing.T) {
	repo := newFakeRepo()
	service := events.NewService(repo)
	ctx := context.Background()

	t.Run("unknown event", func(t *testing.T) {
		_, err := service.GetSellableEvent(ctx, uuid.New())
		require.Error(t, err)
		assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	})

	t.Run("draft event is not purchasable", func(t *testing.T) {
		resp, err := service.CreateEvent(uuid.New(), createRequest())
		require.NoError(t, err)

		_, err = service.GetSellableEvent(ctx, uuid.MustParse(resp.ID))
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("published event is purchasable", func(t *testing.T) {
		resp, err := service.CreateEvent(uuid.New(), createRequest())
		require.NoError(t, err)

		id := uuid.MustParse(resp.ID)
		published := string(events.StatusPublished)
		_, err = service.UpdateEvent(id, events.UpdateEventRequest{Status: &published})
		require.NoError(t, err)

		event, err := service.GetSellableEvent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, events.StatusPublished, event.Status)
	})
}

package seats

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boleto/internal/shared/constants"
)

func TestReleaseInvalidatesMatrixSnapshot(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lt := NewLockTable(db)
	eventID := uuid.New().String()
	ref := SeatRef{Row: 1, Column: 2}

	keys := []string{lockIndexKey(eventID), seatLockKey(eventID, ref)}
	mock.ExpectEvalSha(luaReleaseLocks, keys, "session-a", ref.Key()).SetVal(int64(1))
	mock.ExpectDel(constants.SeatMatrixKey(eventID)).SetVal(1)

	released, err := lt.Release(context.Background(), eventID, "session-a", []SeatRef{ref})
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseOfForeignLockKeepsSnapshot(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lt := NewLockTable(db)
	eventID := uuid.New().String()
	ref := SeatRef{Row: 4, Column: 4}

	keys := []string{lockIndexKey(eventID), seatLockKey(eventID, ref)}
	mock.ExpectEvalSha(luaReleaseLocks, keys, "session-b", ref.Key()).SetVal(int64(0))

	released, err := lt.Release(context.Background(), eventID, "session-b", []SeatRef{ref})
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

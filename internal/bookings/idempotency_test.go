package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"worldtour/internal/shared/constants"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdempotencyGuard_Claim(t *testing.T) {
	userID := uuid.New()
	key := constants.BuildIdempotencyKey(userID.String(), "k1")
	ttl := 10 * time.Minute
	bookingID := uuid.New()

	tests := []struct {
		name        string
		reply       []interface{}
		wantClaimed bool
		wantID      uuid.UUID
		wantErr     error
	}{
		{name: "fresh key", reply: []interface{}{int64(1), "pending"}, wantClaimed: true},
		{name: "completed key", reply: []interface{}{int64(0), bookingID.String()}, wantID: bookingID},
		{name: "in flight", reply: []interface{}{int64(0), "pending"}, wantErr: ErrRequestInFlight},
		{name: "lapsed", reply: []interface{}{int64(0), ""}, wantErr: ErrRequestInFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			guard := NewRedisIdempotencyGuard(db, ttl)

			mock.ExpectEvalSha(claimScript.Hash(), []string{key}, "pending", ttl.Milliseconds()).SetVal(tt.reply)

			existing, claimed, err := guard.Claim(context.Background(), userID, "k1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantClaimed, claimed)
			assert.Equal(t, tt.wantID, existing)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisIdempotencyGuard_ClaimRedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	guard := NewRedisIdempotencyGuard(db, time.Minute)
	userID := uuid.New()

	mock.ExpectEvalSha(claimScript.Hash(), []string{constants.BuildIdempotencyKey(userID.String(), "k")}, "pending", int64(60000)).
		SetErr(errors.New("connection refused"))

	_, _, err := guard.Claim(context.Background(), userID, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRequestInFlight)
}

func TestRedisIdempotencyGuard_Complete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	guard := NewRedisIdempotencyGuard(db, time.Hour)
	userID, bookingID := uuid.New(), uuid.New()

	mock.ExpectSet(constants.BuildIdempotencyKey(userID.String(), "k"), bookingID.String(), time.Hour).SetVal("OK")

	require.NoError(t, guard.Complete(context.Background(), userID, "k", bookingID))
	require.NoError(t, mock.ExpectationsWereMet())
}

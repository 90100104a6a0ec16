package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStudentResultLookupCachesRecord(t *testing.T) {
	mr, client := setupRedis(t)
	store := newStubRecordStore()
	store.records["SUB100"] = models.EvaluationResult{SubmissionID: "SUB100", RollNo: "R-17", StudentName: "Asha"}

	svc := NewStudentResultService(store, client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	result, err := svc.Lookup(ctx, " SUB100 ", "r-17")
	require.NoError(t, err)
	require.Equal(t, "Asha", result.StudentName)
	require.True(t, mr.Exists("results:submission:SUB100"))
	require.Equal(t, time.Minute, mr.TTL("results:submission:SUB100"))

	// served from cache once the store forgets the record
	delete(store.records, "SUB100")
	cached, err := svc.Lookup(ctx, "SUB100", "R-17")
	require.NoError(t, err)
	require.Equal(t, "Asha", cached.StudentName)

	require.NoError(t, svc.Invalidate(ctx, "SUB100"))
	require.False(t, mr.Exists("results:submission:SUB100"))

	_, err = svc.Lookup(ctx, "SUB100", "R-17")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestStudentResultLookupHidesRollNumberMismatch(t *testing.T) {
	store := newStubRecordStore()
	store.records["SUB100"] = models.EvaluationResult{SubmissionID: "SUB100", RollNo: "R-17"}

	svc := NewStudentResultService(store, nil, 0, zerolog.Nop())

	_, err := svc.Lookup(context.Background(), "SUB100", "R-99")
	require.ErrorIs(t, err, ErrRecordNotFound)

	_, err = svc.Lookup(context.Background(), "   ", "R-17")
	require.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, svc.Invalidate(context.Background(), "SUB100"))
}

func TestStudentResultLookupFallsBackWhenCacheUnavailable(t *testing.T) {
	mr, client := setupRedis(t)
	store := newStubRecordStore()
	store.records["SUB5"] = models.EvaluationResult{SubmissionID: "SUB5", RollNo: "R-5"}

	svc := NewStudentResultService(store, client, time.Minute, zerolog.Nop())
	mr.Close()

	result, err := svc.Lookup(context.Background(), "SUB5", "R-5")
	require.NoError(t, err)
	require.Equal(t, "SUB5", result.SubmissionID)
}

package riverscheduler

import (
	"context"
	"os"
	"testing"
	"time"

	migrations "github.com/PaulFidika/quickauth/migrations/postgres"
	"github.com/PaulFidika/quickauth/nonce"
	pgstore "github.com/PaulFidika/quickauth/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ nonce.Scheduler = (*Scheduler)(nil)

type recordingHandler struct {
	calls chan ExpireArgs
}

func (h recordingHandler) Alarm(_ context.Context, id string, at int64) error {
	h.calls <- ExpireArgs{ID: id, ExpiresAt: at}
	return nil
}

func TestExpireArgsKind(t *testing.T) {
	assert.Equal(t, "quickauth_nonce_expire", ExpireArgs{}.Kind())
}

func TestWorkerDelegatesToHandler(t *testing.T) {
	s := &Scheduler{}
	w := &ExpireWorker{sched: s}
	job := &river.Job[ExpireArgs]{Args: ExpireArgs{ID: "n1", ExpiresAt: 42}}

	assert.ErrorIs(t, w.Work(context.Background(), job), ErrNoHandler)

	h := recordingHandler{calls: make(chan ExpireArgs, 1)}
	s.Bind(h)
	require.NoError(t, w.Work(context.Background(), job))
	assert.Equal(t, ExpireArgs{ID: "n1", ExpiresAt: 42}, <-h.calls)
}

func TestSchedulerExpiresNonce(t *testing.T) {
	dsn := os.Getenv("QUICKAUTH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("QUICKAUTH_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, migrations.MigrateAll(ctx, pool))

	sched, err := New(pool, Config{})
	require.NoError(t, err)
	store := pgstore.NewNonceStore(pool)
	svc := nonce.NewService(store, sched, nonce.WithTTL(time.Second))
	require.NoError(t, sched.Start(ctx))
	defer func() { _ = sched.Stop(context.Background()) }()

	id, _, err := svc.Generate(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok, err := store.Get(ctx, id)
		return err == nil && !ok
	}, 20*time.Second, 200*time.Millisecond)
}

package sqlstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/sagastore/internal/saga"
	"github.com/jcmexdev/sagastore/internal/saga/codec"
)

type testSagaData struct {
	SomeGuid uuid.UUID `json:"SomeGuid"`
}

func openTestStore(t *testing.T, tables Tables) *Store {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sagas.sqlite"), tables)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestRepo(store saga.Store) *saga.Repository[testSagaData] {
	return saga.NewRepository[testSagaData](store, codec.JSON[testSagaData]{}, saga.NewFactory[testSagaData]("TestSaga", nil))
}

func rawBlobs(t *testing.T, s *Store, id uuid.UUID) []string {
	t.Helper()
	rows, err := s.db.Query(`SELECT "BlobData" FROM "Sagas" WHERE "CorrelationId" = ?`, id.String())
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var b string
		require.NoError(t, rows.Scan(&b))
		out = append(out, b)
	}
	require.NoError(t, rows.Err())
	return out
}

type headerRow struct{ Key, Value string }

func rawHeaders(t *testing.T, s *Store, id uuid.UUID) []headerRow {
	t.Helper()
	rows, err := s.db.Query(`SELECT "Key", "Value" FROM "SagaHeaders" WHERE "CorrelationId" = ? ORDER BY "Key"`, id.String())
	require.NoError(t, err)
	defer rows.Close()
	var out []headerRow
	for rows.Next() {
		var h headerRow
		require.NoError(t, rows.Scan(&h.Key, &h.Value))
		out = append(out, h)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestSaveWritesBlob(t *testing.T) {
	store := openTestStore(t, Tables{})
	repo := newTestRepo(store)
	c1, g1 := uuid.New(), uuid.New()

	require.NoError(t, repo.Save(context.Background(), &saga.Saga[testSagaData]{CorrelationID: c1, Data: testSagaData{SomeGuid: g1}}))

	blobs := rawBlobs(t, store, c1)
	require.Len(t, blobs, 1)
	assert.Contains(t, blobs[0], g1.String())
}

func TestSaveWritesHeader(t *testing.T) {
	store := openTestStore(t, Tables{})
	repo := newTestRepo(store)
	c1 := uuid.New()

	require.NoError(t, repo.Save(context.Background(), &saga.Saga[testSagaData]{
		CorrelationID: c1,
		Headers:       map[string]string{"key": "V1"},
	}))

	assert.Equal(t, []headerRow{{Key: "key", Value: "V1"}}, rawHeaders(t, store, c1))
}

func TestSaveUpdatesPreexistingBlob(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, Tables{})
	repo := newTestRepo(store)
	c2, g2, g3 := uuid.New(), uuid.New(), uuid.New()

	_, err := store.db.Exec(`INSERT INTO "Sagas" ("CorrelationId", "BlobData") VALUES (?, ?)`,
		c2.String(), `{"SomeGuid":"`+g2.String()+`"}`)
	require.NoError(t, err)

	s, err := repo.Find(ctx, c2)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, g2, s.Data.SomeGuid)

	s.Data.SomeGuid = g3
	require.NoError(t, repo.Save(ctx, s))

	blobs := rawBlobs(t, store, c2)
	require.Len(t, blobs, 1)
	assert.Contains(t, blobs[0], g3.String())
	assert.NotContains(t, blobs[0], g2.String())
}

func TestCompleteDeletesRows(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, Tables{})
	repo := newTestRepo(store)
	c3 := uuid.New()

	_, err := store.db.Exec(`INSERT INTO "Sagas" ("CorrelationId", "BlobData") VALUES (?, '{}')`, c3.String())
	require.NoError(t, err)
	_, err = store.db.Exec(`INSERT INTO "SagaHeaders" ("CorrelationId", "Key", "Value") VALUES (?, 'k', 'v')`, c3.String())
	require.NoError(t, err)

	require.NoError(t, repo.Complete(ctx, &saga.Saga[testSagaData]{CorrelationID: c3}))

	assert.Empty(t, rawBlobs(t, store, c3))
	assert.Empty(t, rawHeaders(t, store, c3))

	s, err := repo.Find(ctx, c3)
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, repo.Complete(ctx, &saga.Saga[testSagaData]{CorrelationID: c3}), "second complete is a no-op")
}

func TestFindWithoutWrites(t *testing.T) {
	repo := newTestRepo(openTestStore(t, Tables{}))

	s, err := repo.Find(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestHeaderUpsert(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, Tables{})
	repo := newTestRepo(store)
	id := uuid.New()

	s := &saga.Saga[testSagaData]{CorrelationID: id, Headers: map[string]string{"a": "1"}}
	require.NoError(t, repo.Save(ctx, s))

	s.Headers["a"] = "2"
	s.Headers["b"] = "3"
	require.NoError(t, repo.Save(ctx, s))

	assert.Equal(t, []headerRow{{"a", "2"}, {"b", "3"}}, rawHeaders(t, store, id))

	delete(s.Headers, "a")
	require.NoError(t, repo.Save(ctx, s))
	assert.Len(t, rawHeaders(t, store, id), 2, "save never deletes headers")
}

func TestRoundTripAndIsolation(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, Tables{})
	repo := newTestRepo(store)

	a := &saga.Saga[testSagaData]{CorrelationID: uuid.New(), Data: testSagaData{SomeGuid: uuid.New()}, Headers: map[string]string{"who": "a"}}
	b := &saga.Saga[testSagaData]{CorrelationID: uuid.New(), Data: testSagaData{SomeGuid: uuid.New()}, Headers: map[string]string{"who": "b"}}
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	got, err := repo.Find(ctx, a.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, a.Data, got.Data)
	assert.Equal(t, a.Headers, got.Headers)

	require.NoError(t, repo.Complete(ctx, a))
	assert.Len(t, rawBlobs(t, store, b.CorrelationID), 1)
	assert.Len(t, rawHeaders(t, store, b.CorrelationID), 1)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, Tables{})
	id := uuid.New()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(tx saga.Tx) error {
		require.NoError(t, tx.UpsertBlob(ctx, id, "{}"))
		require.NoError(t, tx.UpsertHeader(ctx, id, "k", "v"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rawBlobs(t, store, id))
	assert.Empty(t, rawHeaders(t, store, id))
}

func TestConcurrentSavesOnDifferentIDs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, Tables{})
	repo := newTestRepo(store)

	ids := make([]uuid.UUID, 16)
	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for i := range ids {
		ids[i] = uuid.New()
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			errs <- repo.Save(ctx, &saga.Saga[testSagaData]{CorrelationID: id, Headers: map[string]string{"id": id.String()}})
		}(ids[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, id := range ids {
		s, err := repo.Find(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, id.String(), s.Headers["id"])
	}
}

func TestCustomTables(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, Tables{Blob: "OrderSagas", Header: "OrderSagaHeaders"})
	repo := newTestRepo(store)
	id := uuid.New()

	require.NoError(t, repo.Save(ctx, &saga.Saga[testSagaData]{CorrelationID: id, Headers: map[string]string{"k": "v"}}))

	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM "OrderSagas" WHERE "CorrelationId" = ?`, id.String()).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM "OrderSagaHeaders" WHERE "CorrelationId" = ?`, id.String()).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestInvalidTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sqlite")

	_, err := OpenSQLite(context.Background(), path, Tables{Blob: `Sagas"; DROP TABLE x; --`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")

	_, err = OpenSQLite(context.Background(), path, Tables{Blob: "Same", Header: "Same"})
	require.Error(t, err)
}

func TestStoreClose(t *testing.T) {
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "closed.sqlite"), Tables{})
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
	assert.Nil(t, store.db)
	// Second Close is no-op
	require.NoError(t, store.Close())
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := openTestStore(t, Tables{})
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.EnsureSchema(context.Background()))
}

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("SAGA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SAGA_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn, PostgresOptions{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(ctx))

	repo := newTestRepo(store)
	in := &saga.Saga[testSagaData]{CorrelationID: uuid.New(), Data: testSagaData{SomeGuid: uuid.New()}, Headers: map[string]string{"k": "v1"}}
	require.NoError(t, repo.Save(ctx, in))
	in.Headers["k"] = "v2"
	require.NoError(t, repo.Save(ctx, in))

	out, err := repo.Find(ctx, in.CorrelationID)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, map[string]string{"k": "v2"}, out.Headers)

	require.NoError(t, repo.Complete(ctx, in))
	out, err = repo.Find(ctx, in.CorrelationID)
	require.NoError(t, err)
	assert.Nil(t, out)
}

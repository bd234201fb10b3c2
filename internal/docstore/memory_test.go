package docstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princesspalace/palace/internal/docstore"
)

// recorder collects subscription callbacks.
type recorder struct {
	mu    sync.Mutex
	snaps []docstore.Snapshot
	errs  []error
	ch    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 64)}
}

func (r *recorder) onSnapshot(s docstore.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func (r *recorder) last() docstore.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func ids(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Data["name"].(string)
	}
	return out
}

func TestMemoryStore_SubscribeDeliversInitialAndChanges(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx := context.Background()
	rec := newRecorder()

	cancel := store.Subscribe(ctx, waiter, docstore.Collection("orders"), rec.onSnapshot, rec.onError)
	defer cancel()

	rec.wait(t)
	assert.Empty(t, rec.last().Docs)

	_, err := store.Add(ctx, waiter, "orders", docstore.Fields{"name": "first"})
	require.NoError(t, err)
	rec.wait(t)
	assert.Equal(t, []string{"first"}, ids(rec.last().Docs))

	_, err = store.Add(ctx, waiter, "orders", docstore.Fields{"name": "second"})
	require.NoError(t, err)
	rec.wait(t)
	assert.Equal(t, []string{"first", "second"}, ids(rec.last().Docs))
}

func TestMemoryStore_SubscribeFiltersOrdersAndLimits(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c", "d"} {
		owner := "c1"
		if i == 2 {
			owner = "c2"
		}
		_, err := store.Add(ctx, docstore.System, "orders", docstore.Fields{"name": name, "userId": owner, "total": i})
		require.NoError(t, err)
	}

	q := docstore.Collection("orders").
		Where("userId", docstore.Equal, "c1").
		OrderBy("total", true).
		Limit(2)
	docs, err := docstore.Once(ctx, store, customer, q)

	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b"}, ids(docs))
}

func TestMemoryStore_SubscribePermissionDenied(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	rec := newRecorder()

	cancel := store.Subscribe(context.Background(), customer, docstore.Collection("orders"), rec.onSnapshot, rec.onError)
	rec.wait(t)
	cancel()

	require.Len(t, rec.errs, 1)
	assert.Empty(t, rec.snaps)

	var oe *docstore.OpError
	require.ErrorAs(t, rec.errs[0], &oe)
	assert.True(t, oe.Permission())
	assert.Equal(t, docstore.OpList, oe.Op)
	assert.Equal(t, "orders", oe.Path)
}

func TestMemoryStore_CancelStopsDeliveries(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx := context.Background()
	rec := newRecorder()

	cancel := store.Subscribe(ctx, admin, docstore.Collection("orders"), rec.onSnapshot, rec.onError)
	rec.wait(t)
	assert.Equal(t, int64(1), store.Stats().Active)

	cancel()
	cancel()
	assert.Equal(t, int64(0), store.Stats().Active)
	assert.Equal(t, int64(1), store.Stats().Opened)

	_, err := store.Add(ctx, admin, "orders", docstore.Fields{"name": "late"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.snaps, 1)
}

func TestMemoryStore_ContextCancelEndsSubscription(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx, cancelCtx := context.WithCancel(context.Background())
	rec := newRecorder()

	cancel := store.Subscribe(ctx, admin, docstore.Collection("orders"), rec.onSnapshot, rec.onError)
	rec.wait(t)

	cancelCtx()
	cancel()
	assert.Equal(t, int64(0), store.Stats().Active)
	assert.Empty(t, rec.errs)
}

func TestMemoryStore_OtherCollectionDoesNotWake(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx := context.Background()
	rec := newRecorder()

	cancel := store.Subscribe(ctx, admin, docstore.Collection("orders"), rec.onSnapshot, rec.onError)
	defer cancel()
	rec.wait(t)

	_, err := store.Add(ctx, admin, "expenses", docstore.Fields{"name": "rent"})
	require.NoError(t, err)

	select {
	case <-rec.ch:
		t.Fatal("unexpected delivery")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestMemoryStore_UpdateMergesFields(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx := context.Background()

	id, err := store.Add(ctx, customer, "orders", docstore.Fields{"name": "o", "userId": customer.UID, "status": "Kitchen Pending"})
	require.NoError(t, err)

	err = store.Update(ctx, waiter, docstore.Path("orders", id), docstore.Fields{"status": "Served"})
	require.NoError(t, err)

	doc, err := store.Get(ctx, customer, docstore.Path("orders", id))
	require.NoError(t, err)
	assert.Equal(t, "Served", doc.Data["status"])
	assert.Equal(t, "o", doc.Data["name"])
}

func TestMemoryStore_UpdateDeniedForCustomer(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx := context.Background()

	id, err := store.Add(ctx, customer, "orders", docstore.Fields{"userId": customer.UID, "status": "Kitchen Pending"})
	require.NoError(t, err)

	err = store.Update(ctx, customer, docstore.Path("orders", id), docstore.Fields{"status": "Completed"})
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())

	err := store.Update(context.Background(), admin, "orders/nope", docstore.Fields{"status": "Served"})

	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestMemoryStore_GetAndSet(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx := context.Background()

	_, err := store.Get(ctx, customer, "users/c1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	_, err = store.Get(ctx, customer, "users/c2")
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)

	err = store.Set(ctx, customer, "users/c1", docstore.Fields{"role": "admin"})
	assert.ErrorIs(t, err, docstore.ErrPermissionDenied)

	require.NoError(t, store.Set(ctx, docstore.System, "users/c1", docstore.Fields{"role": "customer", "id": "dropped"}))
	doc, err := store.Get(ctx, customer, "users/c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", doc.ID)
	assert.Equal(t, docstore.Fields{"role": "customer"}, doc.Data)
}

func TestMemoryStore_InvalidPaths(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())
	ctx := context.Background()

	_, err := store.Add(ctx, admin, "bad/collection", docstore.Fields{})
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)

	_, err = store.Get(ctx, admin, "orders")
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
}

func TestOnce_ReturnsError(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.DefaultRules())

	_, err := docstore.Once(context.Background(), store, visitor, docstore.Collection("expenses"))

	assert.True(t, errors.Is(err, docstore.ErrPermissionDenied))
}

// assertExactEquality checks that Equal and In compare whole values, so an
// array filter never matches a document holding a longer array.
func assertExactEquality(t *testing.T, store docstore.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Add(ctx, docstore.System, "orders", docstore.Fields{"name": "pair", "tags": []any{"vip", "regular"}, "table": 4})
	require.NoError(t, err)
	_, err = store.Add(ctx, docstore.System, "orders", docstore.Fields{"name": "single", "tags": []any{"vip"}, "table": 7})
	require.NoError(t, err)

	list := func(q docstore.Query) []string {
		docs, err := docstore.Once(ctx, store, admin, q)
		require.NoError(t, err)
		return ids(docs)
	}

	orders := docstore.Collection("orders")
	assert.Equal(t, []string{"single"}, list(orders.Where("tags", docstore.Equal, []string{"vip"})))
	assert.Equal(t, []string{"pair"}, list(orders.Where("tags", docstore.Equal, []string{"vip", "regular"})))
	assert.Empty(t, list(orders.Where("tags", docstore.Equal, "vip")))
	assert.Equal(t, []string{"single"}, list(orders.Where("tags", docstore.In, [][]string{{"vip"}, {"staff"}})))
	assert.Equal(t, []string{"pair"}, list(orders.Where("table", docstore.Equal, 4)))
}

func TestMemoryStore_EqualityIsExact(t *testing.T) {
	assertExactEquality(t, docstore.NewMemoryStore(docstore.DefaultRules()))
}

package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

func TestStoreCreateIsIdempotentPerID(t *testing.T) {
	store := NewStore(fakeAcquire(), 0)

	first, created, err := store.Create(context.Background(), "s1")
	if err != nil || !created {
		t.Fatalf("Create() = created %v, err %v", created, err)
	}
	first.Append(UserMessage("hello"))

	again, created, err := store.Create(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created {
		t.Fatal("re-creating an existing session should be a no-op")
	}
	if again != first {
		t.Fatal("re-creation returned a different session")
	}
	if again.Len() != 1 {
		t.Fatalf("transcript reset on re-entry: len = %d", again.Len())
	}
}

func TestStoreCreateGeneratesIDWhenEmpty(t *testing.T) {
	store := NewStore(fakeAcquire(), 0)
	session, created, err := store.Create(context.Background(), "")
	if err != nil || !created {
		t.Fatalf("Create() = created %v, err %v", created, err)
	}
	if session.ID() == "" {
		t.Fatal("expected generated session id")
	}
}

func TestStoreRemoveClosesConnection(t *testing.T) {
	conn := &fakeConn{}
	store := NewStore(func(context.Context) (SessionConn, error) { return conn, nil }, 0)
	if _, _, err := store.Create(context.Background(), "s1"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Remove("s1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !conn.closed {
		t.Fatal("session connection was not released")
	}
	if _, err := store.Get("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() after Remove() error = %v", err)
	}
	if err := store.Remove("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second Remove() error = %v", err)
	}
}

func TestStoreEnforcesSessionLimit(t *testing.T) {
	store := NewStore(fakeAcquire(), 1)
	if _, _, err := store.Create(context.Background(), "s1"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, _, err := store.Create(context.Background(), "s2"); !errors.Is(err, ErrSessionLimit) {
		t.Fatalf("Create() over limit error = %v", err)
	}
	// re-entering the existing session is still allowed at the limit
	if _, _, err := store.Create(context.Background(), "s1"); err != nil {
		t.Fatalf("Create() existing at limit error = %v", err)
	}
}

func TestStoreCloseReleasesEverySession(t *testing.T) {
	first := &fakeConn{}
	second := &fakeConn{}
	conns := []*fakeConn{first, second}
	index := 0
	store := NewStore(func(context.Context) (SessionConn, error) {
		conn := conns[index]
		index++
		return conn, nil
	}, 0)

	if _, _, err := store.Create(context.Background(), "s1"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, _, err := store.Create(context.Background(), "s2"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !first.closed || !second.closed {
		t.Fatal("not every session connection was released")
	}
	if store.Len() != 0 {
		t.Fatalf("Len() after Close() = %d", store.Len())
	}
}

type fakeConn struct {
	closed bool
	result warehouse.Result
	err    error
}

func (f *fakeConn) Execute(context.Context, string) (warehouse.Result, error) {
	if f.err != nil {
		return warehouse.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func fakeAcquire() AcquireFunc {
	return func(context.Context) (SessionConn, error) {
		return &fakeConn{}, nil
	}
}

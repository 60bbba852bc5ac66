package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
)

type fakeStore struct {
	mu        sync.Mutex
	created   []core.Transaction
	createErr error
	versions  map[string]int64

	recurring []core.RecurringTransaction
	lastExec  map[string]time.Time
	updateErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{versions: map[string]int64{}, lastExec: map[string]time.Time{}}
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = fmt.Sprintf("tx-%d", len(f.created)+1)
	f.created = append(f.created, t)
	f.versions[t.ID] = 1
	return t, nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[id]
	if !ok {
		return 0, core.ErrTransactionNotFound
	}
	f.versions[id] = v + 1
	return v + 1, nil
}

func (f *fakeStore) GetActiveRecurring(_ context.Context, asOf time.Time) ([]core.RecurringTransaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.RecurringTransaction
	for _, re := range f.recurring {
		if re.ActiveOn(asOf) {
			out = append(out, re)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateRecurringLastExecution(_ context.Context, id string, day time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastExec[id] = day
	return nil
}

type publishCall struct {
	kind    string
	id      string
	version int64
}

type fakePublisher struct {
	calls  []publishCall
	err    error
	closed bool
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, id string, version int64) error {
	p.calls = append(p.calls, publishCall{"sync", id, version})
	return p.err
}

func (p *fakePublisher) PublishTransactionDelete(_ context.Context, id string, version int64) error {
	p.calls = append(p.calls, publishCall{"delete", id, version})
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func validTx() core.Transaction {
	return core.Transaction{
		AccountID:  "acc",
		Amount:     core.Money{Cents: -1200},
		OccurredAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTransactionService_CreateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	saved, err := svc.CreateTransaction(ctx, validTx())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTransaction(ctx, saved.ID); err != nil {
		t.Fatal(err)
	}

	want := []publishCall{{"sync", saved.ID, 1}, {"delete", saved.ID, 2}}
	if len(pub.calls) != len(want) {
		t.Fatalf("calls = %+v, want %+v", pub.calls, want)
	}
	for i := range want {
		if pub.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, pub.calls[i], want[i])
		}
	}

	if err := svc.Close(); err != nil || !pub.closed {
		t.Errorf("Close = %v, closed = %v", err, pub.closed)
	}
}

func TestTransactionService_PublishFailureIsNotReturned(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewTransactionService(newFakeStore(), pub)

	saved, err := svc.CreateTransaction(context.Background(), validTx())
	if err != nil {
		t.Fatalf("publish errors must not fail the write: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected saved id")
	}
}

func TestTransactionService_NilPublisher(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil)
	saved, err := svc.CreateTransaction(context.Background(), validTx())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTransaction(context.Background(), saved.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestTransactionService_StoreErrors(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewTransactionService(newFakeStore(), pub)

	bad := validTx()
	bad.Amount = core.Money{}
	if _, err := svc.CreateTransaction(ctx, bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
	if err := svc.DeleteTransaction(ctx, "missing"); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Errorf("err = %v, want ErrTransactionNotFound", err)
	}
	if len(pub.calls) != 0 {
		t.Errorf("nothing should be published on failure, got %+v", pub.calls)
	}
}

func TestRecurringProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.recurring = []core.RecurringTransaction{
		{ // monthly on the 31st, clamped to the 30th in April
			ID: "rent", AccountID: "acc", CategoryID: "cat-rent", Every: core.Monthly,
			StartDate: core.NewDate(2024, 1, 31), Amount: core.Money{Cents: -80000},
			Description: "rent", LastExecution: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{ // already ran this month
			ID: "gym", AccountID: "acc", Every: core.Monthly,
			StartDate: core.NewDate(2024, 1, 2), Amount: core.Money{Cents: -3000},
			LastExecution: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		},
		{ // due but flagged to skip
			ID: "paper", AccountID: "acc", Every: core.Weekly,
			StartDate: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: -250},
			SkipNext: true,
		},
		{ // ended
			ID: "old", AccountID: "acc", Every: core.Daily,
			StartDate: core.NewDate(2023, 1, 1), EndDate: core.NewDate(2023, 12, 31),
			Amount: core.Money{Cents: -100},
		},
		{
			ID: "weird", AccountID: "acc", Every: core.RepetitionTypes("fortnightly"),
			StartDate: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: -100},
		},
	}

	pub := &fakePublisher{}
	p := NewRecurringProcessor(store, NewTransactionService(store, pub))
	res, err := p.ProcessDue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}

	if res != (ProcessResult{Checked: 4, Created: 1, Skipped: 1, Failed: 1}) {
		t.Errorf("result = %+v", res)
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %+v", store.created)
	}
	got := store.created[0]
	if got.AccountID != "acc" || got.CategoryID != "cat-rent" || got.Amount.Cents != -80000 || !got.OccurredAt.Equal(now) {
		t.Errorf("created transaction = %+v", got)
	}
	if !store.lastExec["rent"].Equal(now) || !store.lastExec["paper"].Equal(now) {
		t.Errorf("last execution = %v", store.lastExec)
	}
	if _, ok := store.lastExec["gym"]; ok {
		t.Error("gym was not due and must not be touched")
	}
	if len(pub.calls) != 1 || pub.calls[0].kind != "sync" {
		t.Errorf("publish calls = %+v", pub.calls)
	}
}

func TestRecurringProcessor_Errors(t *testing.T) {
	if _, err := NewRecurringProcessor(nil, nil).ProcessDue(context.Background(), time.Now()); err == nil {
		t.Error("expected error for uninitialized processor")
	}

	store := newFakeStore()
	store.listErr = errors.New("db down")
	if _, err := NewRecurringProcessor(store, store).ProcessDue(context.Background(), time.Now()); err == nil {
		t.Error("expected list error")
	}

	store = newFakeStore()
	store.createErr = errors.New("disk full")
	store.recurring = []core.RecurringTransaction{{
		ID: "a", AccountID: "acc", Every: core.Daily,
		StartDate: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: -1},
	}}
	res, err := NewRecurringProcessor(store, store).ProcessDue(context.Background(), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || res.Failed != 1 || res.Created != 0 {
		t.Errorf("res = %+v, err = %v", res, err)
	}
	if _, ok := store.lastExec["a"]; ok {
		t.Error("failed creation must not advance last execution")
	}
}

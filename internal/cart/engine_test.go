package cart

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/goleak"

	"shopsync/internal/catalog"
	"shopsync/internal/credential"
	"shopsync/internal/guard"
	"shopsync/internal/model"
	"shopsync/internal/notify"
	"shopsync/internal/remote"
	"shopsync/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	engine     *Engine
	mock       *remote.Mock
	rec        *notify.Recorder
	creds      *credential.Resolver
	persistent *storage.Memory
	session    *storage.Memory
	products   *catalog.Snapshot
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	ctx := context.Background()

	persistent := storage.NewMemory()
	session := storage.NewMemory()
	creds := credential.NewResolver(persistent, session, nil)
	if token != "" {
		if err := creds.Save(ctx, token, true); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	rec := &notify.Recorder{}
	mock := &remote.Mock{}
	products := catalog.NewSnapshot(
		model.ProductRecord{ID: "P1", Name: "Shirt", Price: decimal.RequireFromString("20.50")},
		model.ProductRecord{ID: "P2", Name: "Hat", Price: decimal.NewFromInt(5)},
	)

	engine := New(Options{
		Remote:  mock,
		Guard:   guard.New(creds, rec, rec, nil),
		Catalog: products,
		Slot:    storage.NewSlot(persistent, storage.KeyCart),
	})

	return &fixture{
		engine:     engine,
		mock:       mock,
		rec:        rec,
		creds:      creds,
		persistent: persistent,
		session:    session,
		products:   products,
	}
}

func line(id, size string, qty int) model.CartLineItem {
	return model.CartLineItem{ProductRef: model.ProductID(id), Size: size, Quantity: qty}
}

func returning(items ...model.CartLineItem) func(context.Context, string, model.ProductID, string) ([]model.CartLineItem, error) {
	return func(context.Context, string, model.ProductID, string) ([]model.CartLineItem, error) {
		return items, nil
	}
}

func lastMessage(t *testing.T, rec *notify.Recorder) string {
	t.Helper()
	n, ok := rec.Last()
	if !ok {
		t.Fatal("no notification recorded")
	}
	return n.Message
}

func TestFetch_AnonymousIsNoOp(t *testing.T) {
	f := newFixture(t, "")

	if err := f.engine.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v, want nil", err)
	}

	if f.mock.TotalCalls() != 0 {
		t.Errorf("remote calls = %d, want 0", f.mock.TotalCalls())
	}
	if len(f.engine.Items()) != 0 {
		t.Errorf("Items() = %v, want empty", f.engine.Items())
	}
	if len(f.rec.Routes()) != 0 {
		t.Errorf("routes = %v, want none", f.rec.Routes())
	}
	if len(f.rec.Messages()) != 0 {
		t.Errorf("messages = %v, want none", f.rec.Messages())
	}
}

func TestFetch_ReplacesAndPersists(t *testing.T) {
	f := newFixture(t, "tok")
	f.mock.CartFunc = func(_ context.Context, token string) ([]model.CartLineItem, error) {
		if token != "tok" {
			t.Errorf("token = %q, want tok", token)
		}
		return []model.CartLineItem{line("P1", "M", 2), line("P2", "L", 1)}, nil
	}

	ctx := context.Background()
	if err := f.engine.Fetch(ctx); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	first := f.engine.Items()

	if err := f.engine.Fetch(ctx); err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if !reflect.DeepEqual(first, f.engine.Items()) {
		t.Errorf("Fetch() not idempotent: %v then %v", first, f.engine.Items())
	}
	if f.engine.Count() != 3 {
		t.Errorf("Count() = %d, want 3", f.engine.Count())
	}

	var cached []model.CartLineItem
	if ok, err := storage.NewSlot(f.persistent, storage.KeyCart).Load(ctx, &cached); !ok || err != nil {
		t.Fatalf("cache Load() = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(cached, first) {
		t.Errorf("cached = %v, want %v", cached, first)
	}
	if len(f.rec.Messages()) != 0 {
		t.Errorf("fetch should not notify, got %v", f.rec.Messages())
	}
}

func TestAdd_ReplacesFromServer(t *testing.T) {
	f := newFixture(t, "tok")
	f.mock.AddToCartFunc = func(_ context.Context, _ string, product model.ProductID, quantity int, size string) ([]model.CartLineItem, error) {
		if product != "P1" || quantity != 1 || size != "M" {
			t.Errorf("AddToCart(%s, %d, %s), want (P1, 1, M)", product, quantity, size)
		}
		return []model.CartLineItem{line("P1", "M", 1)}, nil
	}

	if err := f.engine.Add(context.Background(), "P1", "M"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	want := []model.CartLineItem{line("P1", "M", 1)}
	if got := f.engine.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
	if f.engine.Count() != 1 {
		t.Errorf("Count() = %d, want 1", f.engine.Count())
	}
	if msg := lastMessage(t, f.rec); msg != "Item Added To The Cart" {
		t.Errorf("message = %q", msg)
	}
}

func TestAdd_ServerTruthOverLocalDerivative(t *testing.T) {
	f := newFixture(t, "tok")
	f.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
		return []model.CartLineItem{line("P1", "M", 1)}, nil
	}
	f.mock.AddToCartFunc = func(context.Context, string, model.ProductID, int, string) ([]model.CartLineItem, error) {
		// Server merged concurrent activity from another device.
		return []model.CartLineItem{line("P2", "S", 4)}, nil
	}

	ctx := context.Background()
	f.engine.Fetch(ctx)
	if err := f.engine.Add(ctx, "P1", "M"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	want := []model.CartLineItem{line("P2", "S", 4)}
	if got := f.engine.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want exactly server %v", got, want)
	}
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name    string
		product model.ProductID
		size    string
		wantMsg string
	}{
		{"empty size", "P1", "", "Please Select a Size"},
		{"blank size", "P1", "   ", "Please Select a Size"},
		{"empty product", "", "M", "Please select a product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "tok")

			err := f.engine.Add(context.Background(), tt.product, tt.size)
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("Add() error = %v, want ErrValidation", err)
			}
			if f.mock.TotalCalls() != 0 {
				t.Errorf("remote calls = %d, want 0", f.mock.TotalCalls())
			}
			if msg := lastMessage(t, f.rec); msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestMutations_RequireCredential(t *testing.T) {
	tests := []struct {
		name    string
		call    func(e *Engine) error
		wantMsg string
	}{
		{"add", func(e *Engine) error { return e.Add(context.Background(), "P1", "M") }, "Please log in to add items to your cart"},
		{"update", func(e *Engine) error { return e.UpdateQuantity(context.Background(), "P1", "M", 2) }, "Please log in to update your cart"},
		{"remove", func(e *Engine) error { return e.Remove(context.Background(), "P1", "M") }, "Please log in to remove items from your cart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")

			err := tt.call(f.engine)
			if !errors.Is(err, model.ErrAuthRequired) {
				t.Errorf("error = %v, want ErrAuthRequired", err)
			}
			if f.mock.TotalCalls() != 0 {
				t.Errorf("remote calls = %d, want 0", f.mock.TotalCalls())
			}
			if routes := f.rec.Routes(); len(routes) != 1 || routes[0] != notify.RouteLogin {
				t.Errorf("routes = %v, want [/login]", routes)
			}
			if msg := lastMessage(t, f.rec); msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestUpdateQuantity_AuthErrorNamesStep(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		wantOp   string
	}{
		{"increase", 5, remote.OpCartIncrease},
		{"decrease", 1, remote.OpCartDecrease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			ctx := context.Background()
			if err := storage.NewSlot(f.persistent, storage.KeyCart).Save(ctx, []model.CartLineItem{line("P1", "M", 3)}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if err := f.engine.Restore(ctx); err != nil {
				t.Fatalf("Restore() error = %v", err)
			}

			err := f.engine.UpdateQuantity(ctx, "P1", "M", tt.quantity)
			var opErr *model.OpError
			if !errors.As(err, &opErr) || !errors.Is(err, model.ErrAuthRequired) {
				t.Fatalf("error = %v, want AuthRequired", err)
			}
			if opErr.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", opErr.Op, tt.wantOp)
			}
		})
	}
}

func TestUpdateQuantity_ZeroRoutesToRemove(t *testing.T) {
	f := newFixture(t, "tok")
	f.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
		return []model.CartLineItem{line("P1", "M", 2), line("P2", "L", 1)}, nil
	}
	f.mock.RemoveLineFunc = func(_ context.Context, _ string, product model.ProductID, size string) ([]model.CartLineItem, error) {
		if product != "P1" || size != "M" {
			t.Errorf("RemoveLine(%s, %s), want (P1, M)", product, size)
		}
		return []model.CartLineItem{line("P2", "L", 1)}, nil
	}

	ctx := context.Background()
	f.engine.Fetch(ctx)
	if err := f.engine.UpdateQuantity(ctx, "P1", "M", 0); err != nil {
		t.Fatalf("UpdateQuantity() error = %v", err)
	}

	if f.mock.Calls(remote.OpCartRemove) != 1 {
		t.Errorf("remove calls = %d, want 1", f.mock.Calls(remote.OpCartRemove))
	}
	if f.mock.Calls(remote.OpCartDecrease) != 0 {
		t.Error("quantity 0 must not issue a decrease")
	}
	if q := f.engine.Quantity("P1", "M"); q != 0 {
		t.Errorf("Quantity(P1, M) = %d, want 0 (line gone)", q)
	}
	if msg := lastMessage(t, f.rec); msg != "Item Removed From The Cart" {
		t.Errorf("message = %q", msg)
	}
}

func TestUpdateQuantity_Direction(t *testing.T) {
	tests := []struct {
		name    string
		desired int
		wantOp  string
	}{
		{"increase", 3, remote.OpCartIncrease},
		{"decrease", 1, remote.OpCartDecrease},
		{"unchanged", 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "tok")
			f.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
				return []model.CartLineItem{line("P1", "M", 2)}, nil
			}
			f.mock.IncreaseLineFunc = returning(line("P1", "M", 3))
			f.mock.DecreaseLineFunc = returning(line("P1", "M", 1))

			ctx := context.Background()
			f.engine.Fetch(ctx)
			if err := f.engine.UpdateQuantity(ctx, "P1", "M", tt.desired); err != nil {
				t.Fatalf("UpdateQuantity() error = %v", err)
			}

			steps := f.mock.Calls(remote.OpCartIncrease) + f.mock.Calls(remote.OpCartDecrease)
			if tt.wantOp == "" {
				if steps != 0 {
					t.Errorf("steps = %d, want none", steps)
				}
				return
			}
			if steps != 1 || f.mock.Calls(tt.wantOp) != 1 {
				t.Errorf("want exactly one %s, got inc=%d dec=%d", tt.wantOp,
					f.mock.Calls(remote.OpCartIncrease), f.mock.Calls(remote.OpCartDecrease))
			}
			if q := f.engine.Quantity("P1", "M"); q != tt.desired {
				t.Errorf("Quantity() = %d, want %d", q, tt.desired)
			}
			if msg := lastMessage(t, f.rec); msg != "Cart Updated" {
				t.Errorf("message = %q", msg)
			}
		})
	}
}

func TestUpdateQuantity_Negative(t *testing.T) {
	f := newFixture(t, "tok")

	err := f.engine.UpdateQuantity(context.Background(), "P1", "M", -1)
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if f.mock.TotalCalls() != 0 {
		t.Errorf("remote calls = %d, want 0", f.mock.TotalCalls())
	}
}

func TestResponseShapeViolations(t *testing.T) {
	tests := []struct {
		name  string
		items []model.CartLineItem
	}{
		{"duplicate line", []model.CartLineItem{line("P1", "M", 1), line("P1", "M", 2)}},
		{"zero quantity", []model.CartLineItem{line("P1", "M", 0)}},
		{"negative quantity", []model.CartLineItem{line("P1", "M", -2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "tok")
			f.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
				return []model.CartLineItem{line("P2", "S", 1)}, nil
			}
			f.mock.AddToCartFunc = func(context.Context, string, model.ProductID, int, string) ([]model.CartLineItem, error) {
				return tt.items, nil
			}

			ctx := context.Background()
			f.engine.Fetch(ctx)
			before := f.engine.Items()

			err := f.engine.Add(ctx, "P1", "M")
			if !errors.Is(err, model.ErrDataShape) {
				t.Fatalf("Add() error = %v, want ErrDataShape", err)
			}
			if got := f.engine.Items(); !reflect.DeepEqual(got, before) {
				t.Errorf("Items() = %v, want untouched %v", got, before)
			}
			if msg := lastMessage(t, f.rec); msg != "Failed to add to cart" {
				t.Errorf("message = %q", msg)
			}
		})
	}
}

func TestUnauthorized_Uniform(t *testing.T) {
	expired := func(op string) error { return model.NewSessionExpiredError(op) }

	tests := []struct {
		name  string
		setup func(m *remote.Mock)
		call  func(e *Engine) error
	}{
		{"fetch", func(m *remote.Mock) {
			m.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) { return nil, expired(remote.OpCartGet) }
		}, func(e *Engine) error { return e.Fetch(context.Background()) }},
		{"add", func(m *remote.Mock) {
			m.AddToCartFunc = func(context.Context, string, model.ProductID, int, string) ([]model.CartLineItem, error) {
				return nil, expired(remote.OpCartAdd)
			}
		}, func(e *Engine) error { return e.Add(context.Background(), "P1", "M") }},
		{"increase", func(m *remote.Mock) {
			m.IncreaseLineFunc = func(context.Context, string, model.ProductID, string) ([]model.CartLineItem, error) {
				return nil, expired(remote.OpCartIncrease)
			}
		}, func(e *Engine) error { return e.UpdateQuantity(context.Background(), "P1", "M", 5) }},
		{"remove", func(m *remote.Mock) {
			m.RemoveLineFunc = func(context.Context, string, model.ProductID, string) ([]model.CartLineItem, error) {
				return nil, expired(remote.OpCartRemove)
			}
		}, func(e *Engine) error { return e.Remove(context.Background(), "P1", "M") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "tok")
			ctx := context.Background()
			f.session.Set(ctx, storage.KeyToken, "stale-session-token")
			tt.setup(f.mock)

			err := tt.call(f.engine)
			if !errors.Is(err, model.ErrSessionExpired) {
				t.Fatalf("error = %v, want ErrSessionExpired", err)
			}

			for name, kv := range map[string]storage.KV{"persistent": f.persistent, "session": f.session} {
				if _, ok, _ := kv.Get(ctx, storage.KeyToken); ok {
					t.Errorf("%s scope still holds a token", name)
				}
			}
			if routes := f.rec.Routes(); len(routes) != 1 || routes[0] != notify.RouteLogin {
				t.Errorf("routes = %v, want [/login]", routes)
			}
			if msg := lastMessage(t, f.rec); msg != "Session expired. Please log in again." {
				t.Errorf("message = %q", msg)
			}
		})
	}
}

func TestRemoteFailure_LeavesStateUntouched(t *testing.T) {
	f := newFixture(t, "tok")
	f.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
		return []model.CartLineItem{line("P1", "M", 1)}, nil
	}
	f.mock.RemoveLineFunc = func(context.Context, string, model.ProductID, string) ([]model.CartLineItem, error) {
		return nil, model.NewRemoteError(remote.OpCartRemove, 500, "Database unavailable")
	}

	ctx := context.Background()
	f.engine.Fetch(ctx)
	before := f.engine.Items()

	if err := f.engine.Remove(ctx, "P1", "M"); !errors.Is(err, model.ErrRemote) {
		t.Fatalf("Remove() error = %v, want ErrRemote", err)
	}
	if !reflect.DeepEqual(f.engine.Items(), before) {
		t.Errorf("Items() changed on failure: %v", f.engine.Items())
	}
	if msg := lastMessage(t, f.rec); msg != "Database unavailable" {
		t.Errorf("message = %q", msg)
	}
	if st := f.engine.Status(); st.State != model.StatusError || st.Message != "Database unavailable" {
		t.Errorf("Status() = %+v", st)
	}
	if !f.creds.Has(ctx) {
		t.Error("credential cleared on non-401 failure")
	}

	f.engine.Fetch(ctx)
	if st := f.engine.Status(); st.State != model.StatusIdle {
		t.Errorf("Status() after success = %+v, want idle", st)
	}
}

func TestTotals(t *testing.T) {
	f := newFixture(t, "tok")
	f.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
		return []model.CartLineItem{line("P1", "M", 2), line("P2", "S", 1), line("GONE", "M", 3)}, nil
	}

	ctx := context.Background()
	empty := f.engine.Totals(ctx)
	if !empty.Total.IsZero() || !empty.Subtotal.IsZero() {
		t.Errorf("empty Totals() = %+v, want zero total", empty)
	}
	if !empty.DeliveryFee.Equal(decimal.NewFromInt(10)) {
		t.Errorf("DeliveryFee = %s, want 10", empty.DeliveryFee)
	}

	f.engine.Fetch(ctx)
	totals := f.engine.Totals(ctx)

	if !totals.Subtotal.Equal(decimal.RequireFromString("46")) {
		t.Errorf("Subtotal = %s, want 46", totals.Subtotal)
	}
	if !totals.Total.Equal(decimal.RequireFromString("56")) {
		t.Errorf("Total = %s, want 56", totals.Total)
	}
	if len(totals.Unresolved) != 1 || totals.Unresolved[0].Product != "GONE" {
		t.Errorf("Unresolved = %v, want [GONE/M]", totals.Unresolved)
	}
	if !f.engine.Amount(ctx).Equal(totals.Subtotal) {
		t.Errorf("Amount() = %s, want %s", f.engine.Amount(ctx), totals.Subtotal)
	}
	if got := f.engine.Format(totals.Total); got != "$56.00" {
		t.Errorf("Format() = %q, want $56.00", got)
	}
}

func TestTotals_CustomFeeAndCurrency(t *testing.T) {
	fee := decimal.RequireFromString("4.99")
	engine := New(Options{
		Remote:      &remote.Mock{},
		Guard:       guard.New(credential.NewResolver(storage.NewMemory(), nil, nil), nil, nil, nil),
		Catalog:     catalog.NewSnapshot(),
		Currency:    "€",
		DeliveryFee: &fee,
	})

	totals := engine.Totals(context.Background())
	if totals.Currency != "€" || !totals.DeliveryFee.Equal(fee) {
		t.Errorf("Totals() = %+v", totals)
	}
}

func TestReset_LocalOnly(t *testing.T) {
	f := newFixture(t, "tok")
	f.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
		return []model.CartLineItem{line("P1", "M", 1)}, nil
	}

	ctx := context.Background()
	f.engine.Fetch(ctx)
	callsBefore := f.mock.TotalCalls()

	f.engine.Reset(ctx)

	if f.mock.TotalCalls() != callsBefore {
		t.Error("Reset() issued a remote call")
	}
	if len(f.engine.Items()) != 0 || f.engine.Count() != 0 {
		t.Errorf("Items() = %v after Reset", f.engine.Items())
	}
	if _, ok, _ := f.persistent.Get(ctx, storage.KeyCart); ok {
		t.Error("cart cache survived Reset")
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("valid cache", func(t *testing.T) {
		f := newFixture(t, "tok")
		storage.NewSlot(f.persistent, storage.KeyCart).Save(ctx, []model.CartLineItem{line("P1", "M", 2)})

		if err := f.engine.Restore(ctx); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if f.engine.Quantity("P1", "M") != 2 {
			t.Errorf("Quantity() = %d, want 2", f.engine.Quantity("P1", "M"))
		}
		if f.mock.TotalCalls() != 0 {
			t.Error("Restore() must not call the remote")
		}
	})

	t.Run("invalid cache discarded", func(t *testing.T) {
		f := newFixture(t, "tok")
		storage.NewSlot(f.persistent, storage.KeyCart).Save(ctx, []model.CartLineItem{line("P1", "M", 1), line("P1", "M", 1)})

		if err := f.engine.Restore(ctx); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if len(f.engine.Items()) != 0 {
			t.Errorf("Items() = %v, want empty", f.engine.Items())
		}
		if _, ok, _ := f.persistent.Get(ctx, storage.KeyCart); ok {
			t.Error("invalid cache should be cleared")
		}
	})
}

func TestConcurrentMutations_LastResponseWins(t *testing.T) {
	f := newFixture(t, "tok")
	f.mock.AddToCartFunc = func(_ context.Context, _ string, product model.ProductID, _ int, size string) ([]model.CartLineItem, error) {
		return []model.CartLineItem{{ProductRef: product, Size: size, Quantity: 1}}, nil
	}

	var wg sync.WaitGroup
	for _, size := range []string{"S", "M", "L", "XL"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.engine.Add(context.Background(), "P1", size)
		}()
	}
	wg.Wait()

	items := f.engine.Items()
	if len(items) != 1 {
		t.Fatalf("Items() = %v, want exactly one server snapshot", items)
	}
	if st := f.engine.Status(); st.State != model.StatusIdle {
		t.Errorf("Status() = %+v, want idle", st)
	}
}

func TestReset_DropsInflightResponse(t *testing.T) {
	f := newFixture(t, "tok")
	started := make(chan struct{})
	release := make(chan struct{})
	f.mock.AddToCartFunc = func(context.Context, string, model.ProductID, int, string) ([]model.CartLineItem, error) {
		close(started)
		<-release
		return []model.CartLineItem{line("P1", "M", 1)}, nil
	}

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- f.engine.Add(ctx, "P1", "M") }()

	<-started
	f.engine.Reset(ctx)
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(f.engine.Items()) != 0 {
		t.Errorf("Items() = %v, want empty after Reset", f.engine.Items())
	}
	if _, ok, _ := f.persistent.Get(ctx, storage.KeyCart); ok {
		t.Error("stale response repopulated the cart cache")
	}
}

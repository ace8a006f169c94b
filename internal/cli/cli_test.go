package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"shopsync/internal/catalog"
	"shopsync/internal/model"
	"shopsync/internal/notify"
	"shopsync/internal/remote"
	"shopsync/internal/session"
	"shopsync/internal/storage"
	"shopsync/internal/view"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// env is a persisted store shared by every invocation in a test, standing
// in for the SQLite file.
type env struct {
	mock       *remote.Mock
	persistent *storage.Memory
	opens      int
}

func newEnv() *env {
	return &env{mock: &remote.Mock{}, persistent: storage.NewMemory()}
}

func (e *env) open(_ context.Context, _ *RootOptions, sink notify.Sink, nav notify.Navigator) (*session.Session, io.Closer, error) {
	e.opens++
	sess, err := session.New(session.Options{
		Persistent: e.persistent,
		Remote:     e.mock,
		Catalog: catalog.NewSnapshot(
			model.ProductRecord{ID: "P1", Name: "Shirt", Price: decimal.RequireFromString("20.50")},
		),
		Sink:      sink,
		Navigator: nav,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, nil, err
	}
	return sess, nopCloser{}, nil
}

// exec runs one shopctl invocation and returns its exit code, stdout and stderr.
func (e *env) exec(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(e.open)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	code := Execute(context.Background(), cmd, args)
	return code, stdout.String(), stderr.String()
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(newEnv().open)
	if cmd.Use != "shopctl" {
		t.Errorf("Use = %q, want shopctl", cmd.Use)
	}

	for _, path := range [][]string{
		{"login"}, {"logout"}, {"status"},
		{"cart"}, {"cart", "add"}, {"cart", "qty"}, {"cart", "rm"},
		{"wishlist"}, {"wishlist", "add"}, {"wishlist", "rm"}, {"wishlist", "toggle"},
		{"orders"}, {"order", "place"}, {"profile"}, {"profile", "update"},
	} {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			if err != nil || sub.Name() != path[len(path)-1] {
				t.Errorf("Find(%v) = %v, %v", path, sub, err)
			}
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(newEnv().open)

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"verbose", "v", "false"},
		{"format", "", "text"},
		{"state-file", "", ""},
	}
	for _, tt := range tests {
		f := cmd.PersistentFlags().Lookup(tt.name)
		if f == nil {
			t.Errorf("flag --%s missing", tt.name)
			continue
		}
		if f.Shorthand != tt.shorthand || f.DefValue != tt.def {
			t.Errorf("--%s shorthand=%q default=%q, want %q %q", tt.name, f.Shorthand, f.DefValue, tt.shorthand, tt.def)
		}
	}
}

func TestInvalidFormat(t *testing.T) {
	e := newEnv()
	code, _, stderr := e.exec(t, "--format", "yaml", "status")
	if code != ExitCommandError {
		t.Errorf("exit = %d, want %d", code, ExitCommandError)
	}
	if !strings.Contains(stderr, "invalid format") {
		t.Errorf("stderr = %q", stderr)
	}
	if e.opens != 0 {
		t.Error("session opened for an invalid invocation")
	}
}

func TestLoginRememberedAcrossInvocations(t *testing.T) {
	e := newEnv()
	e.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
		return []model.CartLineItem{{ProductRef: "P1", Size: "M", Quantity: 2}}, nil
	}

	if code, _, stderr := e.exec(t, "login", "--token", "tok", "--remember"); code != ExitSuccess {
		t.Fatalf("login exit = %d, stderr = %s", code, stderr)
	}

	code, stdout, _ := e.exec(t, "--format", "json", "status")
	if code != ExitSuccess {
		t.Fatalf("status exit = %d", code)
	}
	var st statusView
	if err := json.Unmarshal([]byte(stdout), &st); err != nil {
		t.Fatalf("status output %q: %v", stdout, err)
	}
	if !st.LoggedIn || st.CartCount != 2 {
		t.Errorf("status = %+v, want logged in with 2 cached items", st)
	}
}

func TestLoginWithoutRememberIsForgotten(t *testing.T) {
	e := newEnv()
	e.exec(t, "login", "--token", "tok")

	_, stdout, _ := e.exec(t, "--format", "json", "status")
	if strings.Contains(stdout, `"logged_in": true`) {
		t.Errorf("status = %s, want logged out", stdout)
	}
}

func TestLoginRequiresToken(t *testing.T) {
	t.Setenv("SHOPSYNC_TOKEN", "")
	e := newEnv()
	code, _, stderr := e.exec(t, "login")
	if code != ExitCommandError || !strings.Contains(stderr, "SHOPSYNC_TOKEN") {
		t.Errorf("exit = %d stderr = %q", code, stderr)
	}
}

func TestCartAdd(t *testing.T) {
	e := newEnv()
	e.mock.AddToCartFunc = func(_ context.Context, _ string, product model.ProductID, qty int, size string) ([]model.CartLineItem, error) {
		if qty != 1 {
			t.Errorf("quantity = %d, want 1", qty)
		}
		return []model.CartLineItem{{ProductRef: product, Size: size, Quantity: 1}}, nil
	}
	e.exec(t, "login", "--token", "tok", "--remember")

	code, stdout, stderr := e.exec(t, "cart", "add", "P1", "M")
	if code != ExitSuccess {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stderr, "✓ Item Added To The Cart") {
		t.Errorf("stderr = %q, want success notification", stderr)
	}
	for _, want := range []string{"P1", "x1", "$20.50", "$30.50"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestCartAddWithoutSize(t *testing.T) {
	e := newEnv()
	e.exec(t, "login", "--token", "tok", "--remember")
	before := e.mock.TotalCalls()

	code, _, stderr := e.exec(t, "cart", "add", "P1", "")
	if code != ExitFailure {
		t.Errorf("exit = %d, want %d", code, ExitFailure)
	}
	if !strings.Contains(stderr, "✗ Please Select a Size") {
		t.Errorf("stderr = %q", stderr)
	}
	if strings.Contains(stderr, "error:") {
		t.Error("notified error printed twice")
	}
	if e.mock.TotalCalls() != before {
		t.Error("validation failure reached the remote")
	}
}

func TestCartQtyArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"not a number", []string{"cart", "qty", "P1", "M", "many"}},
		{"missing quantity", []string{"cart", "qty", "P1", "M"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := newEnv().exec(t, tt.args...)
			if code != ExitCommandError {
				t.Errorf("exit = %d, want %d", code, ExitCommandError)
			}
		})
	}
}

func TestWishlistAnonymous(t *testing.T) {
	e := newEnv()
	code, _, stderr := e.exec(t, "-v", "wishlist")
	if code != ExitFailure {
		t.Errorf("exit = %d, want %d", code, ExitFailure)
	}
	if !strings.Contains(stderr, "Please log in to view your wishlist") || !strings.Contains(stderr, "→ /login") {
		t.Errorf("stderr = %q", stderr)
	}
	if e.mock.TotalCalls() != 0 {
		t.Error("anonymous wishlist reached the remote")
	}
}

func TestWishlistToggleUsesCache(t *testing.T) {
	e := newEnv()
	e.mock.WishlistFunc = func(context.Context, string) ([]model.WishlistEntry, error) {
		return []model.WishlistEntry{{ProductRef: model.ProductRecord{ID: "P1"}}}, nil
	}
	e.mock.RemoveFromWishlistFunc = func(context.Context, string, model.ProductID) ([]model.WishlistEntry, error) {
		return []model.WishlistEntry{}, nil
	}
	e.exec(t, "login", "--token", "tok", "--remember")
	e.exec(t, "wishlist")

	code, stdout, stderr := e.exec(t, "--format", "json", "wishlist", "toggle", "P1")
	if code != ExitSuccess {
		t.Fatalf("exit = %d stderr = %s", code, stderr)
	}
	if e.mock.Calls(remote.OpWishlistRemove) != 1 || e.mock.Calls(remote.OpWishlistAdd) != 0 {
		t.Error("toggle of a cached entry did not remove it")
	}
	var list view.Wishlist
	if err := json.Unmarshal([]byte(stdout), &list); err != nil {
		t.Fatalf("output %q: %v", stdout, err)
	}
	if list.Count != 0 {
		t.Errorf("Count = %d, want 0", list.Count)
	}
}

func TestOrderPlace(t *testing.T) {
	e := newEnv()
	e.mock.PlaceOrderFunc = func(_ context.Context, _ string, addr model.ShippingAddress, _ string) (*model.Order, error) {
		if addr.Email != "jo@example.com" || addr.State != "IL" {
			t.Errorf("address = %+v", addr)
		}
		return &model.Order{ID: "O1", Amount: decimal.NewFromInt(30)}, nil
	}
	e.exec(t, "login", "--token", "tok", "--remember")

	args := []string{"order", "place",
		"--street", "1 Main St", "--city", "Springfield", "--state", "IL", "--zip", "62701",
		"--country", "US", "--mobile", "5551234567", "--email", "jo@example.com"}

	code, stdout, stderr := e.exec(t, args...)
	if code != ExitSuccess {
		t.Fatalf("exit = %d stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "order O1") || !strings.Contains(stdout, "$30.00") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "Order placed successfully!") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestOrderPlaceInvalidAddress(t *testing.T) {
	e := newEnv()
	e.exec(t, "login", "--token", "tok", "--remember")

	code, _, stderr := e.exec(t, "order", "place", "--street", "1 Main St")
	if code != ExitFailure || !strings.Contains(stderr, model.MsgAddressIncomplete) {
		t.Errorf("exit = %d stderr = %q", code, stderr)
	}
	if e.mock.Calls(remote.OpOrderPlace) != 0 {
		t.Error("invalid address reached the remote")
	}
}

func TestOrdersAnonymous(t *testing.T) {
	code, _, stderr := newEnv().exec(t, "orders")
	if code != ExitCommandError || !strings.Contains(stderr, "not logged in") {
		t.Errorf("exit = %d stderr = %q", code, stderr)
	}
}

func TestLogout(t *testing.T) {
	e := newEnv()
	e.mock.CartFunc = func(context.Context, string) ([]model.CartLineItem, error) {
		return []model.CartLineItem{{ProductRef: "P1", Size: "M", Quantity: 1}}, nil
	}
	e.exec(t, "login", "--token", "tok", "--remember")

	if code, _, _ := e.exec(t, "logout"); code != ExitSuccess {
		t.Fatalf("logout exit = %d", code)
	}
	_, stdout, _ := e.exec(t, "--format", "json", "status")
	if !strings.Contains(stdout, `"logged_in": false`) || !strings.Contains(stdout, `"cart_count": 0`) {
		t.Errorf("status after logout = %s", stdout)
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}

	p.Notify(notify.LevelSuccess, "done")
	p.Notify(notify.LevelError, "failed")
	p.Notify(notify.LevelInfo, "note")
	p.Navigate(notify.RouteLogin)

	want := "✓ done\n✗ failed\n- note\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

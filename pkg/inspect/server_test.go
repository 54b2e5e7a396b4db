package inspect

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pathstore-dev/pathstore/pkg/pathstore"
)

func newTestServer(t *testing.T) (*pathstore.Store, *httptest.Server) {
	t.Helper()
	store := pathstore.New(pathstore.Tree{
		"cart": pathstore.Tree{"price": 10},
		"user": pathstore.Tree{"name": "ada"},
	}, nil)
	ts := httptest.NewServer(New(store).Handler())
	t.Cleanup(ts.Close)
	return store, ts
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestGetWholeState(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := decodeBody(t, resp)
	cart := body["cart"].(map[string]any)
	if cart["price"] != float64(10) {
		t.Errorf("cart.price = %v, want 10", cart["price"])
	}
}

func TestGetField(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/state/cart/price")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := decodeBody(t, resp)
	if body["path"] != "cart.price" || body["value"] != float64(10) {
		t.Errorf("body = %v", body)
	}

	resp, err = http.Get(ts.URL + "/state/cart/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing field status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSetField(t *testing.T) {
	store, ts := newTestServer(t)
	counted := 0
	store.Subscribe("cart.price", pathstore.Observer(func() { counted++ }))

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/state/cart/price", strings.NewReader("25"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if v, _ := store.Get("cart.price"); v != float64(25) {
		t.Errorf("cart.price = %v, want 25", v)
	}
	if counted != 1 {
		t.Errorf("listener fired %d times, want 1", counted)
	}

	// Malformed body.
	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/state/cart/price", strings.NewReader("{"))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}
}

func TestResetField(t *testing.T) {
	store, ts := newTestServer(t)
	store.Updater("cart.price")(99)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/state/cart/price", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	body := decodeBody(t, resp)
	if body["value"] != float64(10) {
		t.Errorf("reset value = %v, want 10", body["value"])
	}
	if v, _ := store.Get("cart.price"); v != 10 {
		t.Errorf("cart.price = %v, want 10", v)
	}
}

func TestMergePatch(t *testing.T) {
	store, ts := newTestServer(t)

	userNotified := 0
	store.Subscribe("user", pathstore.Observer(func() { userNotified++ }))

	patch := `{"cart":{"qty":2}}`
	req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/state", bytes.NewReader([]byte(patch)))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Merge semantics: qty added, price kept.
	if v, _ := store.Get("cart.qty"); v != float64(2) {
		t.Errorf("cart.qty = %v, want 2", v)
	}
	if v, _ := store.Get("cart.price"); v != float64(10) {
		t.Errorf("cart.price = %v, want 10", v)
	}

	// Only patched top-level keys are notified.
	if userNotified != 0 {
		t.Errorf("user notified %d times, want 0", userNotified)
	}

	// Non-object patch is rejected.
	req, _ = http.NewRequest(http.MethodPatch, ts.URL+"/state", strings.NewReader(`42`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("scalar patch status = %d, want 400", resp.StatusCode)
	}
}

func dialWatch(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/watch" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial watch: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) watchEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev watchEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestWatchStreamsChanges(t *testing.T) {
	store, ts := newTestServer(t)
	conn := dialWatch(t, ts, "?path=cart.price")

	// Snapshot frame first; the subscription is live once it arrives.
	ev := readEvent(t, conn)
	if ev.Seq != 0 || ev.Value != float64(10) {
		t.Fatalf("snapshot = %+v, want seq 0 value 10", ev)
	}

	store.Updater("cart.price")(25)
	ev = readEvent(t, conn)
	if ev.Value != float64(25) {
		t.Errorf("event value = %v, want 25", ev.Value)
	}
	if ev.Path != ".cart.price" {
		t.Errorf("event path = %q, want .cart.price", ev.Path)
	}

	// Ancestor writes reach a descendant watch.
	store.Updater("cart")(pathstore.Tree{"price": 30})
	ev = readEvent(t, conn)
	if ev.Value != float64(30) {
		t.Errorf("event value = %v, want 30", ev.Value)
	}
}

func TestWatchUnsubscribesOnClose(t *testing.T) {
	store, ts := newTestServer(t)
	conn := dialWatch(t, ts, "?path=cart")
	readEvent(t, conn) // snapshot

	if store.Registry().Active() != 1 {
		t.Fatalf("expected 1 registration, got %d", store.Registry().Active())
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for store.Registry().Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("watch listener not removed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchExprFilter(t *testing.T) {
	store, ts := newTestServer(t)
	conn := dialWatch(t, ts, "?path=cart.price&expr="+"value+%3E+20")
	readEvent(t, conn) // snapshot is unfiltered

	store.Updater("cart.price")(15) // filtered out
	store.Updater("cart.price")(25) // passes

	ev := readEvent(t, conn)
	if ev.Value != float64(25) {
		t.Errorf("first filtered event = %v, want 25", ev.Value)
	}
}

func TestWatchBadExpr(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/watch?expr=%28"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure for bad expr")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 handshake response, got %+v", resp)
	}
}

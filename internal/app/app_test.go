package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

type staticCounter int

func (c staticCounter) Len() int { return int(c) }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(staticCounter(3))(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status        string `json:"status"`
		Subscriptions int    `json:"subscriptions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Subscriptions != 3 {
		t.Errorf("body = %+v", body)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "mensabot.lock")

	first, err := acquireLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	defer first.Unlock()

	if _, err := acquireLock(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second lock: got %v, want ErrAlreadyRunning", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	again, err := acquireLock(path)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again.Unlock()
}

func TestAcquireLockDisabled(t *testing.T) {
	lock, err := acquireLock("")
	if err != nil || lock != nil {
		t.Fatalf("empty path: lock=%v err=%v", lock, err)
	}
}

package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"mensabot/internal/repository"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "mensabot 1.2.3 (commit: abc") {
		t.Errorf("output = %q", out)
	}
}

func TestLocations(t *testing.T) {
	out, err := execute(t, "locations")
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if !strings.Contains(out, " 106  am Park") || !strings.Contains(out, " 153  Dittrichring") {
		t.Errorf("output = %q", out)
	}
}

func TestMenu(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("location") != "153" {
			http.Error(w, "unexpected location", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`<select id="edit-date"><option selected="selected">Tuesday, 02.01.2024</option></select>
<h3 class="title-prim">Vegetarian</h3>
<div class="accordion u-block"><section>
<header><div><div><h4>Curry</h4><p><span>Prices:</span> 2,00 €</p></div></div></header>
</section></div>`))
	}))
	defer srv.Close()

	t.Setenv("MENSA_BASE_URL", srv.URL)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "menu", "--date", "2024-01-02", "--location", "Dittrichring")
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	for _, part := range []string{`_Tuesday, 02\.01\.2024_`, "*Vegetarian:*", "Curry", "2,00 €"} {
		if !strings.Contains(out, part) {
			t.Errorf("output missing %q:\n%s", part, out)
		}
	}
}

func TestMenuInvalidDate(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	if _, err := execute(t, "menu", "--date", "02.01.2024"); err == nil {
		t.Fatal("expected error for malformed --date")
	}
}

func TestResetDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reset.db")
	t.Setenv("DATABASE_URL", path)
	t.Setenv("LOG_LEVEL", "error")

	db, err := repository.NewDB(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repository.NewSubscriptionRepository(db).Insert(context.Background(), 1, 6, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()

	if _, err := execute(t, "reset-db"); err == nil {
		t.Fatal("reset without --yes must fail")
	}
	if _, err := execute(t, "reset-db", "--yes"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	db, err = repository.NewDB(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()
	subs, err := repository.NewSubscriptionRepository(db).ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected empty table, got %d rows", len(subs))
	}
}

package root

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crucial707/hci-inventory/internal/handlers"
	"github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/models"
	"github.com/crucial707/hci-inventory/internal/repo"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// newTestAPI serves the inventory handlers over a JSON store in a temp dir.
// Requests must carry the bearer token "test-token".
func newTestAPI(t *testing.T, records ...models.Record) (*httptest.Server, *repo.JSONStore) {
	t.Helper()
	store := repo.NewJSONStore(filepath.Join(t.TempDir(), "inventory.json"))
	if len(records) > 0 {
		if err := store.Save(context.Background(), records); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	h := &handlers.InventoryHandler{Service: inventory.NewService(store)}

	r := chi.NewRouter()
	r.Route("/api/inventory", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if req.Header.Get("Authorization") != "Bearer test-token" {
					handlers.JSONError(w, "invalid token", "unauthorized", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, req)
			})
		})
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/export", h.Export)
		r.Get("/sample", h.Sample)
		r.Post("/import", h.Import)
		r.Post("/bulk-delete", h.BulkDelete)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}", h.Patch)
		r.Delete("/{id}", h.Delete)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

// run executes invctl with args against srv and returns stdout.
func run(t *testing.T, srv *httptest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("INVENTORY_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--api-url", srv.URL, "--token", "test-token"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var a1 = models.Record{ID: "A1", Owner: "jdoe", Department: "IT", Model: "Laptop-X", IP: "10.0.0.5", OS: "Linux", Status: "active"}

func TestList_TableOutput(t *testing.T) {
	srv, _ := newTestAPI(t, a1, models.Record{ID: "A2", Owner: "bob"})

	out, err := run(t, srv, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"A1", "jdoe", "A2", "bob", "OWNER"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestList_JSONOutput(t *testing.T) {
	srv, _ := newTestAPI(t, a1)

	out, err := run(t, srv, "", "list", "--json", "-q", "laptop")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var records []models.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0] != a1 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestAddPatchUpdate(t *testing.T) {
	srv, store := newTestAPI(t)

	if _, err := run(t, srv, "", "add", "--id", "A1", "--owner", "jdoe", "--status", "active"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := run(t, srv, "", "patch", "A1", "--os", "Linux"); err != nil {
		t.Fatalf("patch: %v", err)
	}
	records, _ := store.Load(context.Background())
	if want := (models.Record{ID: "A1", Owner: "jdoe", OS: "Linux", Status: "active"}); records[0] != want {
		t.Errorf("after patch: %+v, want %+v", records[0], want)
	}

	if _, err := run(t, srv, "", "update", "A1", "--owner", "bob"); err != nil {
		t.Fatalf("update: %v", err)
	}
	records, _ = store.Load(context.Background())
	if want := (models.Record{ID: "A1", Owner: "bob"}); records[0] != want {
		t.Errorf("after update: %+v, want %+v", records[0], want)
	}
}

func TestGetAndDelete_IDWithSlash(t *testing.T) {
	srv, store := newTestAPI(t, models.Record{ID: "HQ/12", Owner: "amy"})

	out, err := run(t, srv, "", "get", "HQ/12", "--json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var rec models.Record
	if err := json.Unmarshal([]byte(out), &rec); err != nil || rec.Owner != "amy" {
		t.Errorf("get = %q (%v)", out, err)
	}
	if _, err := run(t, srv, "", "delete", "HQ/12"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if records, _ := store.Load(context.Background()); len(records) != 0 {
		t.Errorf("stored %+v", records)
	}
}

func TestAdd_Duplicate(t *testing.T) {
	srv, _ := newTestAPI(t, a1)

	_, err := run(t, srv, "", "add", "--id", "A1")
	if err == nil || !strings.Contains(err.Error(), "409") {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestPatch_RequiresField(t *testing.T) {
	srv, _ := newTestAPI(t, a1)

	if _, err := run(t, srv, "", "patch", "A1"); err == nil {
		t.Fatal("patch without fields should fail")
	}
}

func TestDelete(t *testing.T) {
	srv, store := newTestAPI(t, a1, models.Record{ID: "A2"}, models.Record{ID: "A3"})

	if _, err := run(t, srv, "", "delete", "A1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, err := run(t, srv, "", "delete", "A2", "nope")
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if !strings.Contains(out, "Deleted 1") || !strings.Contains(out, "nope") {
		t.Errorf("unexpected output: %s", out)
	}
	records, _ := store.Load(context.Background())
	if len(records) != 1 || records[0].ID != "A3" {
		t.Errorf("stored %+v", records)
	}

	if _, err := run(t, srv, "", "delete", "ZZZ"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestExportThenImport(t *testing.T) {
	srv, store := newTestAPI(t, a1, models.Record{ID: "A2", Owner: "bob"})
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.csv")

	if _, err := run(t, srv, "", "export", "--fmt", "csv", "-o", path); err != nil {
		t.Fatalf("export: %v", err)
	}

	out, err := run(t, srv, "", "import", path, "--json")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var res inventory.ImportResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("import output: %v\n%s", err, out)
	}
	if res != (inventory.ImportResult{Updated: 2, Total: 2}) {
		t.Errorf("unexpected result: %+v", res)
	}
	if records, _ := store.Load(context.Background()); len(records) != 2 {
		t.Errorf("stored %+v", records)
	}
}

func TestImport_ReplaceAsksFirst(t *testing.T) {
	srv, store := newTestAPI(t, a1)
	path := filepath.Join(t.TempDir(), "new.csv")
	if err := os.WriteFile(path, []byte("id,owner\nZ1,zed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, srv, "no\n", "import", path, "--mode", "replace")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "cancelled") {
		t.Errorf("expected cancellation, got %s", out)
	}
	if records, _ := store.Load(context.Background()); len(records) != 1 || records[0].ID != "A1" {
		t.Errorf("store changed: %+v", records)
	}

	if _, err := run(t, srv, "", "import", path, "--mode", "replace", "--yes"); err != nil {
		t.Fatalf("import --yes: %v", err)
	}
	if records, _ := store.Load(context.Background()); len(records) != 1 || records[0].ID != "Z1" {
		t.Errorf("stored %+v", records)
	}
}

func TestSample_Stdout(t *testing.T) {
	srv, _ := newTestAPI(t)

	out, err := run(t, srv, "", "sample", "-o", "-")
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if !strings.Contains(out, "id,owner,department,model,ip,os,status") || !strings.Contains(out, "A-2001") {
		t.Errorf("unexpected sample: %q", out)
	}
}

func TestTokenSaveAndShow(t *testing.T) {
	t.Setenv("INVENTORY_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}

	exec := func(stdin string, args ...string) (string, error) {
		cmd := NewRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	if _, err := exec("", "token", "save", "not-a-jwt"); err == nil {
		t.Error("saving garbage should fail")
	}
	if _, err := exec(tok+"\n", "token", "save"); err != nil {
		t.Fatalf("token save: %v", err)
	}
	out, err := exec("", "token", "show")
	if err != nil || !strings.Contains(out, "subject: alice") {
		t.Errorf("token show = %q, %v", out, err)
	}
	if _, err := exec("", "token", "clear"); err != nil {
		t.Fatalf("token clear: %v", err)
	}
	if _, err := exec("", "token", "show"); err == nil {
		t.Error("show after clear should fail")
	}
}

func TestMissingToken(t *testing.T) {
	t.Setenv("INVENTORY_TOKEN", "")
	t.Setenv("INVENTORY_TOKEN_FILE", filepath.Join(t.TempDir(), "absent"))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--api-url", "http://127.0.0.1:1", "list"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "no API token") {
		t.Errorf("expected missing token error, got %v", err)
	}
}

package inventory

import (
	"reflect"
	"strings"
	"testing"

	"github.com/crucial707/hci-inventory/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawRecord
		want models.Record
	}{
		{
			name: "legacy aliases resolve",
			raw:  models.RawRecord{"user": "bob", "location": "HR", "name": "PC-1"},
			want: models.Record{Owner: "bob", Department: "HR", Model: "PC-1"},
		},
		{
			name: "canonical wins over alias",
			raw:  models.RawRecord{"owner": "alice", "user": "bob"},
			want: models.Record{Owner: "alice"},
		},
		{
			name: "empty canonical falls through to alias",
			raw:  models.RawRecord{"owner": "  ", "user": "bob", "dept": "Ops"},
			want: models.Record{Owner: "bob", Department: "Ops"},
		},
		{
			name: "location preferred over dept",
			raw:  models.RawRecord{"dept": "Ops", "location": "HR"},
			want: models.Record{Department: "HR"},
		},
		{
			name: "ip and os aliases",
			raw:  models.RawRecord{"address": "10.0.0.1", "ip_address": "10.0.0.2", "operating_system": "Linux"},
			want: models.Record{IP: "10.0.0.1", OS: "Linux"},
		},
		{
			name: "keys are case and space insensitive",
			raw:  models.RawRecord{" ID ": "A1", "Owner": "jdoe", "STATUS": " active "},
			want: models.Record{ID: "A1", Owner: "jdoe", Status: "active"},
		},
		{
			name: "unknown keys ignored",
			raw:  models.RawRecord{"updated_at": "2024-01-01", "color": "red"},
			want: models.Record{},
		},
		{
			name: "nil input",
			raw:  nil,
			want: models.Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalize_Truncates(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := Normalize(models.RawRecord{"owner": long, "os": long, "status": long, "id": long})

	if n := len(got.Owner); n != 120 {
		t.Errorf("owner length = %d, want 120", n)
	}
	if n := len(got.OS); n != 80 {
		t.Errorf("os length = %d, want 80", n)
	}
	if n := len(got.Status); n != 40 {
		t.Errorf("status length = %d, want 40", n)
	}
	if got.ID != long {
		t.Errorf("id should not be truncated")
	}
}

func TestNormalize_TruncatesRunes(t *testing.T) {
	got := Normalize(models.RawRecord{"status": strings.Repeat("ş", 50)})
	if got.Status != strings.Repeat("ş", 40) {
		t.Errorf("status = %q", got.Status)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []models.RawRecord{
		{"user": "bob", "location": "HR", "name": "PC-1"},
		{"id": " A1 ", "owner": "jdoe", "department": "IT", "model": "Laptop-X", "ip": "10.0.0.5", "os": "Linux", "status": "active"},
		// truncation lands on a space: the trailing space must not survive.
		{"status": strings.Repeat("a", 39) + " " + strings.Repeat("b", 10)},
		{"owner": "\tx\n"},
		{"owner": "line1\r\nline2\rline3"},
		{},
	}
	for _, raw := range inputs {
		once := Normalize(raw)
		twice := Normalize(once.Raw())
		if once != twice {
			t.Errorf("not idempotent for %v: %+v != %+v", raw, once, twice)
		}
	}
}

func TestNormalize_FoldsNewlines(t *testing.T) {
	got := Normalize(models.RawRecord{"owner": "line1\r\nline2\rline3\n"})
	if got.Owner != "line1\nline2\nline3" {
		t.Errorf("owner = %q", got.Owner)
	}
}

func TestNormalize_CaseVariantsAreDeterministic(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawRecord
		want string
	}{
		{"lower-case key wins", models.RawRecord{"Owner": "a", "owner": "b"}, "b"},
		{"empty lower-case key falls through", models.RawRecord{"Owner": "a", "owner": " "}, "a"},
		{"variants in byte order", models.RawRecord{"OWNER": "a", "Owner": "b"}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				if got := Normalize(tt.raw).Owner; got != tt.want {
					t.Fatalf("run %d: owner = %q, want %q", i, got, tt.want)
				}
			}
		})
	}
}

func TestSupplied(t *testing.T) {
	got := Supplied(models.RawRecord{"status": "", "User": "bob", "color": "red", "dept": "x", "location": "y"})
	want := []string{"owner", "department", "status"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Supplied() = %v, want %v", got, want)
	}
}

func TestCanonicalName(t *testing.T) {
	if name, ok := CanonicalName(" IP_Address "); !ok || name != "ip" {
		t.Errorf("CanonicalName(ip_address) = %q, %v", name, ok)
	}
	if _, ok := CanonicalName("serial"); ok {
		t.Error("serial should not be recognized")
	}
}

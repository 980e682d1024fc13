package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/crucial707/hci-inventory/internal/models"
	"github.com/xuri/excelize/v2"
)

func fiveRecords() []models.Record {
	return []models.Record{
		laptop,
		{ID: "A2", Owner: "bob", Department: "HR", Model: "PC-1", Status: "retired"},
		{ID: "A3", Owner: "O'Neil, Pat", Model: `Desk "Tower"`},
		{ID: "7", Owner: "Şule", Department: "Muhasebe", OS: "Windows 11"},
		{ID: "A5", IP: "10.0.0.9"},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, store := newTestService(fiveRecords()...)
	ctx := context.Background()

	exported, err := svc.Export(ctx, FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(exported, utf8BOM) {
		t.Error("CSV export should start with a UTF-8 BOM")
	}

	res, err := svc.Import(ctx, "inventory.csv", exported, ModeMerge)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := ImportResult{Added: 0, Updated: 5, Total: 5}
	if res != want {
		t.Errorf("Import = %+v, want %+v", res, want)
	}
	if len(store.records) != 5 {
		t.Errorf("store size = %d, want 5", len(store.records))
	}

	again, err := svc.Export(ctx, FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.Equal(exported, again) {
		t.Errorf("re-export differs:\n%q\n%q", exported, again)
	}
}

func TestEncodeCSV(t *testing.T) {
	out, err := Encode([]models.Record{laptop}, FormatCSV)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "\ufeffid,owner,department,model,ip,os,status\nA1,jdoe,IT,Laptop-X,10.0.0.5,Linux,active\n"
	if string(out) != want {
		t.Errorf("Encode = %q, want %q", out, want)
	}
}

func TestEncodeJSON_EmptyIsArray(t *testing.T) {
	out, err := Encode(nil, FormatJSON)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.TrimSpace(string(out)) != "[]" {
		t.Errorf("Encode(nil) = %q", out)
	}
}

func TestImport_FormatErrorsLeaveStoreUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{"empty file", "inv.csv", ""},
		{"bom only", "inv.csv", "\ufeff\n"},
		{"header only", "inv.csv", "id,owner,status\n"},
		{"blank rows only", "inv.csv", "id,owner\n,\n , \n"},
		{"unknown header", "inv.csv", "serial,color\n1,red\n"},
		{"unsupported extension", "inv.xls", "id,owner\nA9,x\n"},
		{"binary posing as csv", "inv.csv", "\x00\x01\x02\x03"},
		{"corrupt xlsx", "inv.xlsx", "PK\x03\x04not really a zip"},
		{"json object not array", "inv.json", `{"id":"A9"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(laptop)

			_, err := svc.Import(context.Background(), tt.filename, []byte(tt.data), ModeReplace)
			var fe *ImportFormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected ImportFormatError, got %v", err)
			}
			if !errors.Is(err, ErrImportFormat) {
				t.Error("errors.Is(ErrImportFormat) should hold")
			}
			if store.saves != 0 || len(store.records) != 1 || store.records[0] != laptop {
				t.Errorf("store changed: %+v", store.records)
			}
		})
	}
}

func TestImport_ReservedIDLeavesStoreUnchanged(t *testing.T) {
	svc, store := newTestService(laptop)

	_, err := svc.Import(context.Background(), "inventory.csv", []byte("id,owner\nA9,amy\nsample,bob\n"), ModeMerge)
	if !errors.Is(err, ErrImportFormat) || !strings.Contains(err.Error(), `"sample"`) {
		t.Fatalf("expected ImportFormatError naming the id, got %v", err)
	}
	if store.saves != 0 || len(store.records) != 1 {
		t.Errorf("store changed: %+v", store.records)
	}
}

func TestImport_AliasHeaders(t *testing.T) {
	svc, store := newTestService()

	data := "User,Location,Name,IP_Address,Operating_System,Serial\nbob,HR,PC-1,10.0.0.7,Linux,XYZ\n"
	res, err := svc.Import(context.Background(), "legacy.csv", []byte(data), ModeMerge)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Added != 1 || res.Total != 1 {
		t.Errorf("Import = %+v", res)
	}
	want := models.Record{ID: "1", Owner: "bob", Department: "HR", Model: "PC-1", IP: "10.0.0.7", OS: "Linux"}
	if store.records[0] != want {
		t.Errorf("stored %+v, want %+v", store.records[0], want)
	}
}

func TestImport_MergeAddsAndUpdates(t *testing.T) {
	svc, store := newTestService(laptop, models.Record{ID: "A2", Owner: "bob"})

	data := "id,owner,status\nA2,bobby,active\nA9,new,\n,noid,\n,,\n"
	res, err := svc.Import(context.Background(), "inv.csv", []byte(data), ModeMerge)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := ImportResult{Added: 2, Updated: 1, Skipped: 1, Total: 4}
	if res != want {
		t.Errorf("Import = %+v, want %+v", res, want)
	}

	ids := []string{}
	for _, r := range store.records {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "A1,A2,A9,1" {
		t.Errorf("ids = %v", ids)
	}
	// Import replaces the whole row, the same as Update.
	if store.records[1] != (models.Record{ID: "A2", Owner: "bobby", Status: "active"}) {
		t.Errorf("A2 = %+v", store.records[1])
	}
}

func TestImport_Replace(t *testing.T) {
	svc, store := newTestService(fiveRecords()...)

	res, err := svc.Import(context.Background(), "inv.csv", []byte("id,owner\nZ1,zed\n"), ModeReplace)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res != (ImportResult{Added: 1, Total: 1}) {
		t.Errorf("Import = %+v", res)
	}
	if len(store.records) != 1 || store.records[0].ID != "Z1" {
		t.Errorf("stored %+v", store.records)
	}
}

func TestImport_Latin1CSV(t *testing.T) {
	svc, store := newTestService()

	// "José" and "Müller" encoded as ISO-8859-1.
	data := []byte("id,owner,department\nA1,Jos\xe9,M\xfcller\n")
	if _, err := svc.Import(context.Background(), "latin1.csv", data, ModeMerge); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := store.records[0]; got.Owner != "José" || got.Department != "Müller" {
		t.Errorf("stored %+v", got)
	}
}

func TestImport_RaggedRows(t *testing.T) {
	svc, store := newTestService()

	data := "id,owner,status\nA1,jdoe\nA2,bob,active,extra\n"
	res, err := svc.Import(context.Background(), "inv.csv", []byte(data), ModeMerge)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Added != 2 {
		t.Errorf("Import = %+v", res)
	}
	if store.records[0].Status != "" || store.records[1].Status != "active" {
		t.Errorf("stored %+v", store.records)
	}
}

func TestImport_XLSXRoundTrip(t *testing.T) {
	svc, store := newTestService(fiveRecords()...)
	ctx := context.Background()

	book, err := svc.Export(ctx, FormatXLSX)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(book))
	if err != nil {
		t.Fatalf("exported workbook unreadable: %v", err)
	}
	header, err := f.GetRows("Inventory")
	f.Close()
	if err != nil || len(header) != 6 || strings.Join(header[0], ",") != strings.Join(models.Columns, ",") {
		t.Fatalf("unexpected sheet contents: %v (%v)", header, err)
	}

	res, err := svc.Import(ctx, "inventory.xlsx", book, ModeMerge)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res != (ImportResult{Updated: 5, Total: 5}) {
		t.Errorf("Import = %+v", res)
	}
	for i, want := range fiveRecords() {
		if store.records[i] != want {
			t.Errorf("record %d = %+v, want %+v", i, store.records[i], want)
		}
	}
}

func TestImport_JSON(t *testing.T) {
	svc, store := newTestService()

	data := `[{"id": 12, "user": "bob", "status": null}, {"owner": "amy", "extra": {"a": 1}}, {}]`
	res, err := svc.Import(context.Background(), "inventory.json", []byte(data), ModeMerge)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res != (ImportResult{Added: 2, Skipped: 1, Total: 2}) {
		t.Errorf("Import = %+v", res)
	}
	if store.records[0] != (models.Record{ID: "12", Owner: "bob"}) || store.records[1] != (models.Record{ID: "13", Owner: "amy"}) {
		t.Errorf("stored %+v", store.records)
	}
}

func TestImport_SniffsContentWithoutExtension(t *testing.T) {
	svc, store := newTestService()

	if _, err := svc.Import(context.Background(), "upload", []byte("id,owner\nA1,jdoe\n"), ModeMerge); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(store.records) != 1 || store.records[0].Owner != "jdoe" {
		t.Errorf("stored %+v", store.records)
	}
}

func TestImport_StorageError(t *testing.T) {
	svc, store := newTestService()
	store.saveErr = errors.New("disk full")

	_, err := svc.Import(context.Background(), "inv.csv", []byte("id\nA1\n"), ModeMerge)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestSample(t *testing.T) {
	out, err := Sample(FormatJSON)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	var records []models.Record
	if err := json.Unmarshal(out, &records); err != nil {
		t.Fatalf("Sample JSON: %v", err)
	}
	if len(records) != 1 || records[0].ID != "A-2001" {
		t.Errorf("Sample = %+v", records)
	}

	// A sample file is itself importable.
	csvSample, err := Sample(FormatCSV)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	svc, _ := newTestService()
	if res, err := svc.Import(context.Background(), "sample.csv", csvSample, ModeMerge); err != nil || res.Added != 1 {
		t.Errorf("Import(sample) = %+v, %v", res, err)
	}
}

func TestParseFormatAndMode(t *testing.T) {
	if f, err := ParseFormat(" XLSX "); err != nil || f != FormatXLSX {
		t.Errorf("ParseFormat(XLSX) = %q, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatCSV {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if _, err := ParseFormat("xls"); err == nil {
		t.Error("ParseFormat(xls) should fail")
	}
	if m, err := ParseImportMode(""); err != nil || m != ModeMerge {
		t.Errorf("ParseImportMode(\"\") = %q, %v", m, err)
	}
	if m, err := ParseImportMode("Replace"); err != nil || m != ModeReplace {
		t.Errorf("ParseImportMode(Replace) = %q, %v", m, err)
	}
	if _, err := ParseImportMode("append"); err == nil {
		t.Error("ParseImportMode(append) should fail")
	}
}

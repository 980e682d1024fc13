package inventory

// transfer.go moves the inventory in and out of tabular files.
//
// Import accepts CSV, XLSX and JSON uploads. The first CSV/XLSX row is the
// header; columns are matched to canonical fields through the alias table and
// unknown columns are ignored. Rows that normalize to an all-empty record are
// skipped. Export writes CSV (with a UTF-8 BOM so Excel opens it as UTF-8),
// a JSON array, or an XLSX workbook.

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/crucial707/hci-inventory/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Format selects a file encoding for import detection and export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return xlsxMIME
	default:
		return "text/csv; charset=utf-8"
	}
}

// ParseFormat accepts csv, json or xlsx (case-insensitive); empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// ImportMode decides what happens to the existing collection on import.
type ImportMode string

const (
	// ModeMerge upserts rows by id and keeps everything else.
	ModeMerge ImportMode = "merge"
	// ModeReplace discards the collection and rebuilds it from the file.
	// Callers must have the user confirm this before calling Import.
	ModeReplace ImportMode = "replace"
)

// ParseImportMode accepts merge or replace (case-insensitive); empty means merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

// ImportResult counts what an import did. Total is the final store size.
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ========================
// IMPORT
// ========================

// Import parses an uploaded file and applies it to the store. The store is
// left untouched when parsing fails or the file has no usable rows.
func (s *Service) Import(ctx context.Context, filename string, data []byte, mode ImportMode) (ImportResult, error) {
	var res ImportResult

	raws, err := ParseUpload(filename, data)
	if err != nil {
		return res, err
	}

	rows := make([]models.Record, 0, len(raws))
	for _, raw := range raws {
		rec := Normalize(raw)
		if rec.IsEmpty() {
			res.Skipped++
			continue
		}
		if IsReservedID(rec.ID) {
			return ImportResult{}, formatError(fmt.Sprintf("id %q is reserved", rec.ID), nil)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return ImportResult{}, formatError("file has no data rows", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.Record
	if mode != ModeReplace {
		if records, err = s.store.Load(ctx); err != nil {
			return ImportResult{}, err
		}
	}

	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	for _, rec := range rows {
		if i, ok := index[rec.ID]; ok && rec.ID != "" {
			records[i] = rec
			res.Updated++
			continue
		}
		if rec.ID == "" {
			rec.ID = NextID(records)
		}
		records = append(records, rec)
		index[rec.ID] = len(records) - 1
		res.Added++
	}

	if err := s.store.Save(ctx, records); err != nil {
		return ImportResult{}, err
	}
	res.Total = len(records)
	return res, nil
}

// ParseUpload detects the file format from its name and content and returns
// one raw record per data row.
func ParseUpload(filename string, data []byte) ([]models.RawRecord, error) {
	format, err := detectFormat(filename, data)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatXLSX:
		return parseXLSX(data)
	case FormatJSON:
		return parseJSON(data)
	default:
		return parseCSV(data)
	}
}

func detectFormat(filename string, data []byte) (Format, error) {
	if len(bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))) == 0 {
		return "", formatError("file is empty", nil)
	}
	mt := mimetype.Detect(data)

	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	switch ext {
	case ".csv", ".txt":
		if !hasAncestor(mt, "text/plain") {
			return "", formatError("file is not a text CSV (detected "+mt.String()+")", nil)
		}
		return FormatCSV, nil
	case ".xlsx":
		if !hasAncestor(mt, "application/zip") {
			return "", formatError("file is not an XLSX workbook (detected "+mt.String()+")", nil)
		}
		return FormatXLSX, nil
	case ".json":
		if !mt.Is("application/json") && !hasAncestor(mt, "text/plain") {
			return "", formatError("file is not JSON text (detected "+mt.String()+")", nil)
		}
		return FormatJSON, nil
	case "":
		switch {
		case hasAncestor(mt, "application/zip"):
			return FormatXLSX, nil
		case mt.Is("application/json"):
			return FormatJSON, nil
		case hasAncestor(mt, "text/plain"):
			return FormatCSV, nil
		}
		return "", formatError("unrecognized file content ("+mt.String()+"); upload CSV or XLSX", nil)
	}
	return "", formatError(fmt.Sprintf("unsupported file type %q; upload CSV or XLSX", ext), nil)
}

func hasAncestor(mt *mimetype.MIME, mime string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mime) {
			return true
		}
	}
	return false
}

func parseCSV(data []byte) ([]models.RawRecord, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, formatError("file encoding is not UTF-8 or Latin-1", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, formatError("malformed CSV", err)
	}
	return tableToRaw(rows)
}

func parseXLSX(data []byte) ([]models.RawRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, formatError("unreadable XLSX workbook", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, formatError("workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, formatError("unreadable sheet "+strconv.Quote(sheet), err)
	}
	return tableToRaw(rows)
}

func parseJSON(data []byte) ([]models.RawRecord, error) {
	var items []map[string]any
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &items); err != nil {
		return nil, formatError("JSON import must be an array of objects", err)
	}
	out := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		out = append(out, RawFromJSON(item))
	}
	return out, nil
}

// tableToRaw turns a header row plus data rows into raw records. The header
// must name at least one inventory column.
func tableToRaw(rows [][]string) ([]models.RawRecord, error) {
	if len(rows) == 0 {
		return nil, formatError("file has no header row", nil)
	}

	header := make([]string, len(rows[0]))
	known := false
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		if _, ok := CanonicalName(header[i]); ok {
			known = true
		}
	}
	if !known {
		return nil, formatError("header row has no inventory columns; expected "+strings.Join(models.Columns, ", "), nil)
	}

	out := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		raw := make(models.RawRecord, len(header))
		for i, key := range header {
			if key == "" || i >= len(row) {
				continue
			}
			if strings.TrimSpace(raw[key]) != "" {
				continue
			}
			raw[key] = row[i]
		}
		out = append(out, raw)
	}
	return out, nil
}

// RawFromJSON converts a decoded JSON object into a raw record. Numbers and
// booleans are formatted as text; nulls become empty.
func RawFromJSON(obj map[string]any) models.RawRecord {
	raw := make(models.RawRecord, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			raw[k] = ""
		case string:
			raw[k] = val
		case float64:
			raw[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			raw[k] = strconv.FormatBool(val)
		case json.Number:
			raw[k] = val.String()
		default:
			b, err := json.Marshal(val)
			if err == nil {
				raw[k] = string(b)
			}
		}
	}
	return raw
}

// ========================
// EXPORT
// ========================

// Export encodes the whole collection in the given format.
func (s *Service) Export(ctx context.Context, format Format) ([]byte, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Encode(records, format)
}

// Sample returns a one-row template file in the given format.
func Sample(format Format) ([]byte, error) {
	return Encode([]models.Record{{
		ID:         "A-2001",
		Owner:      "Jane Doe",
		Department: "Engineering",
		Model:      "Dell Latitude 5520",
		IP:         "192.168.1.50",
		OS:         "Windows 11 Pro",
		Status:     "active",
	}}, format)
}

// Encode serializes records with canonical columns in canonical order.
func Encode(records []models.Record, format Format) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatXLSX:
		return encodeXLSX(records)
	case FormatCSV, "":
		return encodeCSV(records)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func encodeCSV(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(models.Columns); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write(r.Values()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const xlsxSheet = "Inventory"

func encodeXLSX(records []models.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &models.Columns); err != nil {
		return nil, err
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := r.Values()
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/logging"
	"github.com/crucial707/hci-inventory/internal/metrics"
	"github.com/crucial707/hci-inventory/internal/middleware"
	"github.com/crucial707/hci-inventory/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// DefaultMaxUploadBytes caps an import upload when MaxUploadBytes is unset.
const DefaultMaxUploadBytes = 10 << 20

type InventoryHandler struct {
	Service *inventory.Service
	// DefaultImportMode applies when an import request has no mode field.
	DefaultImportMode inventory.ImportMode
	MaxUploadBytes    int64
}

var validate = validator.New()

//
// ==========================
// List / Get
// ==========================
//

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := inventory.Query{Q: r.URL.Query().Get("q")}

	// Parse limit
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			q.Limit = val
		}
	}

	// Parse offset
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil && val >= 0 {
			q.Offset = val
		}
	}

	records, err := h.Service.Find(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if q.Q == "" && q.Offset == 0 && q.Limit == 0 && len(records) < inventory.DefaultLimit {
		metrics.SetRecords(len(records))
	}

	writeJSON(w, http.StatusOK, records)
}

// recordID returns the {id} path segment. chi matches on RawPath when the
// request has one, leaving escapes such as %2F in the param.
func recordID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if u, err := url.PathUnescape(id); err == nil {
		return u
	}
	return id
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), recordID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

//
// ==========================
// Create / Update / Patch
// ==========================
//

func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	rec, err := h.Service.Create(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.changed(r, "create", "id", rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

// Update replaces the whole record; fields absent from the body are cleared.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	rec, err := h.Service.Update(r.Context(), recordID(r), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.changed(r, "update", "id", rec.ID)
	writeJSON(w, http.StatusOK, rec)
}

func (h *InventoryHandler) Patch(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	rec, err := h.Service.Patch(r.Context(), recordID(r), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.changed(r, "patch", "id", rec.ID, "fields", inventory.Supplied(raw))
	writeJSON(w, http.StatusOK, rec)
}

//
// ==========================
// Delete
// ==========================
//

func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := recordID(r)
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.changed(r, "delete", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var input struct {
		IDs []string `json:"ids" validate:"required,min=1,max=1000,dive,required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", CodeBadRequest, http.StatusBadRequest)
		return
	}

	// ===== Validate input =====
	if err := validate.Struct(input); err != nil {
		JSONValidationError(w, "invalid bulk delete request", validationFields(err), http.StatusBadRequest)
		return
	}

	res, err := h.Service.DeleteMany(r.Context(), input.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if len(res.Deleted) > 0 {
		h.changed(r, "bulk_delete", "deleted", len(res.Deleted), "missing", len(res.Missing))
	}
	writeJSON(w, http.StatusOK, res)
}

//
// ==========================
// Import
// ==========================
//

type importParams struct {
	Mode    string `validate:"omitempty,oneof=merge replace"`
	Confirm string `validate:"omitempty,oneof=true false 1 0 yes no"`
}

// Import reads a multipart upload (field "file") and applies it in the
// requested mode. Replace mode is refused unless confirm is true.
func (h *InventoryHandler) Import(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			JSONError(w, "upload is too large", CodeBadRequest, http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, "expected a multipart form upload", CodeBadRequest, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	params := importParams{
		Mode:    strings.ToLower(strings.TrimSpace(r.FormValue("mode"))),
		Confirm: strings.ToLower(strings.TrimSpace(r.FormValue("confirm"))),
	}
	if err := validate.Struct(params); err != nil {
		JSONValidationError(w, "invalid import request", validationFields(err), http.StatusBadRequest)
		return
	}

	mode := h.DefaultImportMode
	if params.Mode != "" {
		mode = inventory.ImportMode(params.Mode)
	}
	if mode == "" {
		mode = inventory.ModeMerge
	}
	if mode == inventory.ModeReplace && !truthy(params.Confirm) {
		JSONError(w, "replace import discards the current inventory; resend with confirm=true", CodeConfirm, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		JSONError(w, `missing "file" upload`, CodeBadRequest, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		JSONError(w, "could not read upload", CodeBadRequest, http.StatusBadRequest)
		return
	}
	if int64(len(data)) > maxBytes {
		JSONError(w, "upload is too large", CodeBadRequest, http.StatusRequestEntityTooLarge)
		return
	}

	res, err := h.Service.Import(r.Context(), header.Filename, data, mode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	metrics.AddImportRows(res.Added, res.Updated, res.Skipped)
	metrics.SetRecords(res.Total)
	h.changed(r, "import",
		"file", header.Filename,
		"mode", string(mode),
		"added", res.Added,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"total", res.Total)
	writeJSON(w, http.StatusOK, res)
}

//
// ==========================
// Export / Sample
// ==========================
//

type formatParams struct {
	Format string `validate:"omitempty,oneof=csv json xlsx"`
}

func (h *InventoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, ok := parseFormatParam(w, r)
	if !ok {
		return
	}

	data, err := h.Service.Export(r.Context(), format)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	name := fmt.Sprintf("inventory_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	writeAttachment(w, format, name, data)
}

func (h *InventoryHandler) Sample(w http.ResponseWriter, r *http.Request) {
	format, ok := parseFormatParam(w, r)
	if !ok {
		return
	}

	data, err := inventory.Sample(format)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, format, "inventory_sample."+string(format), data)
}

//
// ==========================
// Helpers
// ==========================
//

// decodeRecord reads a JSON object body into a raw record. Non-string values
// are stringified the same way the JSON store does.
func decodeRecord(w http.ResponseWriter, r *http.Request) (models.RawRecord, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		JSONError(w, "request body must be a JSON object", CodeBadRequest, http.StatusBadRequest)
		return nil, false
	}
	return inventory.RawFromJSON(body), true
}

func parseFormatParam(w http.ResponseWriter, r *http.Request) (inventory.Format, bool) {
	params := formatParams{Format: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("fmt")))}
	if err := validate.Struct(params); err != nil {
		JSONValidationError(w, "unsupported export format", map[string]string{"fmt": "must be one of csv, json, xlsx"}, http.StatusBadRequest)
		return "", false
	}
	format, err := inventory.ParseFormat(params.Format)
	if err != nil {
		JSONError(w, err.Error(), CodeBadRequest, http.StatusBadRequest)
		return "", false
	}
	return format, true
}

func writeAttachment(w http.ResponseWriter, format inventory.Format, filename string, data []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// changed logs a successful mutation with the authenticated subject.
func (h *InventoryHandler) changed(r *http.Request, op string, attrs ...any) {
	metrics.IncMutation(op)
	logging.FromContext(r.Context()).
		With("op", op, "subject", middleware.Subject(r.Context())).
		Info("inventory change", attrs...)
}

func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return fields
}

func truthy(s string) bool {
	switch s {
	case "true", "1", "yes":
		return true
	}
	return false
}

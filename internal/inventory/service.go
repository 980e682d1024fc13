// Package inventory holds the asset inventory domain: the field normalizer,
// the CRUD service and the import/export adapter. Persistence is reached only
// through the Store interface.
package inventory

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/crucial707/hci-inventory/internal/models"
)

// Store loads and saves the whole inventory collection. Implementations
// return *StorageError on failure.
type Store interface {
	Load(ctx context.Context) ([]models.Record, error)
	Save(ctx context.Context, records []models.Record) error
}

const (
	// DefaultLimit is used by Find when no limit is given.
	DefaultLimit = 1000
	// MaxLimit caps an explicit limit.
	MaxLimit = 500
)

// Query filters and pages Find results. Q is a case-insensitive substring
// matched against every field.
type Query struct {
	Q      string
	Offset int
	Limit  int
}

// BulkDeleteResult reports which ids were removed and which did not exist.
type BulkDeleteResult struct {
	Deleted []string `json:"deleted"`
	Missing []string `json:"missing"`
}

// Service implements inventory CRUD over a Store. Every mutation is a full
// load-mutate-save cycle; mu serializes those cycles within the process.
type Service struct {
	store Store
	mu    sync.Mutex
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ========================
// READ
// ========================

// List returns every record in store order.
func (s *Service) List(ctx context.Context) ([]models.Record, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// Find filters List by q.Q and applies offset/limit paging.
func (s *Service) Find(ctx context.Context, q Query) ([]models.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	if needle := strings.ToLower(strings.TrimSpace(q.Q)); needle != "" {
		hits := records[:0:0]
		for _, r := range records {
			if matches(r, needle) {
				hits = append(hits, r)
			}
		}
		records = hits
	}

	offset := max(q.Offset, 0)
	limit := DefaultLimit
	if q.Limit > 0 {
		limit = min(q.Limit, MaxLimit)
	}
	if offset >= len(records) {
		return []models.Record{}, nil
	}
	end := min(offset+limit, len(records))
	return records[offset:end], nil
}

// Get returns the record with the given id.
func (s *Service) Get(ctx context.Context, id string) (models.Record, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return models.Record{}, err
	}
	if i := indexOf(records, id); i >= 0 {
		return records[i], nil
	}
	return models.Record{}, &NotFoundError{ID: id}
}

// ========================
// CREATE
// ========================

// Create normalizes raw, assigns an id when it has none and appends it.
func (s *Service) Create(ctx context.Context, raw models.RawRecord) (models.Record, error) {
	rec := Normalize(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return models.Record{}, err
	}

	if rec.ID == "" {
		rec.ID = NextID(records)
	} else if IsReservedID(rec.ID) {
		return models.Record{}, &InvalidIDError{ID: rec.ID, Reason: "is reserved"}
	} else if indexOf(records, rec.ID) >= 0 {
		return models.Record{}, &DuplicateIDError{ID: rec.ID}
	}

	records = append(records, rec)
	if err := s.store.Save(ctx, records); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// ========================
// UPDATE
// ========================

// Update replaces the whole record stored under id. Fields missing from raw
// become empty; an id inside raw is ignored.
func (s *Service) Update(ctx context.Context, id string, raw models.RawRecord) (models.Record, error) {
	return s.mutate(ctx, id, func(models.Record) models.Record {
		return Normalize(raw)
	})
}

// Patch overwrites only the fields raw mentions. A field sent with an empty
// value is cleared; an id inside raw is ignored.
func (s *Service) Patch(ctx context.Context, id string, raw models.RawRecord) (models.Record, error) {
	return s.mutate(ctx, id, func(cur models.Record) models.Record {
		next := Normalize(raw)
		vals := next.Raw()
		for _, name := range Supplied(raw) {
			setField(&cur, name, vals[name])
		}
		return cur
	})
}

func (s *Service) mutate(ctx context.Context, id string, apply func(models.Record) models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return models.Record{}, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return models.Record{}, &NotFoundError{ID: id}
	}

	rec := apply(records[i])
	rec.ID = records[i].ID
	records[i] = rec

	if err := s.store.Save(ctx, records); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// ========================
// DELETE
// ========================

// Delete removes the record with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}
	records = append(records[:i], records[i+1:]...)
	return s.store.Save(ctx, records)
}

// DeleteMany removes every listed id that exists. Unknown ids are reported,
// not treated as errors. The store is only written when something changed.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (BulkDeleteResult, error) {
	res := BulkDeleteResult{Deleted: []string{}, Missing: []string{}}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return res, err
	}

	drop := make(map[string]bool, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if indexOf(records, id) < 0 {
			res.Missing = append(res.Missing, id)
			continue
		}
		drop[id] = true
		res.Deleted = append(res.Deleted, id)
	}
	if len(res.Deleted) == 0 {
		return res, nil
	}

	kept := records[:0]
	for _, r := range records {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	if err := s.store.Save(ctx, kept); err != nil {
		return BulkDeleteResult{}, err
	}
	return res, nil
}

// ========================
// HELPERS
// ========================

// NextID returns one more than the largest all-digit id in records, or "1".
// An id of math.MaxInt64 is not counted. The result never collides with an
// existing id.
func NextID(records []models.Record) string {
	next := int64(1)
	taken := make(map[string]bool, len(records))
	for _, r := range records {
		taken[r.ID] = true
		if n, err := strconv.ParseInt(r.ID, 10, 64); err == nil && n >= next && n < math.MaxInt64 {
			next = n + 1
		}
	}
	for taken[strconv.FormatInt(next, 10)] {
		next++
	}
	return strconv.FormatInt(next, 10)
}

// reservedIDs are path segments the API serves itself under /api/inventory/.
var reservedIDs = map[string]bool{"export": true, "sample": true}

// IsReservedID reports whether id would be shadowed by a fixed API route.
func IsReservedID(id string) bool {
	return reservedIDs[id]
}

func indexOf(records []models.Record, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func matches(r models.Record, needle string) bool {
	for _, v := range r.Values() {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

package inventory

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/crucial707/hci-inventory/internal/models"
)

// fieldRule describes one canonical field: the keys accepted for it, in
// priority order, and the maximum stored length in runes (0 = unlimited).
type fieldRule struct {
	name    string
	aliases []string
	maxLen  int
}

// fieldRules is the alias table. The canonical name always comes first.
var fieldRules = []fieldRule{
	{name: "id", aliases: []string{"id"}},
	{name: "owner", aliases: []string{"owner", "user"}, maxLen: 120},
	{name: "department", aliases: []string{"department", "location", "dept"}, maxLen: 120},
	{name: "model", aliases: []string{"model", "name"}, maxLen: 120},
	{name: "ip", aliases: []string{"ip", "address", "ip_address"}, maxLen: 120},
	{name: "os", aliases: []string{"os", "operating_system"}, maxLen: 80},
	{name: "status", aliases: []string{"status"}, maxLen: 40},
}

// aliasIndex maps every accepted key to its canonical field name.
var aliasIndex = func() map[string]string {
	idx := make(map[string]string)
	for _, rule := range fieldRules {
		for _, a := range rule.aliases {
			idx[a] = rule.name
		}
	}
	return idx
}()

// Normalize maps a raw record onto the canonical shape. For each field the
// first non-empty value among its aliases wins; missing fields are empty.
// It never fails and Normalize(Normalize(r).Raw()) == Normalize(r).
func Normalize(raw models.RawRecord) models.Record {
	keyed := foldKeys(raw)

	values := make(map[string]string, len(fieldRules))
	for _, rule := range fieldRules {
		for _, alias := range rule.aliases {
			if v := clean(keyed[alias], rule.maxLen); v != "" {
				values[rule.name] = v
				break
			}
		}
	}

	return models.Record{
		ID:         values["id"],
		Owner:      values["owner"],
		Department: values["department"],
		Model:      values["model"],
		IP:         values["ip"],
		OS:         values["os"],
		Status:     values["status"],
	}
}

// Supplied returns the canonical fields mentioned by raw under any alias,
// even with an empty value, in canonical order.
func Supplied(raw models.RawRecord) []string {
	seen := make(map[string]bool)
	for k := range raw {
		if name, ok := CanonicalName(k); ok {
			seen[name] = true
		}
	}
	var out []string
	for _, rule := range fieldRules {
		if seen[rule.name] {
			out = append(out, rule.name)
		}
	}
	return out
}

// CanonicalName resolves a header or JSON key to its canonical field.
func CanonicalName(key string) (string, bool) {
	name, ok := aliasIndex[strings.ToLower(strings.TrimSpace(key))]
	return name, ok
}

// foldKeys lower-cases and trims keys. When two keys fold together the first
// non-empty value wins, visiting an already lower-case key before its case
// variants and otherwise in byte order.
func foldKeys(raw models.RawRecord) map[string]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if fa, fb := isFolded(a), isFolded(b); fa != fb {
			if fa {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})

	out := make(map[string]string, len(raw))
	for _, k := range keys {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if strings.TrimSpace(out[key]) != "" {
			continue
		}
		out[key] = raw[k]
	}
	return out
}

func isFolded(k string) bool {
	return k == strings.ToLower(strings.TrimSpace(k))
}

// newlines folds CRLF and lone CR to LF. encoding/csv reads a quoted CRLF
// back as LF, so stored values must already be in that form.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func clean(s string, maxLen int) string {
	s = strings.TrimSpace(newlines.Replace(s))
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = strings.TrimSpace(string([]rune(s)[:maxLen]))
	}
	return s
}

// setField writes value into the canonical field name of rec.
func setField(rec *models.Record, name, value string) {
	switch name {
	case "id":
		rec.ID = value
	case "owner":
		rec.Owner = value
	case "department":
		rec.Department = value
	case "model":
		rec.Model = value
	case "ip":
		rec.IP = value
	case "os":
		rec.OS = value
	case "status":
		rec.Status = value
	}
}

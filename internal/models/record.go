package models

// Record is one inventory entry (an asset). Every field is free text and
// defaults to the empty string.
type Record struct {
	ID         string `json:"id"`
	Owner      string `json:"owner"`
	Department string `json:"department"`
	Model      string `json:"model"`
	IP         string `json:"ip"`
	OS         string `json:"os"`
	Status     string `json:"status"`
}

// RawRecord is an unnormalized record as received from a form, a JSON body,
// an uploaded file row or an older store file. Keys may be canonical field
// names or legacy aliases, in any case.
type RawRecord map[string]string

// Columns is the canonical field order used for CSV/XLSX headers.
var Columns = []string{"id", "owner", "department", "model", "ip", "os", "status"}

// Values returns the fields in Columns order.
func (r Record) Values() []string {
	return []string{r.ID, r.Owner, r.Department, r.Model, r.IP, r.OS, r.Status}
}

// Raw returns the record keyed by canonical field names.
func (r Record) Raw() RawRecord {
	raw := make(RawRecord, len(Columns))
	for i, v := range r.Values() {
		raw[Columns[i]] = v
	}
	return raw
}

// IsEmpty reports whether every field, id included, is empty.
func (r Record) IsEmpty() bool {
	for _, v := range r.Values() {
		if v != "" {
			return false
		}
	}
	return true
}

package donorperfect

import (
	"bytes"
	"encoding/json"
)

// Field is one named column value.
type Field struct {
	Name  string
	Value string
}

// Record is an ordered mapping of lower-cased column names to values. It is
// not modified after decoding.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord builds a record from fields in order. A repeated name keeps its
// first position and its last value.
func NewRecord(fields ...Field) Record {
	r := Record{values: make(map[string]string, len(fields))}
	for _, f := range fields {
		r.set(f.Name, f.Value)
	}
	return r
}

func (r *Record) set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value stored under key, or "".
func (r Record) Value(key string) string {
	return r.values[key]
}

// Keys returns the column names in response order.
func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.keys) }

// Map returns a copy of the record as a plain map.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// MarshalJSON writes the record as an object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// =============================================================================
// RESULT VARIANTS
// =============================================================================

// Result is the decoded reply of one call: EmptyResult, ScalarResult,
// RecordResult or RowsResult. Callers switch on the concrete type.
type Result interface {
	// Kind names the variant: "empty", "scalar", "record" or "rows".
	Kind() string
	isResult()
}

// EmptyResult is a reply without records.
type EmptyResult struct{}

// ScalarResult is the id returned by create and update procedures.
type ScalarResult struct {
	ID int64
}

// RecordResult is a single flat record.
type RecordResult struct {
	Record Record
}

// RowsResult is an ordered set of rows.
type RowsResult struct {
	Rows []Record
}

func (EmptyResult) Kind() string  { return "empty" }
func (ScalarResult) Kind() string { return "scalar" }
func (RecordResult) Kind() string { return "record" }
func (RowsResult) Kind() string   { return "rows" }

func (EmptyResult) isResult()  {}
func (ScalarResult) isResult() {}
func (RecordResult) isResult() {}
func (RowsResult) isResult()   {}

// Records flattens a result into rows: a single record becomes one row, and
// empty or scalar results have none.
func Records(res Result) []Record {
	switch r := res.(type) {
	case RecordResult:
		return []Record{r.Record}
	case RowsResult:
		return r.Rows
	}
	return nil
}

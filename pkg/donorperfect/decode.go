package donorperfect

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// The endpoint sometimes writes unescaped garbage after a DATE: prefix inside
// a value attribute, which breaks XML parsing. Those values are blanked.
var brokenDateValue = regexp.MustCompile(`(?is)value='DATE:.*?'`)

type xmlField struct {
	ID     string  `xml:"id,attr"`
	Value  *string `xml:"value,attr"`
	Reason string  `xml:"reason,attr"`
}

func (f xmlField) value() string {
	if f.Value == nil {
		return ""
	}
	return *f.Value
}

// xmlRecord is a record element. Row-shaped records nest field elements; a
// flat record may instead carry the field attributes itself.
type xmlRecord struct {
	xmlField
	Fields []xmlField `xml:"field"`
}

func (r xmlRecord) fields() []xmlField {
	if len(r.Fields) == 0 && r.Value != nil {
		return []xmlField{r.xmlField}
	}
	return r.Fields
}

type xmlResult struct {
	Error   *string     `xml:"error"`
	Fields  []xmlField  `xml:"field"`
	Records []xmlRecord `xml:"record"`
}

// Decode parses a response body into a Result. Remote failures come back as
// *RemoteError and unreadable replies as *DecodeError.
func Decode(body []byte) (Result, error) {
	body = brokenDateValue.ReplaceAll(body, []byte("value=''"))

	var doc xmlResult
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, decodeErrorf("empty response body")
		}
		return nil, decodeErrorf("parse: %v", err)
	}

	if doc.Error != nil {
		msg := strings.TrimSpace(*doc.Error)
		if msg == "" {
			msg = "unspecified error"
		}
		return nil, &RemoteError{Message: msg}
	}
	if len(doc.Fields) == 1 && doc.Fields[0].value() == "false" {
		return nil, &RemoteError{Message: doc.Fields[0].Reason}
	}

	switch len(doc.Records) {
	case 0:
		return EmptyResult{}, nil
	case 1:
		return reduceFlat(doc.Records)
	}

	if len(doc.Records[0].Fields) == 0 {
		return reduceFlat(doc.Records)
	}
	return reduceRows(doc.Records)
}

// reduceFlat merges every field of the records into one record. A single
// record element is always read this way, whatever it contains.
func reduceFlat(records []xmlRecord) (Result, error) {
	var rec Record
	for i, node := range records {
		if i > 0 && len(node.Fields) > 0 {
			return nil, decodeErrorf("shape mismatch at index %d", i)
		}
		for _, f := range node.fields() {
			if f.ID == "" {
				return scalar(f)
			}
			rec.set(normalizeKey(f.ID), normalizeValue(f.value()))
		}
	}
	if rec.Len() == 0 {
		return EmptyResult{}, nil
	}
	return RecordResult{Record: rec}, nil
}

func reduceRows(records []xmlRecord) (Result, error) {
	rows := make([]Record, 0, len(records))
	for i, node := range records {
		if len(node.Fields) == 0 {
			return nil, decodeErrorf("shape mismatch at index %d", i)
		}
		var rec Record
		for _, f := range node.Fields {
			if f.ID == "" {
				return scalar(f)
			}
			rec.set(normalizeKey(f.ID), normalizeValue(f.value()))
		}
		rows = append(rows, rec)
	}
	return RowsResult{Rows: rows}, nil
}

func scalar(f xmlField) (Result, error) {
	v := strings.TrimSpace(f.value())
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, decodeErrorf("scalar value %q is not an integer", v)
	}
	return ScalarResult{ID: id}, nil
}

func normalizeKey(id string) string {
	return strings.ToLower(id)
}

func normalizeValue(v string) string {
	return strings.ReplaceAll(v, "`", "'")
}

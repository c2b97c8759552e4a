package donorperfect

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// decimalNumeral accepts what the remote numeric columns parse: an optional
// sign, digits and at most one decimal point. No exponent, no grouping.
var decimalNumeral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// CoerceString trims v and checks it against maxLength characters when
// maxLength is positive. Escaping happens later, in Encode.
func CoerceString(v any, maxLength int) (string, error) {
	s := strings.TrimSpace(toText(v))
	if maxLength > 0 && utf8.RuneCountInString(s) > maxLength {
		return "", validationErrorf("", "%q is longer than the max allowed length of %d", s, maxLength)
	}
	return s, nil
}

// CoerceNumeric validates v as a plain decimal numeral. An empty value returns
// "" which serializes as NULL. A leading plus sign is dropped; otherwise the
// text is returned unchanged.
func CoerceNumeric(v any) (string, error) {
	s := strings.TrimSpace(toText(v))
	if s == "" {
		return "", nil
	}
	if strings.ContainsAny(s, "eE") || !decimalNumeral.MatchString(s) {
		return "", validationErrorf("", "%q is not numeric", s)
	}
	return strings.TrimPrefix(s, "+"), nil
}

// CoerceMoney validates v like CoerceNumeric and formats it with exactly two
// fractional digits.
func CoerceMoney(v any) (string, error) {
	s, err := CoerceNumeric(v)
	if err != nil || s == "" {
		return s, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", validationErrorf("", "%q is not numeric", s)
	}
	return d.StringFixed(2), nil
}

// CoerceDate passes pre-formatted date text (MM/DD/YYYY) through unchanged.
// Parsing date values is not supported; time.Time input is rejected rather
// than guessed at.
func CoerceDate(v any) (string, error) {
	return passThroughDate(v, "MM/DD/YYYY")
}

// CoerceDateTime passes pre-formatted datetime text through unchanged.
func CoerceDateTime(v any) (string, error) {
	return passThroughDate(v, "datetime")
}

func passThroughDate(v any, format string) (string, error) {
	switch v.(type) {
	case time.Time, *time.Time:
		return "", validationErrorf("", "date values must be pre-formatted %s text", format)
	}
	return toText(v), nil
}

// CoerceBool reports the truthiness of v. Empty strings, "0" and "false" are
// false, as are zero numbers and nil.
func CoerceBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s != "" && s != "0" && s != "false"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer:
		return !rv.IsNil()
	}
	return true
}

// CoerceArray requires v to be a slice or array and returns its items as text.
func CoerceArray(v any) ([]string, error) {
	if items, ok := v.([]string); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, validationErrorf("", "the provided value is not a valid array")
	}
	items := make([]string, rv.Len())
	for i := range items {
		items[i] = toText(rv.Index(i).Interface())
	}
	return items, nil
}

// coerce dispatches on the rule kind. The result is nil (NULL), a string,
// a bool or a []string.
func coerce(rule Rule, v any) (any, error) {
	var (
		out any
		err error
	)
	switch rule.Kind {
	case KindString:
		out, err = CoerceString(v, rule.MaxLength)
	case KindNumeric:
		out, err = CoerceNumeric(v)
	case KindMoney:
		out, err = CoerceMoney(v)
	case KindDate:
		out, err = CoerceDate(v)
	case KindDateTime:
		out, err = CoerceDateTime(v)
	case KindBool:
		out = CoerceBool(v)
	case KindArray:
		out, err = CoerceArray(v)
	case KindLiteral:
		out = rule.Value
	default:
		err = validationErrorf("", "unsupported parameter kind %s", rule.Kind)
	}
	if err != nil {
		if ve, ok := err.(*ValidationError); ok && ve.Field == "" {
			ve.Field = rule.Name
		}
		return nil, err
	}
	return out, nil
}

// toText renders scalar input the way the endpoint expects to read it.
// Floats never use exponent notation.
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case decimal.Decimal:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

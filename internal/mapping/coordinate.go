package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
)

// AxisEntry is one coordinate in table vocabulary. It always holds every key
// of AxisKeys; values are strings, or string slices for requested values.
type AxisEntry map[string]any

// coordinateKeys pairs each table key with its data request attribute.
// An empty source means the data request has no equivalent.
var coordinateKeys = []struct {
	key    string
	source string
}{
	{"axis", "axis_flag"},
	{"bounds_values", "bounds_scalar"},
	{"climatology", "climatology_flag"},
	{"formula", ""},
	{"generic_level_name", ""},
	{"long_name", "title"},
	{"must_have_bounds", "bounds_flag"},
	{"out_name", "output_name"},
	{"positive", "positive_direction"},
	{"requested", "requested_values"},
	{"requested_bounds", "requested_bounds"},
	{"standard_name", "cf_standard_name"},
	{"stored_direction", "stored_direction"},
	{"tolerance", "tolerance"},
	{"type", "type"},
	{"units", "units"},
	{"valid_max", "maximum_valid_value"},
	{"valid_min", "minimum_valid_value"},
	{"value", "value_scalar_or_string"},
	{"z_bounds_factors", ""},
	{"z_factors", ""},
}

// AxisKeys returns the fixed key set of an AxisEntry.
func AxisKeys() []string {
	keys := make([]string, len(coordinateKeys))
	for i, k := range coordinateKeys {
		keys[i] = k.key
	}
	return keys
}

// SourceKey returns the data request attribute feeding a table key, and
// whether the key has one.
func SourceKey(key string) (string, bool) {
	for _, k := range coordinateKeys {
		if k.key == key {
			return k.source, k.source != ""
		}
	}
	return "", false
}

// MapCoordinate projects a data request coordinate onto the fixed key set.
// Commas are stripped from every value. must_have_bounds becomes "yes" or
// "no". requested and requested_bounds become lists of one-decimal strings,
// or "" when any token is not a number.
func MapCoordinate(c dreq.Coordinate) (string, AxisEntry) {
	entry := make(AxisEntry, len(coordinateKeys))
	for _, k := range coordinateKeys {
		if k.source == "" {
			entry[k.key] = ""
			continue
		}
		f := c.Attrs.Lookup(k.source)
		switch k.key {
		case "must_have_bounds":
			entry[k.key] = yesNo(f)
		case "requested", "requested_bounds":
			entry[k.key] = decimalList(stripCommas(f.String()))
		default:
			entry[k.key] = stripCommas(f.String())
		}
	}
	return c.Name, entry
}

func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

func yesNo(f dreq.Field) string {
	if f.Truthy() {
		return "yes"
	}
	return "no"
}

// decimalList tokenizes s on whitespace and formats each token to one
// decimal place.
func decimalList(s string) any {
	if s == "" {
		return ""
	}
	tokens := strings.Fields(s)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		formatted, err := OneDecimal(tok)
		if err != nil {
			return ""
		}
		out = append(out, formatted)
	}
	return out
}

// decimalContext holds enough digits for the exact expansion of any
// float64 quantized to one fractional digit.
var decimalContext = func() apd.Context {
	ctx := *apd.BaseContext.WithPrecision(1500)
	ctx.Rounding = apd.RoundHalfEven
	return ctx
}()

// exactDigits is the fractional length of the smallest subnormal float64,
// so formatting with it is exact for every float64.
const exactDigits = 1074

// OneDecimal formats a number with exactly one fractional digit. The token
// is read as a float64 and the exact binary value is rounded half to even,
// so 0.35 (stored as 0.34999...) becomes "0.3".
func OneDecimal(tok string) (string, error) {
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return "", fmt.Errorf("invalid number %q: %w", tok, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("invalid number %q: not finite", tok)
	}

	var d apd.Decimal
	if _, _, err := d.SetString(strconv.FormatFloat(f, 'f', exactDigits, 64)); err != nil {
		return "", fmt.Errorf("invalid number %q: %w", tok, err)
	}
	d.Negative = math.Signbit(f)

	ctx := decimalContext
	var q apd.Decimal
	if _, err := ctx.Quantize(&q, &d, -1); err != nil {
		return "", fmt.Errorf("invalid number %q: %w", tok, err)
	}
	return q.Text('f'), nil
}

package record

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeMoneyString renders a premium-style amount with two decimal
// places, accepting numbers or strings with currency noise ("$", commas).
// Values that cannot be read as numbers pass through as their string form.
func NormalizeMoneyString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 2, 64)
	case int:
		return strconv.FormatFloat(float64(x), 'f', 2, 64)
	case int64:
		return strconv.FormatFloat(float64(x), 'f', 2, 64)
	case string:
		cleaned := strings.TrimSpace(x)
		cleaned = strings.ReplaceAll(cleaned, "$", "")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if cleaned == "" {
			return x
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return x
		}
		return strconv.FormatFloat(f, 'f', 2, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

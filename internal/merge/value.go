package merge

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"casework-backend/internal/parse"
)

// HasValue reports whether v carries anything worth showing in a merge.
func HasValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case []any:
		for _, item := range x {
			if HasValue(item) {
				return true
			}
		}
		return false
	case map[string]any:
		for _, item := range x {
			if HasValue(item) {
				return true
			}
		}
		return false
	case Record:
		return HasValue(map[string]any(x))
	}
	return true
}

// canonical is the identity used to compare values; encoding/json sorts map keys.
func canonical(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// DisplayValue renders v for a human reviewer, using the field name to pick a format.
func DisplayValue(field string, v any) string {
	if !HasValue(v) {
		return ""
	}
	switch field {
	case "ssn":
		return formatSSN(fmt.Sprint(v))
	case "dateOfBirth":
		return formatDate(fmt.Sprint(v))
	}

	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any:
		return displayItem(field, x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := DisplayValue(field, item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return fmt.Sprint(v)
}

func displayItem(field string, item map[string]any) string {
	str := func(k string) string {
		if v, ok := item[k]; ok && HasValue(v) {
			return strings.TrimSpace(fmt.Sprint(v))
		}
		return ""
	}

	switch field {
	case "phoneNumbers":
		return withSuffix(str("number"), str("description"))
	case "incomeSources":
		return joinNonEmpty(" ", labelled(str("source"), money(item["amount"])), str("frequency"))
	case "expenses":
		return joinNonEmpty(" ", labelled(str("type"), money(item["amount"])), str("frequency"))
	case "benefits":
		return withSuffix(str("name"), str("status"))
	case "streetAddress", "mailingAddress":
		return joinNonEmpty(", ", str("street"), str("city"), joinNonEmpty(" ", str("state"), str("zip")))
	}

	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := str(k); s != "" {
			parts = append(parts, k+"="+s)
		}
	}
	return strings.Join(parts, ", ")
}

func withSuffix(main, suffix string) string {
	if suffix == "" {
		return main
	}
	if main == "" {
		return "(" + suffix + ")"
	}
	return main + " (" + suffix + ")"
}

func labelled(label, value string) string {
	switch {
	case label == "":
		return value
	case value == "":
		return label
	}
	return label + ": " + value
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func money(v any) string {
	switch x := v.(type) {
	case float64:
		return "$" + humanize.FormatFloat("#,###.##", x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return "$" + humanize.FormatFloat("#,###.##", f)
		}
		return strings.TrimSpace(x)
	}
	return ""
}

func formatSSN(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) != 9 {
		return strings.TrimSpace(raw)
	}
	return digits[:3] + "-" + digits[3:5] + "-" + digits[5:]
}

func formatDate(raw string) string {
	t, err := parse.Date(raw, nil)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return t.Format("Jan 2, 2006")
}

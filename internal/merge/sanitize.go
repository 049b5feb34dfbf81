package merge

import "strings"

// Field paths become form keys. Every reserved byte, and the escape byte
// itself, is replaced by a two-byte token starting with '_'.
var (
	keyEncoder = strings.NewReplacer(
		"_", "_u",
		" ", "_s",
		".", "_d",
		"(", "_o",
		")", "_c",
		"/", "_l",
		",", "_m",
		"-", "_h",
		"&", "_a",
	)
	keyDecoder = strings.NewReplacer(
		"_u", "_",
		"_s", " ",
		"_d", ".",
		"_o", "(",
		"_c", ")",
		"_l", "/",
		"_m", ",",
		"_h", "-",
		"_a", "&",
	)
)

// SanitizeKey encodes a field path into a form-safe key.
func SanitizeKey(path string) string {
	return keyEncoder.Replace(path)
}

// UnsanitizeKey reverses SanitizeKey.
func UnsanitizeKey(key string) string {
	return keyDecoder.Replace(key)
}

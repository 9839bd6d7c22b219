package utils

import "strings"

// NormalizeTicker converts a raw symbol to canonical form: uppercase
// with share-class dots replaced by dashes ("brk.b" -> "BRK-B").
func NormalizeTicker(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return strings.ReplaceAll(s, ".", "-")
}

// NormalizeTickers normalizes a slice of symbols, dropping empties.
func NormalizeTickers(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeTicker(s)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

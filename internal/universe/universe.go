// Package universe supplies the canonical set of ticker symbols every
// downstream stage filters against.
package universe

import (
	"encoding/csv"
	"os"
	"sort"
	"strings"

	"github.com/quantlabs/nowcast/pkg/utils"
)

// fallback is the minimal built-in set used when no persisted universe
// file exists, so the pipeline is always runnable.
var fallback = []string{
	"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "BRK-B",
}

// Universe is an immutable set of canonical ticker symbols.
type Universe struct {
	symbols map[string]struct{}
}

// Load reads the universe from a single-column ticker CSV. A missing
// or unreadable file is not an error: the built-in fallback set is
// returned instead. Symbols are uppercased with dots normalized to
// dashes ("BRK.B" -> "BRK-B").
func Load(path string) *Universe {
	f, err := os.Open(path)
	if err != nil {
		return FromSymbols(fallback)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return FromSymbols(fallback)
	}

	var symbols []string
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		val := strings.TrimSpace(rec[0])
		// Tolerate a header row.
		if i == 0 && strings.EqualFold(val, "ticker") {
			continue
		}
		if val != "" {
			symbols = append(symbols, val)
		}
	}

	if len(symbols) == 0 {
		return FromSymbols(fallback)
	}
	return FromSymbols(symbols)
}

// FromSymbols builds a universe from raw symbols, normalizing each.
func FromSymbols(symbols []string) *Universe {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range utils.NormalizeTickers(symbols) {
		set[s] = struct{}{}
	}
	return &Universe{symbols: set}
}

// Contains reports whether the canonical symbol is in the universe.
func (u *Universe) Contains(symbol string) bool {
	_, ok := u.symbols[symbol]
	return ok
}

// Symbols returns the universe as a sorted slice.
func (u *Universe) Symbols() []string {
	out := make([]string, 0, len(u.symbols))
	for s := range u.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Size returns the number of symbols.
func (u *Universe) Size() int { return len(u.symbols) }

// Empty reports whether the universe has no symbols.
func (u *Universe) Empty() bool { return len(u.symbols) == 0 }

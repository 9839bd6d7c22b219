package universe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileFallsBack(t *testing.T) {
	u := Load(filepath.Join(t.TempDir(), "absent.csv"))
	if u.Empty() {
		t.Fatal("fallback universe should not be empty")
	}
	if !u.Contains("AAPL") || !u.Contains("BRK-B") {
		t.Error("fallback universe missing expected symbols")
	}
}

func TestLoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sp500.csv")
	body := []byte("ticker\naapl\nBRK.B\n bf.b \n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	u := Load(path)
	if u.Size() != 3 {
		t.Fatalf("expected 3 symbols, got %d: %v", u.Size(), u.Symbols())
	}
	for _, want := range []string{"AAPL", "BRK-B", "BF-B"} {
		if !u.Contains(want) {
			t.Errorf("universe should contain %s", want)
		}
	}
	if u.Contains("ticker") || u.Contains("TICKER") {
		t.Error("header row should be skipped")
	}
}

func TestLoadEmptyFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	u := Load(path)
	if !u.Contains("MSFT") {
		t.Error("empty file should fall back to default set")
	}
}

func TestSymbolsSorted(t *testing.T) {
	u := FromSymbols([]string{"TSLA", "AAPL", "MSFT"})
	syms := u.Symbols()
	if syms[0] != "AAPL" || syms[2] != "TSLA" {
		t.Errorf("symbols not sorted: %v", syms)
	}
}

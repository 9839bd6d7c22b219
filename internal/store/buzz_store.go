package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quantlabs/nowcast/pkg/models"
	"github.com/quantlabs/nowcast/pkg/utils"
)

// BuzzStore reads and writes one buzz aggregate CSV per run date under
// a single directory, named "<YYYY-MM-DD>.csv".
type BuzzStore struct {
	dir string
}

// NewBuzzStore returns a store rooted at dir.
func NewBuzzStore(dir string) *BuzzStore {
	return &BuzzStore{dir: dir}
}

// Dir returns the store directory.
func (s *BuzzStore) Dir() string { return s.dir }

// Write persists the aggregates for one run date and returns the file
// path. An empty aggregate set still writes a header-only file so the
// day is recorded with the declared schema.
func (s *BuzzStore) Write(date time.Time, aggs []models.BuzzAggregate) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create buzz dir: %w", err)
	}

	path := filepath.Join(s.dir, utils.FormatDate(date)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create buzz file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.BuzzColumnNames); err != nil {
		return "", fmt.Errorf("write buzz header: %w", err)
	}

	for _, a := range aggs {
		rec := []string{
			utils.FormatDate(a.Date),
			a.Ticker,
			strconv.Itoa(a.Mentions),
			strconv.FormatFloat(a.AvgSentiment, 'g', -1, 64),
			a.Sources,
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("write buzz row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush buzz file: %w", err)
	}
	return path, nil
}

// Read loads the aggregates for one date. A header-only file yields
// an empty slice.
func (s *BuzzStore) Read(date time.Time) ([]models.BuzzAggregate, error) {
	return s.readFile(filepath.Join(s.dir, utils.FormatDate(date)+".csv"))
}

// ReadAll loads aggregates from every daily file in the store,
// skipping files that cannot be read or parsed. A missing directory
// yields no rows, not an error.
func (s *BuzzStore) ReadAll() ([]models.BuzzAggregate, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]models.BuzzAggregate, 0)
	for _, p := range paths {
		aggs, err := s.readFile(p)
		if err != nil {
			// Unreadable daily files must not abort the run.
			continue
		}
		out = append(out, aggs...)
	}
	return out, nil
}

// Dates lists the run dates present in the store, sorted ascending.
func (s *BuzzStore) Dates() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ".csv")
		if _, err := utils.ParseDate(name); err == nil {
			dates = append(dates, name)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *BuzzStore) readFile(path string) ([]models.BuzzAggregate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}

	out := make([]models.BuzzAggregate, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		date, err := utils.ParseDate(rec[0])
		if err != nil {
			continue
		}
		mentions, err := strconv.Atoi(rec[2])
		if err != nil {
			continue
		}
		avg, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			continue
		}
		out = append(out, models.BuzzAggregate{
			Date:         date,
			Ticker:       rec[1],
			Mentions:     mentions,
			AvgSentiment: avg,
			Sources:      rec[4],
		})
	}
	return out, nil
}

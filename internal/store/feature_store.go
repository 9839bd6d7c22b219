package store

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/quantlabs/nowcast/pkg/models"
)

// FeatureStore is the columnar market feature store backed by DuckDB.
type FeatureStore struct {
	db   *sql.DB
	path string
}

// OpenFeatureStore opens (creating if needed) the DuckDB file at path
// and ensures the feature schema exists. Use ":memory:" for tests.
func OpenFeatureStore(path string) (*FeatureStore, error) {
	if path != ":memory:" && path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create feature store dir: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	if _, err := db.Exec(createFeaturesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create feature schema: %w", err)
	}

	return &FeatureStore{db: db, path: path}, nil
}

// Exists reports whether a feature store file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Path returns the store's file path.
func (s *FeatureStore) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *FeatureStore) Close() error { return s.db.Close() }

// Replace atomically rewrites the feature table with the given rows.
// An empty input still leaves the declared schema in place.
func (s *FeatureStore) Replace(rows []models.FeatureRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM daily_features`); err != nil {
		return fmt.Errorf("clear features: %w", err)
	}

	stmt, err := tx.Prepare(insertFeatureRow)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(
			r.Date, r.Ticker,
			nullable(r.Open), nullable(r.High), nullable(r.Low), nullable(r.Close), r.Volume,
			nullable(r.R1), nullable(r.R5), nullable(r.R20),
			nullable(r.RSI14), nullable(r.Vol20),
			nullable(r.Hi52d), nullable(r.Lo52d),
			nullable(r.Hi52dDist), nullable(r.Lo52dDist),
		)
		if err != nil {
			return fmt.Errorf("insert %s %s: %w", r.Ticker, r.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

// LoadAll reads every feature row ordered by ticker then date.
func (s *FeatureStore) LoadAll() ([]models.FeatureRow, error) {
	rows, err := s.db.Query(selectFeatureRows)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	out := make([]models.FeatureRow, 0)
	for rows.Next() {
		var (
			r                          models.FeatureRow
			date                       time.Time
			open, high, low, cl        sql.NullFloat64
			volume                     sql.NullInt64
			r1, r5, r20, rsi14, vol20  sql.NullFloat64
			hi52d, lo52d, hiDist, loDist sql.NullFloat64
		)
		err := rows.Scan(
			&date, &r.Ticker, &open, &high, &low, &cl, &volume,
			&r1, &r5, &r20, &rsi14, &vol20, &hi52d, &lo52d, &hiDist, &loDist,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		r.Date = date.UTC()
		r.Open = floatOrNaN(open)
		r.High = floatOrNaN(high)
		r.Low = floatOrNaN(low)
		r.Close = floatOrNaN(cl)
		r.Volume = volume.Int64
		r.R1 = floatOrNaN(r1)
		r.R5 = floatOrNaN(r5)
		r.R20 = floatOrNaN(r20)
		r.RSI14 = floatOrNaN(rsi14)
		r.Vol20 = floatOrNaN(vol20)
		r.Hi52d = floatOrNaN(hi52d)
		r.Lo52d = floatOrNaN(lo52d)
		r.Hi52dDist = floatOrNaN(hiDist)
		r.Lo52dDist = floatOrNaN(loDist)

		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadTicker reads one ticker's rows ordered by date.
func (s *FeatureStore) LoadTicker(ticker string) ([]models.FeatureRow, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	out := make([]models.FeatureRow, 0)
	for _, r := range all {
		if r.Ticker == ticker {
			out = append(out, r)
		}
	}
	return out, nil
}

// LatestDate returns the most recent feature date and whether any
// rows exist at all.
func (s *FeatureStore) LatestDate() (time.Time, bool, error) {
	var d sql.NullTime
	err := s.db.QueryRow(`SELECT max(date) FROM daily_features`).Scan(&d)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest date: %w", err)
	}
	if !d.Valid {
		return time.Time{}, false, nil
	}
	return d.Time.UTC(), true, nil
}

// Columns returns the declared column names in table order.
func (s *FeatureStore) Columns() ([]string, error) {
	rows, err := s.db.Query(`SELECT * FROM daily_features LIMIT 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

// nullable maps NaN to SQL NULL.
func nullable(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

// floatOrNaN maps SQL NULL back to NaN.
func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

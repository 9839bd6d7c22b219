// Package store persists pipeline outputs: market features in a
// DuckDB columnar file and daily buzz aggregates as per-date CSVs.
// Both writers keep the declared schema in place even when a run
// produces zero rows, so downstream joins stay well-defined.
package store

// createFeaturesTable declares the market feature table. Column names
// and order are part of the pipeline contract; NULL marks a derived
// value that is undefined for lack of history.
const createFeaturesTable = `
CREATE TABLE IF NOT EXISTS daily_features (
    date       DATE    NOT NULL,
    ticker     VARCHAR NOT NULL,
    open       DOUBLE,
    high       DOUBLE,
    low        DOUBLE,
    close      DOUBLE,
    volume     BIGINT,
    r1         DOUBLE,
    r5         DOUBLE,
    r20        DOUBLE,
    rsi14      DOUBLE,
    vol20      DOUBLE,
    hi52d      DOUBLE,
    lo52d      DOUBLE,
    hi52d_dist DOUBLE,
    lo52d_dist DOUBLE,
    PRIMARY KEY (date, ticker)
);
`

const insertFeatureRow = `
INSERT INTO daily_features (
    date, ticker, open, high, low, close, volume,
    r1, r5, r20, rsi14, vol20, hi52d, lo52d, hi52d_dist, lo52d_dist
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectFeatureRows = `
SELECT date, ticker, open, high, low, close, volume,
       r1, r5, r20, rsi14, vol20, hi52d, lo52d, hi52d_dist, lo52d_dist
FROM daily_features
ORDER BY ticker, date
`

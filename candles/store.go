// Package candles persists daily and intraday candles in SQLite and imports
// them from CSV files.
package candles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/ashare/market"
)

// ErrUnsupportedPeriod is returned for a minute query with a period the
// store does not keep.
var ErrUnsupportedPeriod = errors.New("candles: unsupported period")

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the candle database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("candles: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDaily upserts daily candles for code and returns how many were written.
func (s *Store) SaveDaily(ctx context.Context, code string, cs []market.Candle) (int, error) {
	return s.save(ctx, cs, `
		INSERT OR REPLACE INTO daily_kline
		(stock_code, date, open, high, low, close, volume, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		func(c market.Candle) []any {
			return []any{code, c.Time.In(market.Location).Format(market.DateLayout),
				c.Open, c.High, c.Low, c.Close, c.Volume, c.Amount}
		})
}

// SaveMinute upserts intraday candles of period p for code.
func (s *Store) SaveMinute(ctx context.Context, code string, p market.Period, cs []market.Candle) (int, error) {
	if !p.IsMinute() {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedPeriod, p)
	}
	return s.save(ctx, cs, `
		INSERT OR REPLACE INTO minute_kline
		(stock_code, period, datetime, open, high, low, close, volume, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(c market.Candle) []any {
			return []any{code, string(p), c.Time.In(market.Location).Format(market.DateTimeLayout),
				c.Open, c.High, c.Low, c.Close, c.Volume, c.Amount}
		})
}

func (s *Store) save(ctx context.Context, cs []market.Candle, query string, args func(market.Candle) []any) (int, error) {
	if len(cs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, c := range cs {
		if _, err := stmt.ExecContext(ctx, args(c)...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("candles: save %s: %w", c.Time.Format(market.DateTimeLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(cs), nil
}

// Daily returns daily candles for code with dates in [from, to], oldest first.
func (s *Store) Daily(ctx context.Context, code string, from, to time.Time) ([]market.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume, amount
		FROM daily_kline
		WHERE stock_code = ? AND date BETWEEN ? AND ?
		ORDER BY date`,
		code, from.In(market.Location).Format(market.DateLayout), to.In(market.Location).Format(market.DateLayout))
	if err != nil {
		return nil, err
	}
	return scanCandles(rows, market.ParseDate)
}

// Minute returns period-p candles for code with start times in [from, to],
// oldest first.
func (s *Store) Minute(ctx context.Context, code string, p market.Period, from, to time.Time) ([]market.Candle, error) {
	if !p.IsMinute() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPeriod, p)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT datetime, open, high, low, close, volume, amount
		FROM minute_kline
		WHERE stock_code = ? AND period = ? AND datetime BETWEEN ? AND ?
		ORDER BY datetime`,
		code, string(p),
		from.In(market.Location).Format(market.DateTimeLayout), to.In(market.Location).Format(market.DateTimeLayout))
	if err != nil {
		return nil, err
	}
	return scanCandles(rows, market.ParseDateTime)
}

// Candle returns the single candle of period p that starts at at. For
// market.Daily only the date of at is used. ok is false when none is stored.
func (s *Store) Candle(ctx context.Context, code string, p market.Period, at time.Time) (c market.Candle, ok bool, err error) {
	var cs []market.Candle
	if p == market.Daily {
		cs, err = s.Daily(ctx, code, at, at)
	} else {
		cs, err = s.Minute(ctx, code, p, at, at)
	}
	if err != nil || len(cs) == 0 {
		return market.Candle{}, false, err
	}
	return cs[0], true, nil
}

// LatestDaily returns the most recent stored date for code.
func (s *Store) LatestDaily(ctx context.Context, code string) (time.Time, bool, error) {
	var v sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM daily_kline WHERE stock_code = ?`, code).Scan(&v)
	if err != nil || !v.Valid {
		return time.Time{}, false, err
	}
	t, err := market.ParseDate(v.String)
	return t, err == nil, err
}

// LatestMinute returns the most recent stored candle start for code and p.
func (s *Store) LatestMinute(ctx context.Context, code string, p market.Period) (time.Time, bool, error) {
	if !p.IsMinute() {
		return time.Time{}, false, fmt.Errorf("%w: %q", ErrUnsupportedPeriod, p)
	}
	var v sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(datetime) FROM minute_kline WHERE stock_code = ? AND period = ?`,
		code, string(p)).Scan(&v)
	if err != nil || !v.Valid {
		return time.Time{}, false, err
	}
	t, err := market.ParseDateTime(v.String)
	return t, err == nil, err
}

// SaveStock records the display name of code.
func (s *Store) SaveStock(ctx context.Context, code, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO stocks (code, name) VALUES (?, ?)`, code, name)
	return err
}

// StockName returns the stored name of code, or code itself if unknown.
func (s *Store) StockName(ctx context.Context, code string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM stocks WHERE code = ?`, code).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return code, nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// Codes lists every stock code with daily data.
func (s *Store) Codes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT stock_code FROM daily_kline ORDER BY stock_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

func scanCandles(rows *sql.Rows, parse func(string) (time.Time, error)) ([]market.Candle, error) {
	defer rows.Close()

	var out []market.Candle
	for rows.Next() {
		var (
			ts string
			c  market.Candle
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Amount); err != nil {
			return nil, err
		}
		t, err := parse(ts)
		if err != nil {
			return nil, fmt.Errorf("candles: bad stored time %q: %w", ts, err)
		}
		c.Time = t
		out = append(out, c)
	}
	return out, rows.Err()
}

package candles

// Schema creates the candle tables. Dates and datetimes are stored as text
// in market time using market.DateLayout and market.DateTimeLayout, so
// lexical order is chronological order.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_kline (
	stock_code TEXT NOT NULL,
	date TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume INTEGER NOT NULL DEFAULT 0,
	amount REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (stock_code, date)
);

CREATE TABLE IF NOT EXISTS minute_kline (
	stock_code TEXT NOT NULL,
	period TEXT NOT NULL,
	datetime TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume INTEGER NOT NULL DEFAULT 0,
	amount REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (stock_code, period, datetime)
);

CREATE INDEX IF NOT EXISTS idx_minute_datetime ON minute_kline(datetime);

CREATE TABLE IF NOT EXISTS stocks (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
`

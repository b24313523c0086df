package journal

// Schema creates the journal tables. Money is stored as decimal text and
// times as "2006-01-02 15:04:05" in market time.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	stock_code TEXT NOT NULL,
	stock_name TEXT NOT NULL,
	strategy TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	initial_cash TEXT NOT NULL,
	final_value TEXT NOT NULL DEFAULT '0',
	start_price TEXT NOT NULL DEFAULT '0',
	end_price TEXT NOT NULL DEFAULT '0',
	trades INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	decision_time TEXT NOT NULL,
	executed_at TEXT NOT NULL,
	action TEXT NOT NULL,
	stock_code TEXT NOT NULL,
	price TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	reason TEXT NOT NULL,
	stop_loss TEXT,
	take_profit TEXT
);

CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id, decision_time);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time TEXT NOT NULL,
	cash TEXT NOT NULL,
	stock_value TEXT NOT NULL,
	total_value TEXT NOT NULL,
	PRIMARY KEY (run_id, time)
);
`

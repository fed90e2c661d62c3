package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs table: one row per bigram job
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

    -- Inputs as JSON array, plus a fingerprint of the sorted set
    inputs TEXT NOT NULL,
    input_fingerprint TEXT NOT NULL,
    output_dir TEXT NOT NULL,

    reducers INTEGER NOT NULL,
    combiner BOOLEAN DEFAULT 1,
    in_mapper_combining BOOLEAN DEFAULT 0,

    status TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'succeeded', 'failed')),
    error TEXT,

    -- Job counters as JSON object: {"map_input_lines": 10, ...}
    counters TEXT,
    duration_ms INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(input_fingerprint);

-- Bigrams table: reducer output of a successful run.
-- right_word = '' holds the left word's total count.
CREATE TABLE IF NOT EXISTS bigrams (
    run_id INTEGER NOT NULL,
    left_word TEXT NOT NULL,
    right_word TEXT NOT NULL,
    frequency REAL NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, left_word, right_word)
);

CREATE INDEX IF NOT EXISTS idx_bigrams_left ON bigrams(run_id, left_word);
`

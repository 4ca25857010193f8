package db

// migrationsSQL creates the schema. Statements are separated by ';' and
// must be idempotent.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	language TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_processed_line INTEGER NOT NULL DEFAULT -1
);

CREATE TABLE IF NOT EXISTS words (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	token TEXT NOT NULL,
	language TEXT NOT NULL,
	UNIQUE(token, language)
);

CREATE TABLE IF NOT EXISTS word_counts (
	word_id INTEGER NOT NULL REFERENCES words(id),
	source_id INTEGER NOT NULL REFERENCES sources(id),
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (word_id, source_id)
);

CREATE INDEX IF NOT EXISTS idx_words_language ON words(language);
CREATE INDEX IF NOT EXISTS idx_word_counts_source ON word_counts(source_id)
`

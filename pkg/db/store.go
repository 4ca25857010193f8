package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetWord returns existing word id or inserts a new word and returns its id.
func CreateOrGetWord(db DBExecutor, token, language string) (int64, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return 0, fmt.Errorf("token must be non-empty")
	}

	// The no-op update makes RETURNING yield the id of an existing row.
	var id int64
	err := db.QueryRow(`INSERT INTO words (token, language) VALUES (?, ?)
		ON CONFLICT(token, language) DO UPDATE SET token = excluded.token
		RETURNING id`, trimmed, language).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert word: %w", err)
	}
	return id, nil
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
func CreateOrGetSource(db DBExecutor, name, language, url string) (int64, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return 0, fmt.Errorf("source name must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(`SELECT id FROM sources WHERE name = ?`, trimmedName).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}

		res, err := db.Exec(
			`INSERT INTO sources (name, language, url) VALUES (?, ?, ?)`,
			trimmedName, language, url,
		)
		if err != nil {
			// Another writer inserted the same source; read it back.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

// GetSource loads a source by name.
func GetSource(db DBExecutor, name string) (*Source, error) {
	var s Source
	err := db.QueryRow(`SELECT id, name, language, url, added_at, last_processed_line FROM sources WHERE name = ?`, name).
		Scan(&s.ID, &s.Name, &s.Language, &s.URL, &s.AddedAt, &s.LastProcessedLine)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddWordCount adds n occurrences of a word in a source.
func AddWordCount(db DBExecutor, wordID, sourceID, n int64) error {
	if wordID <= 0 {
		return fmt.Errorf("wordID must be positive")
	}
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	if n < 1 {
		return fmt.Errorf("count increment must be positive, got %d", n)
	}
	_, err := db.Exec(`INSERT INTO word_counts (word_id, source_id, count) VALUES (?, ?, ?)
		ON CONFLICT(word_id, source_id) DO UPDATE SET count = word_counts.count + excluded.count`,
		wordID, sourceID, n)
	return err
}

// GetSourceProgress returns the index of the last line counted for a
// source, or -1 if none was.
func GetSourceProgress(db DBExecutor, sourceID int64) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_line FROM sources WHERE id = ?", sourceID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateSourceProgress updates the last processed line index.
func UpdateSourceProgress(db DBExecutor, sourceID int64, index int) error {
	_, err := db.Exec("UPDATE sources SET last_processed_line = ? WHERE id = ?", index, sourceID)
	return err
}

// LanguageCounts sums counts over every source for a language, ordered by
// count descending then token.
func LanguageCounts(db DBExecutor, language string) ([]TokenCount, error) {
	return queryCounts(db, `SELECT w.token, SUM(wc.count) AS total
		FROM words w JOIN word_counts wc ON wc.word_id = w.id
		WHERE w.language = ?
		GROUP BY w.id
		ORDER BY total DESC, w.token ASC`, language)
}

// SourceCounts returns the counts recorded for one source.
func SourceCounts(db DBExecutor, sourceID int64) ([]TokenCount, error) {
	return queryCounts(db, `SELECT w.token, wc.count
		FROM words w JOIN word_counts wc ON wc.word_id = w.id
		WHERE wc.source_id = ?
		ORDER BY wc.count DESC, w.token ASC`, sourceID)
}

func queryCounts(db DBExecutor, query string, arg interface{}) ([]TokenCount, error) {
	rows, err := db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TokenCount
	for rows.Next() {
		var tc TokenCount
		if err := rows.Scan(&tc.Token, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package db

import "time"

// Word is a token in one language.
type Word struct {
	ID       int64
	Token    string
	Language string
}

// Source is a corpus whose lines were counted.
type Source struct {
	ID                int64
	Name              string
	Language          string
	URL               string
	AddedAt           time.Time
	LastProcessedLine int
}

// TokenCount is an aggregated count row.
type TokenCount struct {
	Token string
	Count int64
}

// Package transcache persists transcription results keyed by audio content
// hash so repeated alignment requests for the same track skip the expensive
// speech-to-text pass.
package transcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"mixdown/internal/align"
)

// ErrNotFound marks a cache miss.
var ErrNotFound = errors.New("transcache: not found")

// Store is a sqlite-backed transcript cache.
type Store struct {
	db *sql.DB
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS transcripts (
		audio_hash TEXT NOT NULL,
		model TEXT NOT NULL,
		language TEXT NOT NULL,
		tokens TEXT NOT NULL,
		track_end REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (audio_hash, model, language)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at)`,
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("transcache: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("transcache: migrate: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Transcript is one cached transcription.
type Transcript struct {
	Tokens   []align.Token
	TrackEnd float64
}

// Lookup returns the cached transcript for (audioHash, model, language) or
// ErrNotFound.
func (s *Store) Lookup(ctx context.Context, audioHash, model, language string) (Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tokens, track_end FROM transcripts WHERE audio_hash = ? AND model = ? AND language = ?`,
		audioHash, model, language)
	var encoded string
	var transcript Transcript
	if err := row.Scan(&encoded, &transcript.TrackEnd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transcript{}, ErrNotFound
		}
		return Transcript{}, fmt.Errorf("transcache: lookup: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &transcript.Tokens); err != nil {
		return Transcript{}, fmt.Errorf("transcache: decode tokens: %w", err)
	}
	return transcript, nil
}

// Save stores a transcript, replacing any previous entry for the same key.
func (s *Store) Save(ctx context.Context, audioHash, model, language string, transcript Transcript) error {
	encoded, err := json.Marshal(transcript.Tokens)
	if err != nil {
		return fmt.Errorf("transcache: encode tokens: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts (audio_hash, model, language, tokens, track_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		audioHash, model, language, string(encoded), transcript.TrackEnd, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("transcache: save: %w", err)
	}
	return nil
}

// Prune deletes entries older than maxAge and returns the removed count.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("transcache: prune: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}

// HashFile computes the cache key for an audio file's content.
func HashFile(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("transcache: open for hashing: %w", err)
	}
	defer file.Close()
	digest := sha256.New()
	if _, err := io.Copy(digest, file); err != nil {
		return "", fmt.Errorf("transcache: hash: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

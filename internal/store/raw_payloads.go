package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// ArchivePayload stores a gzip-compressed upstream response. Identical
// payloads are kept once; the returned bool reports whether a row was written.
func (s *Store) ArchivePayload(ctx context.Context, source, endpoint, key string, payload []byte) (bool, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return false, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return false, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_payloads (fetched_at, source, endpoint, payload_key, payload_compressed, payload_hash, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(payload_hash) DO NOTHING
	`, time.Now().UTC(), source, endpoint, nullString(key), buf.Bytes(), hex.EncodeToString(hash[:]))
	if err != nil {
		return false, fmt.Errorf("insert raw payload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LatestPayload returns the most recent decompressed payload for a source.
func (s *Store) LatestPayload(ctx context.Context, source string) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload_compressed FROM raw_payloads
		WHERE source = ? ORDER BY id DESC LIMIT 1
	`, source).Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// PayloadCounts returns the number of archived payloads per source.
func (s *Store) PayloadCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM raw_payloads GROUP BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// CleanupOldPayloads deletes archived payloads older than retention.
func (s *Store) CleanupOldPayloads(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM raw_payloads WHERE fetched_at < ?`, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

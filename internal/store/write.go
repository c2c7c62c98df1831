package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Put inserts one document of the named source shape and returns its row id.
func (s *Store) Put(ctx context.Context, shape string, doc map[string]any) (int64, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", shape, err)
	}
	id, err := insert(ctx, s.db, shape, body)
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", shape, err)
	}
	return id, nil
}

// Load inserts every document in data, which holds either one JSON object
// or an array of them, in a single transaction. Documents are inserted in
// the order they appear. Returns the number of documents inserted.
func (s *Store) Load(ctx context.Context, shape string, data []byte) (int, error) {
	docs, err := splitDocuments(data)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", shape, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("load %s: begin: %w", shape, err)
	}
	defer tx.Rollback()

	for i, body := range docs {
		if _, err := insert(ctx, tx, shape, body); err != nil {
			return 0, fmt.Errorf("load %s: document %d: %w", shape, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("load %s: commit: %w", shape, err)
	}
	return len(docs), nil
}

// Clear deletes every document of the named shape and returns how many were
// removed.
func (s *Store) Clear(ctx context.Context, shape string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE shape = ?`, shape)
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", shape, err)
	}
	return res.RowsAffected()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, shape string, body []byte) (int64, error) {
	if strings.TrimSpace(shape) == "" {
		return 0, fmt.Errorf("shape name is required")
	}
	res, err := db.ExecContext(ctx, `INSERT INTO documents (shape, body) VALUES (?, ?)`, shape, string(body))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// splitDocuments returns the compacted JSON of each object in data.
func splitDocuments(data []byte) ([][]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no documents")
	}

	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
	} else {
		raws = []json.RawMessage{data}
	}

	out := make([][]byte, 0, len(raws))
	for i, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			return nil, fmt.Errorf("document %d is not an object", i)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}

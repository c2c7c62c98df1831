package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Documents returns every document of the named shape in insertion order,
// decoded with numbers kept as json.Number.
//
// Returns an empty slice (not nil) if the shape has no documents.
func (s *Store) Documents(ctx context.Context, shape string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body
		FROM documents
		WHERE shape = ?
		ORDER BY id ASC
	`, shape)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Document retrieves a single document by row id.
// Returns sql.ErrNoRows if not found.
func (s *Store) Document(ctx context.Context, id int64) (map[string]any, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if err != nil {
		return nil, err
	}
	return decodeBody(id, body)
}

// ShapeCount is the number of stored documents of one shape.
type ShapeCount struct {
	Shape string `json:"shape" yaml:"shape"`
	Count int    `json:"count" yaml:"count"`
}

// Shapes lists the stored shapes with their document counts, ordered by
// name.
func (s *Store) Shapes(ctx context.Context) ([]ShapeCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT shape, COUNT(*)
		FROM documents
		GROUP BY shape
		ORDER BY shape COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query shapes: %w", err)
	}
	defer rows.Close()

	counts := []ShapeCount{}
	for rows.Next() {
		var c ShapeCount
		if err := rows.Scan(&c.Shape, &c.Count); err != nil {
			return nil, fmt.Errorf("scan shape count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shapes: %w", err)
	}
	return counts, nil
}

// scanDocuments reads (id, body) rows.
func scanDocuments(rows *sql.Rows) ([]map[string]any, error) {
	docs := []map[string]any{}
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decodeBody(id, body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func decodeBody(id int64, body string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document %d: %w", id, err)
	}
	return doc, nil
}

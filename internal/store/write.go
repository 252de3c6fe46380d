package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/pkg/grid"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Update applies a cell payload to one row inside a transaction.
// Top-level keys name columns. A map value for a JSON column is merged
// into the stored object; any other value replaces the column.
func (s *Store) Update(ctx context.Context, resource, id string, payload map[string]any) error {
	res, err := s.resource(resource)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	keys := slices.Sorted(maps.Keys(payload))
	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)

	for _, key := range keys {
		f, ok := res.Field(key)
		if !ok || key == grid.IDField {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, resource, key)
		}

		value, err := s.encodeUpdate(ctx, tx, res, f, id, payload[key])
		if err != nil {
			return err
		}

		args = append(args, value)
		sets = append(sets, quoteIdent(f.Name)+" = "+s.dialect.Placeholder(len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		quoteIdent(res.Table), strings.Join(sets, ", "), s.dialect.Placeholder(len(args)))

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", resource, id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}

	s.logger.Debug("updated row", "resource", resource, "id", id, "keys", keys)
	s.broadcast(ctx, resource, id)
	return nil
}

func (s *Store) encodeUpdate(ctx context.Context, tx execer, res Resource, f Field, id string, value any) (any, error) {
	if f.Kind != FieldJSON {
		if _, nested := value.(map[string]any); nested {
			return nil, fmt.Errorf("%w: %s.%s is not a JSON column", ErrUnknownColumn, res.Name, f.Name)
		}
		return encodeScalar(f, value), nil
	}

	patch, ok := value.(map[string]any)
	if !ok && value != nil {
		return nil, fmt.Errorf("%w: %s.%s expects an object", ErrUnknownColumn, res.Name, f.Name)
	}

	current, err := s.loadJSON(ctx, tx, res, f, id)
	if err != nil {
		return nil, err
	}

	merged := map[string]any{}
	if patch != nil {
		merged = mergeObjects(current, patch)
	}
	return encodeJSON(merged)
}

func (s *Store) loadJSON(ctx context.Context, tx execer, res Resource, f Field, id string) (map[string]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s",
		quoteIdent(f.Name), quoteIdent(res.Table), s.dialect.Placeholder(1))

	var raw any
	if err := tx.QueryRowContext(ctx, query, id).Scan(&raw); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, res.Name, id)
		}
		return nil, fmt.Errorf("failed to read %s.%s: %w", res.Name, f.Name, err)
	}

	v, err := decodeValue(f, raw)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// mergeObjects returns dst with patch merged in recursively. dst is not
// modified.
func mergeObjects(dst, patch map[string]any) map[string]any {
	out := maps.Clone(dst)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range patch {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := out[k].(map[string]any); ok {
				out[k] = mergeObjects(cur, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func encodeJSON(obj map[string]any) (string, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return string(b), nil
}

func encodeScalar(f Field, v any) any {
	switch f.Kind {
	case FieldBool:
		return grid.NormalizeBool(v)
	case FieldText:
		return grid.Text(v)
	default:
		return v
	}
}

// Insert adds a row and returns its id. A missing id is generated.
// Missing columns take their schema defaults.
func (s *Store) Insert(ctx context.Context, resource string, row grid.Row) (string, error) {
	id, err := s.insert(ctx, s.db, resource, row)
	if err != nil {
		return "", err
	}
	s.broadcast(ctx, resource, id)
	return id, nil
}

// Seed inserts fixtures for several resources in one transaction and
// returns the number of inserted rows.
func (s *Store) Seed(ctx context.Context, fixtures map[string][]grid.Row) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n := 0
	for _, resource := range slices.Sorted(maps.Keys(fixtures)) {
		for _, row := range fixtures[resource] {
			if _, err := s.insert(ctx, tx, resource, row); err != nil {
				return 0, err
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}

	s.logger.Debug("seeded rows", "rows", n)
	s.notifier.Broadcast(notifier.Change{Resource: notifier.All, Origin: notifier.OriginFrom(ctx)})
	return n, nil
}

func (s *Store) insert(ctx context.Context, ex execer, resource string, row grid.Row) (string, error) {
	res, err := s.resource(resource)
	if err != nil {
		return "", err
	}

	id := row.ID()
	if _, ok := row[grid.IDField]; !ok || id == "" {
		id = uuid.NewString()
	}

	cols := []string{quoteIdent(grid.IDField)}
	marks := []string{s.dialect.Placeholder(1)}
	args := []any{id}

	for _, key := range slices.Sorted(maps.Keys(row)) {
		if key == grid.IDField {
			continue
		}
		f, ok := res.Field(key)
		if !ok {
			return "", fmt.Errorf("%w: %s.%s", ErrUnknownColumn, resource, key)
		}

		value := row[key]
		if f.Kind == FieldJSON {
			obj, _ := value.(map[string]any)
			if value, err = encodeJSON(obj); err != nil {
				return "", err
			}
		} else {
			value = encodeScalar(f, value)
		}

		args = append(args, value)
		cols = append(cols, quoteIdent(f.Name))
		marks = append(marks, s.dialect.Placeholder(len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(res.Table), strings.Join(cols, ", "), strings.Join(marks, ", "))

	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", resource, err)
	}
	return id, nil
}

// Persister adapts the store to the grid's persistence interface for one
// resource.
func (s *Store) Persister(resource string) grid.Persister {
	return grid.PersistFunc(func(ctx context.Context, rowID string, payload map[string]any) error {
		return s.Update(ctx, resource, rowID, payload)
	})
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ifilter/ifadmin/pkg/grid"
)

// DefaultPageSize is used when PageRequest.Limit is not positive.
const DefaultPageSize = 25

// PageRequest selects one page of a resource.
type PageRequest struct {
	Offset int
	Limit  int
	Sort   grid.SortState
}

// Page is one page of rows.
type Page struct {
	Rows    []grid.Row
	HasMore bool
}

// Page loads rows ordered by req.Sort (or the resource default) with id as
// tie breaker. A dotted sort key sorts by its top-level column.
func (s *Store) Page(ctx context.Context, resource string, req PageRequest) (Page, error) {
	res, err := s.resource(resource)
	if err != nil {
		return Page{}, err
	}

	order, err := orderBy(res, req.Sort)
	if err != nil {
		return Page{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	offset := max(req.Offset, 0)

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %s OFFSET %s",
		selectList(res), quoteIdent(res.Table), order,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	rows, err := s.db.QueryContext(ctx, query, limit+1, offset)
	if err != nil {
		return Page{}, fmt.Errorf("failed to query %s: %w", resource, err)
	}
	defer rows.Close()

	page := Page{Rows: make([]grid.Row, 0, limit)}
	for rows.Next() {
		row, err := scanRow(res, rows)
		if err != nil {
			return Page{}, err
		}
		if len(page.Rows) == limit {
			page.HasMore = true
			break
		}
		page.Rows = append(page.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("failed to read %s: %w", resource, err)
	}
	return page, nil
}

// Get loads one row.
func (s *Store) Get(ctx context.Context, resource, id string) (grid.Row, error) {
	res, err := s.resource(resource)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s",
		selectList(res), quoteIdent(res.Table), s.dialect.Placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", resource, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resource, err)
		}
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
	}
	return scanRow(res, rows)
}

// Count returns the number of rows in a resource.
func (s *Store) Count(ctx context.Context, resource string) (int, error) {
	res, err := s.resource(resource)
	if err != nil {
		return 0, err
	}

	var n int
	query := "SELECT COUNT(*) FROM " + quoteIdent(res.Table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", resource, err)
	}
	return n, nil
}

func selectList(res Resource) string {
	cols := make([]string, len(res.Fields))
	for i, f := range res.Fields {
		cols[i] = quoteIdent(f.Name)
	}
	return strings.Join(cols, ", ")
}

func orderBy(res Resource, sort grid.SortState) (string, error) {
	column := sort.Column
	if column == "" {
		column = res.DefaultSort
	}
	if top, _, nested := strings.Cut(column, "."); nested {
		column = top
	}

	f, ok := res.Field(column)
	if !ok || f.Kind == FieldJSON {
		return "", fmt.Errorf("%w: cannot sort %s by %q", ErrUnknownColumn, res.Name, sort.Column)
	}

	dir := "ASC"
	if sort.Direction == grid.Desc {
		dir = "DESC"
	}

	order := quoteIdent(f.Name) + " " + dir
	if f.Name != grid.IDField {
		order += ", " + quoteIdent(grid.IDField) + " " + dir
	}
	return order, nil
}

func scanRow(res Resource, rows *sql.Rows) (grid.Row, error) {
	values := make([]any, len(res.Fields))
	dest := make([]any, len(res.Fields))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", res.Name, err)
	}

	row := make(grid.Row, len(res.Fields))
	for i, f := range res.Fields {
		v, err := decodeValue(f, values[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", res.Name, f.Name, err)
		}
		row[f.Name] = v
	}
	return row, nil
}

// decodeValue normalizes driver values at the load boundary so the grid
// only ever sees string, int64, float64, bool and map[string]any.
func decodeValue(f Field, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch f.Kind {
	case FieldBool:
		switch b := v.(type) {
		case int64:
			return b != 0, nil
		case string:
			return grid.NormalizeBool(b) || b == "1", nil
		default:
			return grid.NormalizeBool(b), nil
		}
	case FieldJSON:
		s, _ := v.(string)
		obj := map[string]any{}
		if s == "" {
			return obj, nil
		}
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return obj, nil
	case FieldText:
		switch t := v.(type) {
		case nil:
			return "", nil
		case time.Time:
			return t.UTC().Format(time.RFC3339), nil
		}
		return v, nil
	default:
		return v, nil
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound)
}

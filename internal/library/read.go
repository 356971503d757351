package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/queryir"
	"github.com/roach88/tagrules/internal/querysql"
)

// ErrNotFound is returned by Get when no row has the requested id.
var ErrNotFound = errors.New("not found")

// Fetch yields a fresh Model for every row of entity matching pred, in sort
// order.
//
// The query runs when iteration starts. Rows are read into memory before
// the first yield, so the caller may use the library (for example Store)
// while iterating.
func (l *Library) Fetch(ctx context.Context, entity ir.EntityType, pred queryir.Predicate, sort Sort) iter.Seq2[*Model, error] {
	return func(yield func(*Model, error) bool) {
		models, err := l.load(ctx, entity, pred, sort)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, m := range models {
			if !queryir.Match(pred, m) {
				continue
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

// Get returns the row of entity with the given id.
// Returns ErrNotFound if there is none.
func (l *Library) Get(ctx context.Context, entity ir.EntityType, id int64) (*Model, error) {
	pred := queryir.NumericRange{Field: "id", Min: queryir.Int64(id), Max: queryir.Int64(id)}
	for m, err := range l.Fetch(ctx, entity, pred, Sort{}) {
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("get %s %d: %w", entity, id, ErrNotFound)
}

// Count returns the number of rows of entity.
func (l *Library) Count(ctx context.Context, entity ir.EntityType) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+querysql.TableName(entity)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", entity, err)
	}
	return n, nil
}

// load reads candidate rows and their attributes. Candidates are a superset
// of the matching rows; Fetch filters them.
func (l *Library) load(ctx context.Context, entity ir.EntityType, pred queryir.Predicate, sort Sort) ([]*Model, error) {
	c := querysql.NewSQLCompiler(entity)

	query, params, err := c.CompileSelect(pred, sort)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", entity, err)
	}

	models, err := l.loadRows(ctx, entity, query, params)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", entity, err)
	}
	if len(models) == 0 {
		return models, nil
	}

	where, whereParams, _, err := c.CompileFilter(pred)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", entity, err)
	}
	if err := l.loadAttributes(ctx, entity, models, where, whereParams); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", entity, err)
	}

	for _, m := range models {
		m.markStored()
	}
	return models, nil
}

func (l *Library) loadRows(ctx context.Context, entity ir.EntityType, query string, params []any) ([]*Model, error) {
	rows, err := l.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	fields := ir.Fields(entity)
	models := []*Model{}
	for rows.Next() {
		m, err := scanModel(rows, entity, fields)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return models, nil
}

// scanModel reads one row of fixed columns. NULL columns are left absent.
func scanModel(rows *sql.Rows, entity ir.EntityType, fields []ir.FieldDef) (*Model, error) {
	dest := make([]any, len(fields))
	for i, f := range fields {
		if f.Kind == ir.KindInt {
			dest[i] = new(sql.NullInt64)
		} else {
			dest[i] = new(sql.NullString)
		}
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	m := NewModel(entity)
	for i, f := range fields {
		switch v := dest[i].(type) {
		case *sql.NullInt64:
			if v.Valid {
				m.values[f.Name] = ir.IRInt(v.Int64)
			}
		case *sql.NullString:
			if v.Valid {
				m.values[f.Name] = ir.IRString(v.String)
			}
		}
	}

	id, ok := m.values["id"].(ir.IRInt)
	if !ok {
		return nil, fmt.Errorf("scan row: missing id")
	}
	m.id = int64(id)
	return m, nil
}

// loadAttributes attaches flexible attributes to models. The attribute
// query reuses the row filter so it reads only attributes of candidate rows.
func (l *Library) loadAttributes(ctx context.Context, entity ir.EntityType, models []*Model, where string, params []any) error {
	byID := make(map[int64]*Model, len(models))
	for _, m := range models {
		byID[m.id] = m
	}

	query := fmt.Sprintf(
		"SELECT entity_id, key, value FROM %s WHERE entity_id IN (SELECT id FROM %s WHERE %s) ORDER BY entity_id ASC, key COLLATE BINARY ASC",
		attributeTable(entity), querysql.TableName(entity), where)

	rows, err := l.db.QueryContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			key, value string
		)
		if err := rows.Scan(&id, &key, &value); err != nil {
			return fmt.Errorf("scan attribute: %w", err)
		}
		if m, ok := byID[id]; ok {
			m.values[key] = ir.IRString(value)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate attributes: %w", err)
	}
	return nil
}

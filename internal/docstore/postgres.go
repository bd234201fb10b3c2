package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the LISTEN/NOTIFY channel the documents trigger
// publishes changed collection names on.
const NotifyChannel = "docstore_changes"

// PostgresStore implements Store on a JSONB documents table. Live queries
// are re-read whenever the table trigger reports a change to their
// collection; Listen must be running for subscriptions to see changes.
type PostgresStore struct {
	pool  *pgxpool.Pool
	rules *Rules
	hub   *hub

	retryInterval time.Duration
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, rules *Rules) *PostgresStore {
	return &PostgresStore{
		pool:          pool,
		rules:         rules,
		hub:           newHub(),
		retryInterval: 2 * time.Second,
	}
}

// Stats reports subscription counters.
func (s *PostgresStore) Stats() Stats {
	return s.hub.stats()
}

// Listen relays change notifications to subscriptions. It blocks until ctx
// is cancelled, reconnecting after connection failures.
func (s *PostgresStore) Listen(ctx context.Context) {
	slog.Info("docstore listener started", "channel", NotifyChannel)
	for {
		err := s.listen(ctx)
		if ctx.Err() != nil {
			slog.Info("docstore listener stopped")
			return
		}
		slog.Warn("docstore listener: connection lost", "error", err, "retry", s.retryInterval.String())

		select {
		case <-ctx.Done():
			slog.Info("docstore listener stopped")
			return
		case <-time.After(s.retryInterval):
		}
	}
}

func (s *PostgresStore) listen(ctx context.Context) error {
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("listening on %s: %w", NotifyChannel, err)
	}

	// Changes made while disconnected were never announced.
	s.hub.wakeAll()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}
		s.hub.wake(n.Payload)
	}
}

func (s *PostgresStore) Subscribe(ctx context.Context, actor Actor, q Query, onSnapshot func(Snapshot), onError func(error)) func() {
	fetch := func(ctx context.Context) (Snapshot, error) {
		if err := q.Validate(); err != nil {
			return Snapshot{}, opErr(OpList, q.Path(), err)
		}
		if err := s.rules.Check(actor, Request{Op: OpList, Collection: q.Collection, Query: &q}); err != nil {
			return Snapshot{}, err
		}
		docs, err := s.list(ctx, q)
		if err != nil {
			return Snapshot{}, opErr(OpList, q.Path(), err)
		}
		return Snapshot{Docs: docs, ReadAt: time.Now()}, nil
	}
	return s.hub.subscribe(ctx, q.Collection, fetch, onSnapshot, onError)
}

func (s *PostgresStore) list(ctx context.Context, q Query) ([]Document, error) {
	sql, args, err := buildListSQL(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// buildListSQL translates q into a query over the documents table. Each
// filter is a JSONB containment test, which the GIN index serves, narrowed
// by an exact comparison of the field's value. Containment alone would let
// an array or object filter match a superset.
func buildListSQL(q Query) (string, []any, error) {
	var b strings.Builder
	args := []any{q.Collection}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	b.WriteString("SELECT id::text, data, created_at, updated_at FROM documents WHERE collection = $1")

	for _, f := range q.Filters {
		var values []any
		switch f.Op {
		case Equal:
			values = []any{f.Value}
		case In:
			values, _ = normalize(f.Value).([]any)
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", f.Op)
		}
		if len(values) == 0 {
			b.WriteString(" AND FALSE")
			continue
		}

		contains := make([]string, 0, len(values))
		exact := make([]string, 0, len(values))
		for _, v := range values {
			c, err := containment(f.Field, v)
			if err != nil {
				return "", nil, err
			}
			contains = append(contains, "data @> "+next(c)+"::jsonb")
		}
		field := next(f.Field)
		for _, v := range values {
			e, err := json.Marshal(v)
			if err != nil {
				return "", nil, fmt.Errorf("encoding filter %q: %w", f.Field, err)
			}
			exact = append(exact, next(string(e))+"::jsonb")
		}

		if len(contains) == 1 {
			b.WriteString(" AND " + contains[0])
		} else {
			b.WriteString(" AND (" + strings.Join(contains, " OR ") + ")")
		}
		b.WriteString(" AND data->" + field + "::text IN (" + strings.Join(exact, ", ") + ")")
	}

	if q.OrderField != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		b.WriteString(" ORDER BY data->" + next(q.OrderField) + "::text " + dir + ", created_at ASC, id ASC")
	} else {
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	}

	if q.Max > 0 {
		b.WriteString(" LIMIT " + next(q.Max))
	}

	return b.String(), args, nil
}

func containment(field string, value any) (string, error) {
	b, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return "", fmt.Errorf("encoding filter %q: %w", field, err)
	}
	return string(b), nil
}

func (s *PostgresStore) Add(ctx context.Context, actor Actor, collection string, data Fields) (string, error) {
	if !ValidCollection(collection) {
		return "", opErr(OpCreate, collection, ErrInvalidPath)
	}
	if err := s.rules.Check(actor, Request{Op: OpCreate, Collection: collection, Data: data}); err != nil {
		return "", err
	}

	payload, err := json.Marshal(normalizeFields(data))
	if err != nil {
		return "", opErr(OpCreate, collection, fmt.Errorf("encoding document: %w", err))
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents (collection, data) VALUES ($1, $2::jsonb) RETURNING id::text`,
		collection, string(payload),
	).Scan(&id)
	if err != nil {
		return "", opErr(OpCreate, collection, fmt.Errorf("inserting document: %w", err))
	}
	return id, nil
}

func (s *PostgresStore) Set(ctx context.Context, actor Actor, path string, data Fields) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return opErr(OpCreate, path, err)
	}
	docID, err := uuid.Parse(id)
	if err != nil {
		return opErr(OpCreate, path, ErrInvalidPath)
	}
	if err := s.rules.Check(actor, Request{Op: OpCreate, Collection: collection, DocID: id, Data: data}); err != nil {
		return err
	}

	payload, err := json.Marshal(normalizeFields(data))
	if err != nil {
		return opErr(OpCreate, path, fmt.Errorf("encoding document: %w", err))
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, docID, string(payload),
	)
	if err != nil {
		return opErr(OpCreate, path, fmt.Errorf("writing document: %w", err))
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, actor Actor, path string, partial Fields) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return opErr(OpUpdate, path, err)
	}
	docID, err := uuid.Parse(id)
	if err != nil {
		return opErr(OpUpdate, path, ErrNotFound)
	}

	existing, err := s.get(ctx, collection, docID)
	if err != nil {
		return opErr(OpUpdate, path, err)
	}
	req := Request{Op: OpUpdate, Collection: collection, DocID: id, Data: existing.Data, Patch: partial}
	if err := s.rules.Check(actor, req); err != nil {
		return err
	}

	payload, err := json.Marshal(normalizeFields(partial))
	if err != nil {
		return opErr(OpUpdate, path, fmt.Errorf("encoding patch: %w", err))
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, docID, string(payload),
	)
	if err != nil {
		return opErr(OpUpdate, path, fmt.Errorf("updating document: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return opErr(OpUpdate, path, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, actor Actor, path string) (*Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, opErr(OpGet, path, err)
	}

	var doc *Document
	if docID, perr := uuid.Parse(id); perr == nil {
		doc, err = s.get(ctx, collection, docID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, opErr(OpGet, path, err)
		}
	}

	req := Request{Op: OpGet, Collection: collection, DocID: id}
	if doc != nil {
		req.Data = doc.Data
	}
	if err := s.rules.Check(actor, req); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, opErr(OpGet, path, ErrNotFound)
	}
	return doc, nil
}

func (s *PostgresStore) get(ctx context.Context, collection string, id uuid.UUID) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		d   Document
		raw []byte
	)
	if err := row.Scan(&d.ID, &raw, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if err := json.Unmarshal(raw, &d.Data); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", d.ID, err)
	}
	if d.Data == nil {
		d.Data = Fields{}
	}
	return &d, nil
}

var _ Store = (*PostgresStore)(nil)

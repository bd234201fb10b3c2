package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Google Cloud Firestore. The server
// SDK bypasses Firestore security rules, so the same Rules used by the
// other backends are applied before every call.
type FirestoreStore struct {
	client *firestore.Client
	rules  *Rules

	opened atomic.Int64
	active atomic.Int64
}

// NewFirestoreStore connects to the Firestore project. credentialsFile may
// be empty to use application default credentials.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string, rules *Rules) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client, rules: rules}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Stats reports subscription counters.
func (s *FirestoreStore) Stats() Stats {
	return Stats{Opened: s.opened.Load(), Active: s.active.Load()}
}

func (s *FirestoreStore) Subscribe(ctx context.Context, actor Actor, q Query, onSnapshot func(Snapshot), onError func(error)) func() {
	ctx, stop := context.WithCancel(ctx)
	done := make(chan struct{})

	s.opened.Add(1)
	s.active.Add(1)

	go func() {
		defer close(done)
		defer s.active.Add(-1)

		if err := q.Validate(); err != nil {
			onError(opErr(OpList, q.Path(), err))
			return
		}
		if err := s.rules.Check(actor, Request{Op: OpList, Collection: q.Collection, Query: &q}); err != nil {
			onError(err)
			return
		}

		it := s.query(q).Snapshots(ctx)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				onError(opErr(OpList, q.Path(), fromStatus(err)))
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				onError(opErr(OpList, q.Path(), fromStatus(err)))
				return
			}
			docs := make([]Document, len(snaps))
			for i, ds := range snaps {
				docs[i] = fromSnapshot(ds)
			}
			onSnapshot(Snapshot{Docs: docs, ReadAt: qs.ReadTime})
		}
	}()

	var once sync.Once
	return func() {
		once.Do(stop)
		<-done
	}
}

func (s *FirestoreStore) query(q Query) firestore.Query {
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), f.Value)
	}
	if q.OrderField != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderField, dir)
	}
	if q.Max > 0 {
		fq = fq.Limit(q.Max)
	}
	return fq
}

func (s *FirestoreStore) Add(ctx context.Context, actor Actor, collection string, data Fields) (string, error) {
	if !ValidCollection(collection) {
		return "", opErr(OpCreate, collection, ErrInvalidPath)
	}
	if err := s.rules.Check(actor, Request{Op: OpCreate, Collection: collection, Data: data}); err != nil {
		return "", err
	}
	ref, _, err := s.client.Collection(collection).Add(ctx, map[string]any(normalizeFields(data)))
	if err != nil {
		return "", opErr(OpCreate, collection, fromStatus(err))
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Set(ctx context.Context, actor Actor, path string, data Fields) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return opErr(OpCreate, path, err)
	}
	if err := s.rules.Check(actor, Request{Op: OpCreate, Collection: collection, DocID: id, Data: data}); err != nil {
		return err
	}
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, map[string]any(normalizeFields(data))); err != nil {
		return opErr(OpCreate, path, fromStatus(err))
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, actor Actor, path string, partial Fields) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return opErr(OpUpdate, path, err)
	}
	ref := s.client.Collection(collection).Doc(id)

	snap, err := ref.Get(ctx)
	if err != nil {
		return opErr(OpUpdate, path, fromStatus(err))
	}
	existing := fromSnapshot(snap)
	req := Request{Op: OpUpdate, Collection: collection, DocID: id, Data: existing.Data, Patch: partial}
	if err := s.rules.Check(actor, req); err != nil {
		return err
	}

	updates := make([]firestore.Update, 0, len(partial))
	for k, v := range normalizeFields(partial) {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	if len(updates) == 0 {
		return nil
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		return opErr(OpUpdate, path, fromStatus(err))
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, actor Actor, path string) (*Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, opErr(OpGet, path, err)
	}

	req := Request{Op: OpGet, Collection: collection, DocID: id}
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	switch {
	case err == nil:
		doc := fromSnapshot(snap)
		req.Data = doc.Data
		if err := s.rules.Check(actor, req); err != nil {
			return nil, err
		}
		return &doc, nil
	case status.Code(err) == codes.NotFound:
		if err := s.rules.Check(actor, req); err != nil {
			return nil, err
		}
		return nil, opErr(OpGet, path, ErrNotFound)
	default:
		return nil, opErr(OpGet, path, fromStatus(err))
	}
}

func fromSnapshot(ds *firestore.DocumentSnapshot) Document {
	return Document{
		ID:        ds.Ref.ID,
		Data:      normalizeFields(ds.Data()),
		CreatedAt: ds.CreateTime,
		UpdatedAt: ds.UpdateTime,
	}
}

// fromStatus maps gRPC status codes onto the package sentinels.
func fromStatus(err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("firestore: %w", err)
}

var _ Store = (*FirestoreStore)(nil)

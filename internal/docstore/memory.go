package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It applies the same access rules and
// change notification semantics as the database-backed stores and is used
// for local development and tests.
type MemoryStore struct {
	rules *Rules
	hub   *hub
	now   func() time.Time

	mu   sync.RWMutex
	seq  int64
	docs map[string]map[string]*memDoc
}

type memDoc struct {
	seq int64
	doc Document
}

// NewMemoryStore creates an empty MemoryStore guarded by rules.
func NewMemoryStore(rules *Rules) *MemoryStore {
	return &MemoryStore{
		rules: rules,
		hub:   newHub(),
		now:   time.Now,
		docs:  make(map[string]map[string]*memDoc),
	}
}

// Stats reports subscription counters.
func (s *MemoryStore) Stats() Stats {
	return s.hub.stats()
}

func (s *MemoryStore) Subscribe(ctx context.Context, actor Actor, q Query, onSnapshot func(Snapshot), onError func(error)) func() {
	fetch := func(context.Context) (Snapshot, error) {
		if err := q.Validate(); err != nil {
			return Snapshot{}, opErr(OpList, q.Path(), err)
		}
		if err := s.rules.Check(actor, Request{Op: OpList, Collection: q.Collection, Query: &q}); err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Docs: s.list(q), ReadAt: s.now()}, nil
	}
	return s.hub.subscribe(ctx, q.Collection, fetch, onSnapshot, onError)
}

func (s *MemoryStore) list(q Query) []Document {
	s.mu.RLock()
	matched := make([]*memDoc, 0, len(s.docs[q.Collection]))
	for _, d := range s.docs[q.Collection] {
		if q.Matches(d.doc.Data) {
			matched = append(matched, d)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if q.OrderField != "" {
			a, b := matched[i].doc.Data[q.OrderField], matched[j].doc.Data[q.OrderField]
			if c := compareValues(a, b); c != 0 {
				if q.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return matched[i].seq < matched[j].seq
	})
	if q.Max > 0 && len(matched) > q.Max {
		matched = matched[:q.Max]
	}

	docs := make([]Document, len(matched))
	for i, d := range matched {
		docs[i] = copyDocument(d.doc)
	}
	return docs
}

func (s *MemoryStore) Add(_ context.Context, actor Actor, collection string, data Fields) (string, error) {
	if !ValidCollection(collection) {
		return "", opErr(OpCreate, collection, ErrInvalidPath)
	}
	if err := s.rules.Check(actor, Request{Op: OpCreate, Collection: collection, Data: data}); err != nil {
		return "", err
	}
	id := uuid.New().String()
	s.put(collection, id, data)
	return id, nil
}

func (s *MemoryStore) Set(_ context.Context, actor Actor, path string, data Fields) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return opErr(OpCreate, path, err)
	}
	if err := s.rules.Check(actor, Request{Op: OpCreate, Collection: collection, DocID: id, Data: data}); err != nil {
		return err
	}
	s.put(collection, id, data)
	return nil
}

func (s *MemoryStore) put(collection, id string, data Fields) {
	now := s.now()
	s.mu.Lock()
	set, ok := s.docs[collection]
	if !ok {
		set = make(map[string]*memDoc)
		s.docs[collection] = set
	}
	if existing, ok := set[id]; ok {
		existing.doc.Data = normalizeFields(data)
		existing.doc.UpdatedAt = now
	} else {
		s.seq++
		set[id] = &memDoc{
			seq: s.seq,
			doc: Document{ID: id, Data: normalizeFields(data), CreatedAt: now, UpdatedAt: now},
		}
	}
	s.mu.Unlock()
	s.hub.wake(collection)
}

func (s *MemoryStore) Update(_ context.Context, actor Actor, path string, partial Fields) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return opErr(OpUpdate, path, err)
	}

	s.mu.Lock()
	d, ok := s.docs[collection][id]
	if !ok {
		s.mu.Unlock()
		return opErr(OpUpdate, path, ErrNotFound)
	}
	req := Request{Op: OpUpdate, Collection: collection, DocID: id, Data: copyFields(d.doc.Data), Patch: partial}
	if err := s.rules.Check(actor, req); err != nil {
		s.mu.Unlock()
		return err
	}
	for k, v := range normalizeFields(partial) {
		d.doc.Data[k] = v
	}
	d.doc.UpdatedAt = s.now()
	s.mu.Unlock()

	s.hub.wake(collection)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, actor Actor, path string) (*Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, opErr(OpGet, path, err)
	}

	s.mu.RLock()
	d, ok := s.docs[collection][id]
	var doc Document
	if ok {
		doc = copyDocument(d.doc)
	}
	s.mu.RUnlock()

	if !ok {
		// Rules see an empty document so a denied actor cannot probe existence.
		if err := s.rules.Check(actor, Request{Op: OpGet, Collection: collection, DocID: id}); err != nil {
			return nil, err
		}
		return nil, opErr(OpGet, path, ErrNotFound)
	}
	if err := s.rules.Check(actor, Request{Op: OpGet, Collection: collection, DocID: id, Data: doc.Data}); err != nil {
		return nil, err
	}
	return &doc, nil
}

func normalizeFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if k == "id" {
			continue
		}
		out[k] = normalize(v)
	}
	return out
}

func copyFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func copyDocument(d Document) Document {
	d.Data = copyFields(d.Data)
	return d
}

// compareValues orders JSON-decoded values: numbers and strings by value,
// anything else by its encoding.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	ak, bk := valueKey(a), valueKey(b)
	switch {
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	case ak < bk:
		return -1
	case ak > bk:
		return 1
	}
	return 0
}

var _ Store = (*MemoryStore)(nil)


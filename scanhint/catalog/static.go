package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/nonibytes/scanhint/scanhint/types"
)

// Static is an in-memory Catalog. The zero value is not usable; build one
// with NewStatic. It is safe for concurrent use.
type Static struct {
	mu   sync.RWMutex
	rels map[types.Oid]*Relation
	typs map[types.Oid]Type
}

var _ Catalog = (*Static)(nil)

// NewStatic returns a catalog holding the built-in types plus everything in
// the given snapshots. Later entries replace earlier ones with the same oid.
func NewStatic(snaps ...Snapshot) *Static {
	s := &Static{
		rels: map[types.Oid]*Relation{},
		typs: map[types.Oid]Type{},
	}
	for _, t := range Builtins() {
		s.typs[t.Oid] = t
	}
	for _, snap := range snaps {
		s.Load(snap)
	}
	return s
}

// Load merges a snapshot into the catalog.
func (s *Static) Load(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range snap.Types {
		s.typs[t.Oid] = t
	}
	for i := range snap.Relations {
		r := snap.Relations[i]
		r.Columns = append([]Column(nil), r.Columns...)
		s.rels[r.Oid] = &r
	}
}

// AddRelation registers a table with columns numbered from 1 in order.
func (s *Static) AddRelation(oid types.Oid, name string, cols ...Column) {
	r := Relation{Oid: oid, Name: name}
	for i, c := range cols {
		if c.AttNum == types.InvalidAttrNumber {
			c.AttNum = types.AttrNumber(i + 1)
		}
		r.Columns = append(r.Columns, c)
	}
	s.Load(Snapshot{Relations: []Relation{r}})
}

func (s *Static) AttNum(_ context.Context, rel types.Oid, name string) (types.AttrNumber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rels[rel]
	if !ok {
		return types.InvalidAttrNumber, nil
	}
	for _, c := range r.Columns {
		if c.Name == name {
			return c.AttNum, nil
		}
	}
	return types.InvalidAttrNumber, nil
}

func (s *Static) AttType(_ context.Context, rel types.Oid, attno types.AttrNumber) (types.Oid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rels[rel]
	if !ok {
		return types.InvalidOid, nil
	}
	for _, c := range r.Columns {
		if c.AttNum == attno {
			return c.Type, nil
		}
	}
	return types.InvalidOid, nil
}

func (s *Static) ElementType(_ context.Context, typ types.Oid) (types.Oid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typs[typ].Elem, nil
}

func (s *Static) Operators(_ context.Context, typ types.Oid) (Operators, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.typs[typ]
	return Operators{Lt: t.Lt, Gt: t.Gt}, nil
}

// Snapshot copies the catalog's relations and non-builtin types.
func (s *Static) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	builtin := map[types.Oid]bool{}
	for _, t := range Builtins() {
		builtin[t.Oid] = s.typs[t.Oid] == t
	}
	var out Snapshot
	for _, r := range s.rels {
		c := *r
		c.Columns = append([]Column(nil), r.Columns...)
		out.Relations = append(out.Relations, c)
	}
	for oid, t := range s.typs {
		if !builtin[oid] {
			out.Types = append(out.Types, t)
		}
	}
	sort.Slice(out.Relations, func(i, j int) bool { return out.Relations[i].Oid < out.Relations[j].Oid })
	sort.Slice(out.Types, func(i, j int) bool { return out.Types[i].Oid < out.Types[j].Oid })
	return out
}

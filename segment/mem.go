package segment

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/aggo/model"
)

// MemDoc is one document of an in-memory segment.
type MemDoc struct {
	// Type is the document type ("product", "comment", ...).
	Type string
	// Numeric holds multi-valued numeric fields.
	Numeric map[string][]float64
	// Geo holds multi-valued geo fields.
	Geo map[string][]model.GeoPoint
	// Ords holds join-key ordinals per join field.
	Ords map[string]model.Ordinal
	// Deleted marks the document as not live.
	Deleted bool
}

// MemSegment is an in-memory Reader for tests and examples.
type MemSegment struct {
	id   model.SegmentID
	docs []MemDoc
	live *roaring.Bitmap // nil when nothing is deleted
}

// NewMemSegment builds a segment from a document slice. Document IDs are
// the slice indices.
func NewMemSegment(id model.SegmentID, docs []MemDoc) *MemSegment {
	s := &MemSegment{id: id, docs: docs}

	var live *roaring.Bitmap
	for i, d := range docs {
		if d.Deleted {
			if live == nil {
				live = roaring.New()
				live.AddRange(0, uint64(len(docs)))
			}
			live.Remove(uint32(i))
		}
	}
	s.live = live
	return s
}

// ID implements Reader.
func (s *MemSegment) ID() model.SegmentID { return s.id }

// MaxDoc implements Reader.
func (s *MemSegment) MaxDoc() uint32 { return uint32(len(s.docs)) }

// LiveDocs implements Reader.
func (s *MemSegment) LiveDocs() Bits {
	if s.live == nil {
		return nil
	}
	return s.live
}

// NumericValues implements Reader.
func (s *MemSegment) NumericValues(field string) (NumericValues, bool) {
	if !s.hasNumericField(field) {
		return nil, false
	}
	return &memNumericValues{seg: s, field: field}, true
}

// GeoPointValues implements Reader.
func (s *MemSegment) GeoPointValues(field string) (GeoPointValues, bool) {
	if !s.hasGeoField(field) {
		return nil, false
	}
	return &memGeoValues{seg: s, field: field}, true
}

// OrdinalValues implements Reader.
func (s *MemSegment) OrdinalValues(field string) (OrdinalValues, bool) {
	if !s.hasOrdField(field) {
		return nil, false
	}
	return &memOrdinalValues{seg: s, field: field}, true
}

func (s *MemSegment) hasNumericField(field string) bool {
	for _, d := range s.docs {
		if _, ok := d.Numeric[field]; ok {
			return true
		}
	}
	return false
}

func (s *MemSegment) hasGeoField(field string) bool {
	for _, d := range s.docs {
		if _, ok := d.Geo[field]; ok {
			return true
		}
	}
	return false
}

func (s *MemSegment) hasOrdField(field string) bool {
	for _, d := range s.docs {
		if _, ok := d.Ords[field]; ok {
			return true
		}
	}
	return false
}

type memNumericValues struct {
	seg    *MemSegment
	field  string
	values []float64
}

func (v *memNumericValues) SetDocument(doc uint32) int {
	v.values = v.seg.docs[doc].Numeric[v.field]
	return len(v.values)
}

func (v *memNumericValues) Value(i int) float64 { return v.values[i] }

type memGeoValues struct {
	seg    *MemSegment
	field  string
	values []model.GeoPoint
}

func (v *memGeoValues) SetDocument(doc uint32) int {
	v.values = v.seg.docs[doc].Geo[v.field]
	return len(v.values)
}

func (v *memGeoValues) Value(i int) model.GeoPoint { return v.values[i] }

type memOrdinalValues struct {
	seg   *MemSegment
	field string
}

func (v *memOrdinalValues) Ord(doc uint32) model.Ordinal {
	ord, ok := v.seg.docs[doc].Ords[v.field]
	if !ok {
		return model.NoOrdinal
	}
	return ord
}

// MemIndex is an in-memory Index with type mappings.
type MemIndex struct {
	segs  []*MemSegment
	joins map[string]ParentJoin // child type -> join
}

// NewMemIndex builds an index over the given segments.
func NewMemIndex(segs ...*MemSegment) *MemIndex {
	return &MemIndex{segs: segs, joins: make(map[string]ParentJoin)}
}

// WithParentJoin registers an active parent reference for a child type.
func (idx *MemIndex) WithParentJoin(childType string, join ParentJoin) *MemIndex {
	idx.joins[childType] = join
	return idx
}

// Segments implements Index.
func (idx *MemIndex) Segments() []Reader {
	out := make([]Reader, len(idx.segs))
	for i, s := range idx.segs {
		out[i] = s
	}
	return out
}

// Mappings implements Index.
func (idx *MemIndex) Mappings() Mappings { return idx }

// ParentJoin implements Mappings.
func (idx *MemIndex) ParentJoin(childType string) (ParentJoin, bool) {
	j, ok := idx.joins[childType]
	return j, ok
}

// TypeQuery implements Mappings.
func (idx *MemIndex) TypeQuery(docType string) Query {
	return typeQuery{docType: docType}
}

// MatchAll matches every document slot of a segment.
type MatchAll struct{}

// Evaluate implements Query.
func (MatchAll) Evaluate(r Reader) (*roaring.Bitmap, error) {
	bm := roaring.New()
	bm.AddRange(0, uint64(r.MaxDoc()))
	return bm, nil
}

type typeQuery struct {
	docType string
}

func (q typeQuery) Evaluate(r Reader) (*roaring.Bitmap, error) {
	seg, ok := r.(*MemSegment)
	if !ok {
		return nil, fmt.Errorf("segment: type query requires a MemSegment, got %T", r)
	}
	bm := roaring.New()
	for i, d := range seg.docs {
		if d.Type == q.docType {
			bm.Add(uint32(i))
		}
	}
	return bm, nil
}

// QueryFunc adapts a function to the Query interface.
type QueryFunc func(r Reader) (*roaring.Bitmap, error)

// Evaluate implements Query.
func (f QueryFunc) Evaluate(r Reader) (*roaring.Bitmap, error) { return f(r) }

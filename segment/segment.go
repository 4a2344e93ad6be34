package segment

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/aggo/model"
)

// Bits is a read-only bit test over segment-local document IDs.
type Bits interface {
	// Contains reports whether doc is present in the set.
	Contains(doc uint32) bool
}

// DocIterator yields segment-local document IDs in ascending order.
// *roaring.Bitmap iterators satisfy this interface.
type DocIterator interface {
	HasNext() bool
	Next() uint32
}

// NumericValues is a per-segment cursor over a multi-valued numeric field.
type NumericValues interface {
	// SetDocument positions the cursor on doc and returns the number of
	// values the document carries for this field (>= 0).
	SetDocument(doc uint32) int
	// Value returns the i-th value for the current document.
	Value(i int) float64
}

// GeoPointValues is a per-segment cursor over a multi-valued geo field.
type GeoPointValues interface {
	SetDocument(doc uint32) int
	Value(i int) model.GeoPoint
}

// OrdinalValues resolves a document to its join-key ordinal.
// Ordinals are issued by the join-key dictionary and are stable for the
// duration of one collection pass across all segments.
type OrdinalValues interface {
	// Ord returns the join-key ordinal for doc, or model.NoOrdinal if the
	// document carries no join key.
	Ord(doc uint32) model.Ordinal
}

// Reader is one index segment as seen by the aggregation engine.
type Reader interface {
	ID() model.SegmentID

	// MaxDoc returns the number of document slots in the segment.
	MaxDoc() uint32

	// LiveDocs returns the live-document filter, or nil when every
	// document is live.
	LiveDocs() Bits

	// NumericValues returns the reader for a numeric field, or false when
	// the field is unmapped in this segment.
	NumericValues(field string) (NumericValues, bool)

	// GeoPointValues returns the reader for a geo field, or false when
	// the field is unmapped.
	GeoPointValues(field string) (GeoPointValues, bool)

	// OrdinalValues returns the join-key ordinal reader for a field, or
	// false when the field is unmapped.
	OrdinalValues(field string) (OrdinalValues, bool)
}

// Query is an opaque document-matching predicate, resolved per segment.
type Query interface {
	// Evaluate returns the matching documents of this segment, ignoring
	// deletions; callers intersect with LiveDocs as needed.
	Evaluate(r Reader) (*roaring.Bitmap, error)
}

// ParentJoin describes an active parent-reference field.
type ParentJoin struct {
	// ParentType is the document type the join points at.
	ParentType string
	// Field is the join-key field carrying the parent reference.
	Field string
}

// Mappings exposes the document type configuration of the index.
type Mappings interface {
	// ParentJoin resolves the parent join for a child document type.
	// The second result is false when the child type is unmapped or has
	// no active parent reference.
	ParentJoin(childType string) (ParentJoin, bool)

	// TypeQuery returns a query matching all documents of the given type.
	TypeQuery(docType string) Query
}

// Index is the collection of segments one aggregation pass runs over.
type Index interface {
	Segments() []Reader
	Mappings() Mappings
}

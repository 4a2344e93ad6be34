// Package segment defines the contracts the aggregation engine consumes
// from the surrounding search platform.
//
// The engine never owns index storage: per segment it is handed a
// live-document filter, a document count, and value readers keyed by
// field name; globally it is handed the set of segments and the document
// type mappings. Query evaluation is equally opaque - a Query resolves to
// a bitmap of matching documents for one segment, and the engine does not
// care how.
//
// MemSegment and MemIndex are complete in-memory implementations used by
// tests and examples.
package segment

// Package join provides the parent/child aggregation. Child documents
// are attributed to the bucket owning their parent in two phases: the
// parent pass records which bucket each join key belongs to, a replay
// pass then dispatches the children once the whole index has been
// collected.
package join

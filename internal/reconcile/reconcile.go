package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"exportal/internal/blobstore"
)

// Cardinality says how many references a slot holds.
type Cardinality string

const (
	CardinalitySingle Cardinality = "single"
	CardinalityMulti  Cardinality = "multi"
)

// Slot is one named attachment field on an entity.
type Slot struct {
	Name        string
	Cardinality Cardinality
	Naming      blobstore.Naming
	// FixedName is the stored base name for deterministic slots.
	FixedName string
}

// Upload is one pending file from the current request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Intent is the parsed description of one create or update request.
// It lives for the duration of the request and is never persisted.
type Intent struct {
	// Fields carries the entity's scalar fields opaquely; the
	// repository adapter knows their concrete type.
	Fields   any
	Uploads  map[string][]Upload
	Retained map[string][]string
	// ExpectedVersion, when positive, must match the entity's current
	// version or the update is rejected before any blob is written.
	ExpectedVersion int64
}

// RefSet maps slot name to the ordered blob references the slot holds.
type RefSet map[string][]string

// Clone returns a deep copy of the set.
func (rs RefSet) Clone() RefSet {
	if rs == nil {
		return nil
	}
	out := make(RefSet, len(rs))
	for slot, refs := range rs {
		out[slot] = append([]string(nil), refs...)
	}
	return out
}

// Flatten returns every reference across every slot.
func (rs RefSet) Flatten() []string {
	var out []string
	for _, refs := range rs {
		out = append(out, refs...)
	}
	return out
}

// Record is the committed view of an entity's id, row version, and
// reference set. Scalar fields stay inside the repository adapter.
type Record struct {
	ID      string
	Version int64
	Refs    RefSet
}

// Repository is the persistence surface the reconciler writes through.
// It is the source of truth for committed reference sets.
type Repository interface {
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, fields any, refs RefSet) (Record, error)
	// Update replaces the slot references wholesale, conditioned on the
	// row version. A stale version yields ErrConflict.
	Update(ctx context.Context, id string, version int64, fields any, refs RefSet) (Record, error)
	// Delete removes the row and returns the references it held,
	// observed atomically with the delete.
	Delete(ctx context.Context, id string) (RefSet, error)
}

var (
	// ErrNotFound reports that the entity id does not exist. No side
	// effects have occurred.
	ErrNotFound = errors.New("entity not found")
	// ErrConflict reports a lost optimistic version check; the caller
	// may retry against fresh state.
	ErrConflict = errors.New("entity version conflict")
)

// ValidationError rejects a structurally invalid intent before any
// blob is written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StorageError reports a failed blob write. Blobs uploaded earlier in
// the same mutation have been rolled back best-effort.
type StorageError struct {
	Slot string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storing upload for slot %s: %v", e.Slot, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PersistError reports a failed repository commit. Newly uploaded
// blobs have been rolled back best-effort; it unwraps to ErrConflict
// when the commit lost an optimistic version check.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("committing entity: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

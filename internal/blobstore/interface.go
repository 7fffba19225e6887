package blobstore

import (
	"context"
	"io"
)

// Naming selects how Put derives the stored name for an upload.
type Naming string

const (
	// NamingRandom mints a collision-resistant name per upload.
	NamingRandom Naming = "random"
	// NamingDeterministic reuses a fixed name, overwriting any previous
	// object. Used by singleton slots where replacement is the intent.
	NamingDeterministic Naming = "deterministic"
)

// Pending is one uploaded file that has not been persisted yet.
type Pending struct {
	Filename string
	Content  io.Reader
}

// PutOptions directs where and under what name a pending upload lands.
type PutOptions struct {
	// Prefix is the slot-derived subdirectory, e.g. "products/images".
	Prefix string
	Naming Naming
	// Name is the fixed base name for NamingDeterministic.
	Name string
}

// BlobStore is the byte-storage abstraction used by the reconciler.
// Put must be atomic from the caller's perspective: on error no
// partial object is left under the returned reference. Delete treats
// a missing object as success.
type BlobStore interface {
	Put(ctx context.Context, pending Pending, opts PutOptions) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}

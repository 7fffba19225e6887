package reconcile

import (
	"context"
	"log/slog"
	"path"

	"exportal/internal/blobstore"
)

// Reconciler turns a mutation intent plus current repository state into
// a committed reference set, keeping disk and row consistent under
// failure. Uploads are written before the row commit and old blobs are
// released only after it, so a committed row never points at a missing
// blob; the trade is an occasional orphan file if the process dies
// between commit and cleanup.
type Reconciler struct {
	entity string
	slots  []Slot
	byName map[string]Slot
	repo   Repository
	blobs  blobstore.BlobStore
	logger *slog.Logger
}

// New builds a reconciler for one entity type. entity becomes the blob
// path prefix, e.g. "certificates".
func New(entity string, slots []Slot, repo Repository, blobs blobstore.BlobStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]Slot, len(slots))
	for _, slot := range slots {
		byName[slot.Name] = slot
	}
	return &Reconciler{
		entity: entity,
		slots:  slots,
		byName: byName,
		repo:   repo,
		blobs:  blobs,
		logger: logger.With("component", "reconcile", "entity", entity),
	}
}

// Create persists all uploads, then creates the row. A failed upload or
// a failed create rolls back every blob written for this intent.
func (r *Reconciler) Create(ctx context.Context, intent Intent) (Record, error) {
	if err := r.validateIntent(intent); err != nil {
		return Record{}, err
	}

	final, newRefs, err := r.putUploads(ctx, intent, nil)
	if err != nil {
		r.cleanupRefs(ctx, newRefs, nil)
		return Record{}, err
	}

	record, err := r.repo.Create(ctx, intent.Fields, final)
	if err != nil {
		r.cleanupRefs(ctx, newRefs, nil)
		return Record{}, &PersistError{Err: err}
	}
	return record, nil
}

// Update loads the current record, resolves the final reference set per
// slot, writes new uploads, commits the row under the loaded version,
// and only then releases orphaned blobs.
func (r *Reconciler) Update(ctx context.Context, id string, intent Intent) (Record, error) {
	if err := r.validateIntent(intent); err != nil {
		return Record{}, err
	}

	current, err := r.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if intent.ExpectedVersion > 0 && intent.ExpectedVersion != current.Version {
		return Record{}, ErrConflict
	}

	final, newRefs, err := r.putUploads(ctx, intent, current.Refs)
	if err != nil {
		// The row still references current.Refs, so anything in it must
		// survive the rollback (deterministic slots reuse the same ref).
		r.cleanupRefs(ctx, newRefs, current.Refs)
		return Record{}, err
	}

	orphans := orphanedRefs(current.Refs, final)

	record, err := r.repo.Update(ctx, id, current.Version, intent.Fields, final)
	if err != nil {
		r.cleanupRefs(ctx, newRefs, current.Refs)
		return Record{}, &PersistError{Err: err}
	}

	// Row committed; the old references are now truly orphaned.
	r.cleanupRefs(ctx, orphans, final)
	return record, nil
}

// Delete removes the row, then best-effort releases every blob it held.
func (r *Reconciler) Delete(ctx context.Context, id string) error {
	refs, err := r.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	r.cleanupRefs(ctx, refs.Flatten(), nil)
	return nil
}

func (r *Reconciler) validateIntent(intent Intent) error {
	for name, uploads := range intent.Uploads {
		slot, ok := r.byName[name]
		if !ok {
			return validationf("unknown attachment slot: %s", name)
		}
		if slot.Cardinality == CardinalitySingle && len(uploads) > 1 {
			return validationf("slot %s accepts a single file", name)
		}
	}
	for name := range intent.Retained {
		if _, ok := r.byName[name]; !ok {
			return validationf("unknown attachment slot: %s", name)
		}
	}
	return nil
}

// putUploads resolves the final reference set and persists new uploads.
// current is nil for create. It returns the refs written during this
// call so the caller can roll them back.
func (r *Reconciler) putUploads(ctx context.Context, intent Intent, current RefSet) (RefSet, []string, error) {
	final := make(RefSet, len(r.slots))
	var newRefs []string

	for _, slot := range r.slots {
		uploads := intent.Uploads[slot.Name]
		existing := current[slot.Name]

		switch slot.Cardinality {
		case CardinalitySingle:
			if len(uploads) == 0 {
				// Single slots change only on explicit replacement.
				if len(existing) > 0 {
					final[slot.Name] = append([]string(nil), existing...)
				}
				continue
			}
			ref, err := r.put(ctx, slot, uploads[0])
			if err != nil {
				return nil, newRefs, &StorageError{Slot: slot.Name, Err: err}
			}
			newRefs = append(newRefs, ref)
			final[slot.Name] = []string{ref}

		case CardinalityMulti:
			kept := intersectOrdered(existing, intent.Retained[slot.Name])
			refs := append([]string(nil), kept...)
			for _, upload := range uploads {
				ref, err := r.put(ctx, slot, upload)
				if err != nil {
					return nil, newRefs, &StorageError{Slot: slot.Name, Err: err}
				}
				newRefs = append(newRefs, ref)
				refs = append(refs, ref)
			}
			final[slot.Name] = refs
		}
	}
	return final, newRefs, nil
}

func (r *Reconciler) put(ctx context.Context, slot Slot, upload Upload) (string, error) {
	return r.blobs.Put(ctx, blobstore.Pending{Filename: upload.Filename, Content: upload.Content}, blobstore.PutOptions{
		Prefix: path.Join(r.entity, slot.Name),
		Naming: slot.Naming,
		Name:   slot.FixedName,
	})
}

// cleanupRefs best-effort deletes refs, skipping anything present in
// keep. Failures are logged and never surface: a blob delete must not
// undo an outcome that already committed.
func (r *Reconciler) cleanupRefs(ctx context.Context, refs []string, keep RefSet) {
	if len(refs) == 0 {
		return
	}
	live := map[string]struct{}{}
	for _, ref := range keep.Flatten() {
		live[ref] = struct{}{}
	}
	for _, ref := range refs {
		if _, ok := live[ref]; ok {
			continue
		}
		if err := r.blobs.Delete(ctx, ref); err != nil {
			r.logger.Warn("blob cleanup failed", "ref", ref, "error", err)
		}
	}
}

// orphanedRefs lists refs held before the update that the final set no
// longer contains.
func orphanedRefs(current, final RefSet) []string {
	live := map[string]struct{}{}
	for _, ref := range final.Flatten() {
		live[ref] = struct{}{}
	}
	var orphans []string
	for _, ref := range current.Flatten() {
		if _, ok := live[ref]; !ok {
			orphans = append(orphans, ref)
		}
	}
	return orphans
}

// intersectOrdered keeps current's relative order and drops any
// retained value that current does not actually hold, so a client
// cannot adopt a reference belonging to another entity.
func intersectOrdered(current, retained []string) []string {
	if len(current) == 0 || len(retained) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(retained))
	for _, ref := range retained {
		want[ref] = struct{}{}
	}
	var kept []string
	for _, ref := range current {
		if _, ok := want[ref]; ok {
			kept = append(kept, ref)
		}
	}
	return kept
}

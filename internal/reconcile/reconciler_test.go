package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"exportal/internal/blobstore"
)

type fakeBlobStore struct {
	objects   map[string][]byte
	seq       int
	failAtPut int // fail the Nth Put (1-based), 0 disables
	puts      int
	deleted   []string
	failRefs  map[string]bool // refs whose Delete fails
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, failRefs: map[string]bool{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, pending blobstore.Pending, opts blobstore.PutOptions) (string, error) {
	f.puts++
	if f.failAtPut > 0 && f.puts == f.failAtPut {
		return "", fmt.Errorf("disk full")
	}
	data, err := io.ReadAll(pending.Content)
	if err != nil {
		return "", err
	}
	var ref string
	if opts.Naming == blobstore.NamingDeterministic {
		ref = opts.Prefix + "/" + opts.Name
	} else {
		f.seq++
		ref = fmt.Sprintf("%s/%d-%s", opts.Prefix, f.seq, pending.Filename)
	}
	f.objects[ref] = data
	return ref, nil
}

func (f *fakeBlobStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	data, ok := f.objects[ref]
	if !ok {
		return nil, fmt.Errorf("no such blob: %s", ref)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, ref string) error {
	f.deleted = append(f.deleted, ref)
	if f.failRefs[ref] {
		return fmt.Errorf("unlink %s: permission denied", ref)
	}
	delete(f.objects, ref)
	return nil
}

func (f *fakeBlobStore) URL(ref string) string { return "/files/" + ref }

func (f *fakeBlobStore) exists(ref string) bool {
	_, ok := f.objects[ref]
	return ok
}

type fakeRecord struct {
	fields  string
	version int64
	refs    RefSet
}

type fakeRepo struct {
	records    map[string]*fakeRecord
	nextID     int
	updates    int
	failUpdate error
	failCreate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[string]*fakeRecord{}}
}

func (f *fakeRepo) seed(id string, refs RefSet) {
	f.records[id] = &fakeRecord{version: 1, refs: refs.Clone()}
}

func (f *fakeRepo) Get(ctx context.Context, id string) (Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return Record{ID: id, Version: rec.version, Refs: rec.refs.Clone()}, nil
}

func (f *fakeRepo) Create(ctx context.Context, fields any, refs RefSet) (Record, error) {
	if f.failCreate != nil {
		return Record{}, f.failCreate
	}
	f.nextID++
	id := fmt.Sprintf("rec-%d", f.nextID)
	f.records[id] = &fakeRecord{fields: fmt.Sprint(fields), version: 1, refs: refs.Clone()}
	return Record{ID: id, Version: 1, Refs: refs.Clone()}, nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, version int64, fields any, refs RefSet) (Record, error) {
	f.updates++
	if f.failUpdate != nil {
		return Record{}, f.failUpdate
	}
	rec, ok := f.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.version != version {
		return Record{}, ErrConflict
	}
	rec.fields = fmt.Sprint(fields)
	rec.version++
	rec.refs = refs.Clone()
	return Record{ID: id, Version: rec.version, Refs: rec.refs.Clone()}, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) (RefSet, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(f.records, id)
	return rec.refs, nil
}

var certificateSlots = []Slot{
	{Name: "src", Cardinality: CardinalitySingle, Naming: blobstore.NamingRandom},
	{Name: "logo", Cardinality: CardinalitySingle, Naming: blobstore.NamingRandom},
}

var productSlots = []Slot{
	{Name: "images", Cardinality: CardinalityMulti, Naming: blobstore.NamingRandom},
}

func upload(name, body string) Upload {
	return Upload{Filename: name, Content: strings.NewReader(body)}
}

// assertNoDangling checks the no-dangling-reference invariant: every
// committed reference resolves to a stored blob.
func assertNoDangling(t *testing.T, repo *fakeRepo, blobs *fakeBlobStore) {
	t.Helper()
	for id, rec := range repo.records {
		for _, ref := range rec.refs.Flatten() {
			if !blobs.exists(ref) {
				t.Fatalf("record %s references missing blob %s", id, ref)
			}
		}
	}
}

func TestUpdateSingleSlotReplaceKeepsSiblingSlot(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	blobs.objects["certificates/src/a.pdf"] = []byte("pdf")
	blobs.objects["certificates/logo/logoA.png"] = []byte("old logo")
	repo.seed("cert-1", RefSet{
		"src":  {"certificates/src/a.pdf"},
		"logo": {"certificates/logo/logoA.png"},
	})
	rec := New("certificates", certificateSlots, repo, blobs, nil)

	record, err := rec.Update(context.Background(), "cert-1", Intent{
		Uploads: map[string][]Upload{"logo": {upload("logoB.png", "new logo")}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := record.Refs["src"]; len(got) != 1 || got[0] != "certificates/src/a.pdf" {
		t.Fatalf("src slot must be unchanged, got %v", got)
	}
	logo := record.Refs["logo"]
	if len(logo) != 1 || logo[0] == "certificates/logo/logoA.png" {
		t.Fatalf("logo slot must hold a fresh reference, got %v", logo)
	}
	if blobs.exists("certificates/logo/logoA.png") {
		t.Fatal("old logo must be deleted after commit")
	}
	if !blobs.exists("certificates/src/a.pdf") {
		t.Fatal("untouched slot blob must survive")
	}
	assertNoDangling(t, repo, blobs)
}

func TestUpdateMultiSlotKeptThenNewOrdering(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	for _, ref := range []string{"products/images/i1.jpg", "products/images/i2.jpg", "products/images/i3.jpg"} {
		blobs.objects[ref] = []byte("img")
	}
	repo.seed("prod-7", RefSet{"images": {"products/images/i1.jpg", "products/images/i2.jpg", "products/images/i3.jpg"}})
	rec := New("products", productSlots, repo, blobs, nil)

	record, err := rec.Update(context.Background(), "prod-7", Intent{
		Uploads:  map[string][]Upload{"images": {upload("i4.jpg", "new")}},
		Retained: map[string][]string{"images": {"products/images/i3.jpg", "products/images/i1.jpg"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	images := record.Refs["images"]
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %v", images)
	}
	// Kept refs first in their original relative order, then the new upload.
	if images[0] != "products/images/i1.jpg" || images[1] != "products/images/i3.jpg" {
		t.Fatalf("kept order not preserved: %v", images)
	}
	if !strings.Contains(images[2], "i4.jpg") {
		t.Fatalf("new upload must come last: %v", images)
	}
	if blobs.exists("products/images/i2.jpg") {
		t.Fatal("dropped reference must be deleted after commit")
	}
	assertNoDangling(t, repo, blobs)
}

func TestUpdateIgnoresForeignRetainedReference(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	blobs.objects["products/images/mine.jpg"] = []byte("mine")
	blobs.objects["products/images/other.jpg"] = []byte("other")
	repo.seed("prod-1", RefSet{"images": {"products/images/mine.jpg"}})
	repo.seed("prod-2", RefSet{"images": {"products/images/other.jpg"}})
	rec := New("products", productSlots, repo, blobs, nil)

	record, err := rec.Update(context.Background(), "prod-1", Intent{
		Retained: map[string][]string{"images": {"products/images/mine.jpg", "products/images/other.jpg"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := record.Refs["images"]; len(got) != 1 || got[0] != "products/images/mine.jpg" {
		t.Fatalf("forged reference must be dropped, got %v", got)
	}
	if got := repo.records["prod-2"].refs["images"]; len(got) != 1 || got[0] != "products/images/other.jpg" {
		t.Fatalf("foreign entity must be unaffected, got %v", got)
	}
	if !blobs.exists("products/images/other.jpg") {
		t.Fatal("foreign blob must not be deleted")
	}
}

func TestUpdateRollsBackOnUploadFailure(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	repo.seed("prod-1", RefSet{"images": nil})
	blobs.failAtPut = 2
	rec := New("products", productSlots, repo, blobs, nil)

	_, err := rec.Update(context.Background(), "prod-1", Intent{
		Uploads: map[string][]Upload{"images": {
			upload("a.jpg", "a"), upload("b.jpg", "b"), upload("c.jpg", "c"),
		}},
	})
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if repo.updates != 0 {
		t.Fatal("repository must not be called after an upload failure")
	}
	if len(blobs.objects) != 0 {
		t.Fatalf("first upload must be rolled back, still stored: %v", blobs.objects)
	}
}

func TestUpdateRollsBackNewBlobsOnCommitFailure(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	blobs.objects["products/images/orig.jpg"] = []byte("orig")
	repo.seed("prod-1", RefSet{"images": {"products/images/orig.jpg"}})
	repo.failUpdate = fmt.Errorf("constraint violation")
	rec := New("products", productSlots, repo, blobs, nil)

	_, err := rec.Update(context.Background(), "prod-1", Intent{
		Uploads:  map[string][]Upload{"images": {upload("a.jpg", "a"), upload("b.jpg", "b")}},
		Retained: map[string][]string{"images": {"products/images/orig.jpg"}},
	})
	var persistErr *PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError, got %v", err)
	}

	if got := repo.records["prod-1"].refs["images"]; len(got) != 1 || got[0] != "products/images/orig.jpg" {
		t.Fatalf("persisted refs must be unchanged, got %v", got)
	}
	if !blobs.exists("products/images/orig.jpg") {
		t.Fatal("pre-existing blob must survive a failed commit")
	}
	if len(blobs.objects) != 1 {
		t.Fatalf("new blobs must be rolled back, stored: %v", blobs.objects)
	}
	assertNoDangling(t, repo, blobs)
}

func TestUpdateConflictSurfacesAndCleansUp(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	repo.seed("prod-1", RefSet{"images": nil})
	repo.failUpdate = ErrConflict
	rec := New("products", productSlots, repo, blobs, nil)

	_, err := rec.Update(context.Background(), "prod-1", Intent{
		Uploads: map[string][]Upload{"images": {upload("a.jpg", "a")}},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict to unwrap, got %v", err)
	}
	if len(blobs.objects) != 0 {
		t.Fatalf("losing attempt's blobs must be cleaned up: %v", blobs.objects)
	}
}

func TestUpdateOrphanCleanupIsAbsorbed(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	blobs.objects["certificates/logo/old.png"] = []byte("old")
	blobs.failRefs["certificates/logo/old.png"] = true
	repo.seed("cert-1", RefSet{"logo": {"certificates/logo/old.png"}})
	rec := New("certificates", certificateSlots, repo, blobs, nil)

	record, err := rec.Update(context.Background(), "cert-1", Intent{
		Uploads: map[string][]Upload{"logo": {upload("new.png", "new")}},
	})
	if err != nil {
		t.Fatalf("a failed orphan delete must not fail the mutation: %v", err)
	}
	if len(record.Refs["logo"]) != 1 {
		t.Fatalf("unexpected refs: %v", record.Refs)
	}
	assertNoDangling(t, repo, blobs)
}

func TestUpdateDeterministicSlotSurvivesOverwriteOrphanPass(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	slots := []Slot{{Name: "image", Cardinality: CardinalitySingle, Naming: blobstore.NamingDeterministic, FixedName: "banner"}}
	blobs.objects["jumbotron/image/banner"] = []byte("old")
	repo.seed("jumbo", RefSet{"image": {"jumbotron/image/banner"}})
	rec := New("jumbotron", slots, repo, blobs, nil)

	record, err := rec.Update(context.Background(), "jumbo", Intent{
		Uploads: map[string][]Upload{"image": {upload("banner.jpg", "new")}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	// Old and new reference are the same fixed name; the orphan pass
	// must not delete the freshly written object.
	if !blobs.exists("jumbotron/image/banner") {
		t.Fatal("overwritten singleton blob must survive")
	}
	if got := record.Refs["image"]; len(got) != 1 || got[0] != "jumbotron/image/banner" {
		t.Fatalf("unexpected refs: %v", got)
	}
}

func TestCreateRollsBackAllUploadsOnCommitFailure(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	repo.failCreate = fmt.Errorf("constraint violation")
	rec := New("products", productSlots, repo, blobs, nil)

	_, err := rec.Create(context.Background(), Intent{
		Uploads: map[string][]Upload{"images": {upload("a.jpg", "a"), upload("b.jpg", "b")}},
	})
	var persistErr *PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError, got %v", err)
	}
	if len(blobs.objects) != 0 {
		t.Fatalf("all uploads must be rolled back: %v", blobs.objects)
	}
}

func TestDeleteReleasesEveryReference(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	blobs.objects["certificates/src/a.pdf"] = []byte("pdf")
	blobs.objects["certificates/logo/a.png"] = []byte("png")
	repo.seed("cert-1", RefSet{
		"src":  {"certificates/src/a.pdf"},
		"logo": {"certificates/logo/a.png"},
	})
	rec := New("certificates", certificateSlots, repo, blobs, nil)

	if err := rec.Delete(context.Background(), "cert-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(blobs.objects) != 0 {
		t.Fatalf("all blobs must be released: %v", blobs.objects)
	}
	if err := rec.Delete(context.Background(), "cert-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpdateNotFoundHasNoSideEffects(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	rec := New("products", productSlots, repo, blobs, nil)

	_, err := rec.Update(context.Background(), "prod-missing", Intent{
		Uploads: map[string][]Upload{"images": {upload("a.jpg", "a")}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if blobs.puts != 0 {
		t.Fatal("no blob may be written for a missing entity")
	}
}

func TestIntentValidationRejectsUnknownSlotBeforeAnyPut(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	repo.seed("prod-1", RefSet{})
	rec := New("products", productSlots, repo, blobs, nil)

	_, err := rec.Update(context.Background(), "prod-1", Intent{
		Uploads: map[string][]Upload{"thumbnails": {upload("a.jpg", "a")}},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if blobs.puts != 0 {
		t.Fatal("validation must run before any blob write")
	}

	_, err = rec.Update(context.Background(), "prod-1", Intent{
		Retained: map[string][]string{"thumbnails": {"x"}},
	})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for unknown retained slot, got %v", err)
	}
}

func TestSingleSlotRejectsMultipleUploads(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	rec := New("certificates", certificateSlots, repo, blobs, nil)

	_, err := rec.Create(context.Background(), Intent{
		Uploads: map[string][]Upload{"logo": {upload("a.png", "a"), upload("b.png", "b")}},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateStaleExpectedVersionRejectedBeforeUploads(t *testing.T) {
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	blobs.objects["certificates/src/a.pdf"] = []byte("pdf")
	repo.seed("cert-1", RefSet{"src": {"certificates/src/a.pdf"}})
	rec := New("certificates", certificateSlots, repo, blobs, nil)

	_, err := rec.Update(context.Background(), "cert-1", Intent{
		ExpectedVersion: 99,
		Uploads:         map[string][]Upload{"src": {upload("b.pdf", "new")}},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if blobs.puts != 0 {
		t.Fatal("stale version must be rejected before any blob write")
	}
	if repo.updates != 0 {
		t.Fatal("stale version must not reach the repository")
	}
	assertNoDangling(t, repo, blobs)
}

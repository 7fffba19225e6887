package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"exportal/internal/models"
	"exportal/internal/reconcile"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "exportal.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenReopensWithoutRerunningMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exportal.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	jb, err := st.GetJumbotron(context.Background())
	if err != nil {
		t.Fatalf("get jumbotron after reopen: %v", err)
	}
	if jb == nil {
		t.Fatal("expected seeded jumbotron row to survive reopen")
	}
}

func TestCertificateLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	fields := CertificateFields{Title: "ISO 22000", Issuer: "SGS", Year: 2023, Category: "quality"}
	refs := reconcile.RefSet{"src": {"certs/1-src.pdf"}, "logo": {"certs/1-logo.png"}}

	cert, err := st.CreateCertificate(ctx, fields, refs)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	if cert.Version != 1 {
		t.Fatalf("expected version 1, got %d", cert.Version)
	}
	if cert.SrcRef != "certs/1-src.pdf" || cert.LogoRef != "certs/1-logo.png" {
		t.Fatalf("unexpected refs: src=%q logo=%q", cert.SrcRef, cert.LogoRef)
	}

	t.Run("list filters by category", func(t *testing.T) {
		if _, err := st.CreateCertificate(ctx, CertificateFields{Title: "Halal", Issuer: "JAKIM", Year: 2022, Category: "compliance"}, nil); err != nil {
			t.Fatalf("create second certificate: %v", err)
		}
		got, err := st.ListCertificates(ctx, "quality")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].ID != cert.ID {
			t.Fatalf("expected only %s in quality, got %d entries", cert.ID, len(got))
		}
		all, err := st.ListCertificates(ctx, "")
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 certificates, got %d", len(all))
		}
	})

	t.Run("update bumps version and swaps refs", func(t *testing.T) {
		newRefs := reconcile.RefSet{"src": {"certs/2-src.pdf"}, "logo": {"certs/1-logo.png"}}
		updated, err := st.UpdateCertificate(ctx, cert.ID, cert.Version, CertificateFields{Title: "ISO 22000:2018", Issuer: "SGS", Year: 2023, Category: "quality"}, newRefs)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Version != cert.Version+1 {
			t.Fatalf("expected version %d, got %d", cert.Version+1, updated.Version)
		}
		if updated.SrcRef != "certs/2-src.pdf" {
			t.Fatalf("expected new src ref, got %q", updated.SrcRef)
		}
	})

	t.Run("stale version yields conflict", func(t *testing.T) {
		_, err := st.UpdateCertificate(ctx, cert.ID, cert.Version, CertificateFields{Title: "x", Issuer: "y", Year: 2020, Category: "quality"}, nil)
		if !errors.Is(err, reconcile.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("unknown id yields not found", func(t *testing.T) {
		_, err := st.UpdateCertificate(ctx, "ct-zzzzzz", 1, CertificateFields{Title: "x", Issuer: "y", Year: 2020, Category: "quality"}, nil)
		if !errors.Is(err, reconcile.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete returns released refs", func(t *testing.T) {
		released, err := st.DeleteCertificate(ctx, cert.ID)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		flat := released.Flatten()
		if len(flat) != 2 {
			t.Fatalf("expected 2 released refs, got %v", flat)
		}
		if _, err := st.DeleteCertificate(ctx, cert.ID); !errors.Is(err, reconcile.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestProductImageOrderAndPackaging(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	fields := ProductFields{
		Name:      "Robusta Coffee",
		Category:  "coffee",
		Origin:    "Vietnam",
		Packaging: []string{"60kg jute bag", "bulk container"},
	}
	refs := reconcile.RefSet{"images": {"products/a.jpg", "products/b.jpg", "products/c.jpg"}}

	created, err := st.CreateProduct(ctx, fields, refs)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if len(created.ImageRefs) != 3 || created.ImageRefs[0] != "products/a.jpg" || created.ImageRefs[2] != "products/c.jpg" {
		t.Fatalf("image order not preserved: %v", created.ImageRefs)
	}
	if len(created.Packaging) != 2 || created.Packaging[1] != "bulk container" {
		t.Fatalf("packaging not preserved: %v", created.Packaging)
	}

	reordered := reconcile.RefSet{"images": {"products/c.jpg", "products/a.jpg", "products/d.jpg"}}
	updated, err := st.UpdateProduct(ctx, created.ID, created.Version, fields, reordered)
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.ImageRefs[0] != "products/c.jpg" || updated.ImageRefs[2] != "products/d.jpg" {
		t.Fatalf("updated image order not preserved: %v", updated.ImageRefs)
	}

	released, err := st.DeleteProduct(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if len(released["images"]) != 3 {
		t.Fatalf("expected 3 released image refs, got %v", released["images"])
	}
}

func TestJumbotronSingleton(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	jb, err := st.GetJumbotron(ctx)
	if err != nil {
		t.Fatalf("get jumbotron: %v", err)
	}
	if jb == nil {
		t.Fatal("expected seeded jumbotron row")
	}
	if jb.Version != 1 {
		t.Fatalf("expected seeded version 1, got %d", jb.Version)
	}

	updated, err := st.UpdateJumbotron(ctx, jb.Version, JumbotronFields{Heading: "Premium Exports", Tagline: "From farm to port"}, reconcile.RefSet{"image": {"jumbotron/banner.jpg"}})
	if err != nil {
		t.Fatalf("update jumbotron: %v", err)
	}
	if updated.Heading != "Premium Exports" || updated.ImageRef != "jumbotron/banner.jpg" {
		t.Fatalf("unexpected jumbotron after update: %+v", updated)
	}
	if updated.Version != jb.Version+1 {
		t.Fatalf("expected version bump, got %d", updated.Version)
	}

	if _, err := st.UpdateJumbotron(ctx, jb.Version, JumbotronFields{Heading: "stale"}, nil); !errors.Is(err, reconcile.ErrConflict) {
		t.Fatalf("expected ErrConflict on stale version, got %v", err)
	}
}

func TestCarouselLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.CreateCarouselItem(ctx, CarouselFields{Heading: "Spices", Position: 2}, reconcile.RefSet{"image": {"carousel/spices.jpg"}})
	if err != nil {
		t.Fatalf("create slide: %v", err)
	}
	second, err := st.CreateCarouselItem(ctx, CarouselFields{Heading: "Grains", Position: 1}, nil)
	if err != nil {
		t.Fatalf("create second slide: %v", err)
	}

	items, err := st.ListCarouselItems(ctx)
	if err != nil {
		t.Fatalf("list slides: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
		t.Fatalf("expected position ordering, got %+v", items)
	}

	released, err := st.DeleteCarouselItem(ctx, first.ID)
	if err != nil {
		t.Fatalf("delete slide: %v", err)
	}
	if len(released["image"]) != 1 || released["image"][0] != "carousel/spices.jpg" {
		t.Fatalf("expected released image ref, got %v", released)
	}
}

func TestEnquiryWorkflow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateEnquiry(ctx, &models.Enquiry{
		Name:    "A Buyer",
		Email:   "buyer@example.com",
		Message: "Interested in cashew pricing.",
	})
	if err != nil {
		t.Fatalf("create enquiry: %v", err)
	}
	if created.Status != string(models.EnquiryStatusNew) {
		t.Fatalf("expected status new, got %q", created.Status)
	}

	handled, err := st.SetEnquiryStatus(ctx, created.ID, string(models.EnquiryStatusHandled))
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if handled == nil || handled.Status != string(models.EnquiryStatusHandled) {
		t.Fatalf("expected handled enquiry, got %+v", handled)
	}

	missing, err := st.SetEnquiryStatus(ctx, "eq-zzzzzz", string(models.EnquiryStatusHandled))
	if err != nil {
		t.Fatalf("set status on missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown enquiry")
	}

	newOnly, err := st.ListEnquiries(ctx, string(models.EnquiryStatusNew), 0, 0)
	if err != nil {
		t.Fatalf("list new: %v", err)
	}
	if len(newOnly) != 0 {
		t.Fatalf("expected no new enquiries, got %d", len(newOnly))
	}

	counts, err := st.CountEnquiriesByStatus(ctx)
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts[string(models.EnquiryStatusHandled)] != 1 {
		t.Fatalf("expected 1 handled enquiry, got %v", counts)
	}

	deleted, err := st.DeleteEnquiry(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete enquiry: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to report success")
	}
	deleted, err = st.DeleteEnquiry(ctx, created.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("expected second delete to report absence")
	}
}

func TestActivityLog(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i, action := range []string{models.ActivityActionCreate, models.ActivityActionUpdate, models.ActivityActionDelete} {
		err := st.AppendActivity(ctx, models.ActivityEntry{
			Actor:      "admin",
			Action:     action,
			EntityType: "certificate",
			EntityID:   "ct-abc123",
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append activity: %v", err)
		}
	}

	entries, err := st.ListActivity(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(entries))
	}
	if entries[0].Action != models.ActivityActionDelete {
		t.Fatalf("expected newest first, got %q", entries[0].Action)
	}
}

func TestLiveBlobRefsCoversAllSlots(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateCertificate(ctx, CertificateFields{Title: "c", Issuer: "i", Year: 2024, Category: "quality"}, reconcile.RefSet{"src": {"certs/s.pdf"}, "logo": {"certs/l.png"}}); err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	if _, err := st.CreateProduct(ctx, ProductFields{Name: "p", Category: "coffee"}, reconcile.RefSet{"images": {"products/x.jpg", "products/y.jpg"}}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := st.CreateCarouselItem(ctx, CarouselFields{Heading: "h", Position: 1}, reconcile.RefSet{"image": {"carousel/z.jpg"}}); err != nil {
		t.Fatalf("create slide: %v", err)
	}
	jb, err := st.GetJumbotron(ctx)
	if err != nil {
		t.Fatalf("get jumbotron: %v", err)
	}
	if _, err := st.UpdateJumbotron(ctx, jb.Version, JumbotronFields{Heading: "h"}, reconcile.RefSet{"image": {"jumbotron/banner.jpg"}}); err != nil {
		t.Fatalf("update jumbotron: %v", err)
	}

	live, err := st.LiveBlobRefs(ctx)
	if err != nil {
		t.Fatalf("live refs: %v", err)
	}
	for _, ref := range []string{"certs/s.pdf", "certs/l.png", "products/x.jpg", "products/y.jpg", "carousel/z.jpg", "jumbotron/banner.jpg"} {
		if _, ok := live[ref]; !ok {
			t.Fatalf("expected %q in live set, got %v", ref, live)
		}
	}
}

func TestAuthUsersAndSessions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user, err := st.CreateAdminUser(ctx, "  Admin ", "hash-1", now)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	if user.Username != "admin" {
		t.Fatalf("expected normalized username, got %q", user.Username)
	}

	count, err := st.CountEnabledUsers(ctx)
	if err != nil {
		t.Fatalf("count enabled: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 enabled user, got %d", count)
	}

	t.Run("session resolves and revokes", func(t *testing.T) {
		if err := st.CreateSession(ctx, user.ID, "tok-hash", now.Add(time.Hour), now); err != nil {
			t.Fatalf("create session: %v", err)
		}
		got, err := st.GetUserBySessionTokenHash(ctx, "tok-hash", now)
		if err != nil {
			t.Fatalf("resolve session: %v", err)
		}
		if got == nil || got.ID != user.ID {
			t.Fatalf("expected session to resolve to %s, got %+v", user.ID, got)
		}

		if err := st.RevokeSessionByTokenHash(ctx, "tok-hash", now); err != nil {
			t.Fatalf("revoke session: %v", err)
		}
		got, err = st.GetUserBySessionTokenHash(ctx, "tok-hash", now)
		if err != nil {
			t.Fatalf("resolve revoked session: %v", err)
		}
		if got != nil {
			t.Fatal("expected revoked session to stop resolving")
		}
	})

	t.Run("expired session does not resolve", func(t *testing.T) {
		if err := st.CreateSession(ctx, user.ID, "tok-old", now.Add(-time.Minute), now.Add(-time.Hour)); err != nil {
			t.Fatalf("create session: %v", err)
		}
		got, err := st.GetUserBySessionTokenHash(ctx, "tok-old", now)
		if err != nil {
			t.Fatalf("resolve expired session: %v", err)
		}
		if got != nil {
			t.Fatal("expected expired session to be rejected")
		}
	})

	t.Run("disabled user loses sessions", func(t *testing.T) {
		if err := st.CreateSession(ctx, user.ID, "tok-live", now.Add(time.Hour), now); err != nil {
			t.Fatalf("create session: %v", err)
		}
		if _, err := st.SetUserDisabled(ctx, user.Username, true, now); err != nil {
			t.Fatalf("disable user: %v", err)
		}
		got, err := st.GetUserBySessionTokenHash(ctx, "tok-live", now)
		if err != nil {
			t.Fatalf("resolve session of disabled user: %v", err)
		}
		if got != nil {
			t.Fatal("expected disabled user's session to be rejected")
		}
		count, err := st.CountEnabledUsers(ctx)
		if err != nil {
			t.Fatalf("count enabled: %v", err)
		}
		if count != 0 {
			t.Fatalf("expected 0 enabled users, got %d", count)
		}
	})

	t.Run("password change persists", func(t *testing.T) {
		changed, err := st.SetUserPasswordHash(ctx, user.Username, "hash-2", now)
		if err != nil {
			t.Fatalf("set password hash: %v", err)
		}
		if changed == nil || changed.PasswordHash != "hash-2" {
			t.Fatalf("expected new hash, got %+v", changed)
		}
	})
}

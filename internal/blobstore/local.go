package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const randomSuffixLength = 8

// LocalStore keeps blobs as plain files under a root directory.
// References are root-relative, forward-slash paths.
type LocalStore struct {
	root       string
	publicBase string
}

// NewLocalStore creates a local store rooted at root. publicBase is the
// URL path prefix stored files are served under.
func NewLocalStore(root, publicBase string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	publicBase = strings.TrimSpace(publicBase)
	if publicBase == "" {
		publicBase = "/files"
	}
	return &LocalStore{root: abs, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// Put streams the pending upload to a temp file and renames it into
// place. The rename is the commit point: a failed Put leaves nothing
// under the returned reference.
func (s *LocalStore) Put(ctx context.Context, pending Pending, opts PutOptions) (string, error) {
	if s == nil {
		return "", fmt.Errorf("blob store is not configured")
	}
	if pending.Content == nil {
		return "", fmt.Errorf("upload content is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref, err := s.refForPut(pending, opts)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, pending.Content); err != nil {
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return ref, nil
}

// Open returns a reader for a stored reference.
func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFromRef(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a stored object. Missing objects are treated as
// already deleted.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if s == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFromRef(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL maps a reference to its public serving path. Pure, no I/O.
func (s *LocalStore) URL(ref string) string {
	ref = strings.TrimLeft(strings.TrimSpace(ref), "/")
	if ref == "" {
		return ""
	}
	return s.publicBase + "/" + path.Clean(ref)
}

// SweepResult reports one orphan sweep over the store root.
type SweepResult struct {
	CandidateCount int   `json:"candidate_count"`
	DeletedCount   int   `json:"deleted_count"`
	FailedCount    int   `json:"failed_count"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
	DryRun         bool  `json:"dry_run"`
}

// Sweep walks the store and removes objects whose reference is not in
// live. With apply false it only counts. The tmp staging directory is
// skipped.
func (s *LocalStore) Sweep(ctx context.Context, live map[string]struct{}, apply bool) (SweepResult, error) {
	result := SweepResult{DryRun: !apply}
	if s == nil {
		return result, fmt.Errorf("blob store is not configured")
	}

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p == filepath.Join(s.root, "tmp") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		ref := filepath.ToSlash(rel)
		if _, ok := live[ref]; ok {
			return nil
		}

		result.CandidateCount++
		info, err := d.Info()
		if err != nil {
			result.FailedCount++
			return nil
		}
		if !apply {
			result.ReclaimedBytes += info.Size()
			return nil
		}
		if err := os.Remove(p); err != nil {
			result.FailedCount++
			return nil
		}
		result.DeletedCount++
		result.ReclaimedBytes += info.Size()
		return nil
	})
	return result, err
}

func (s *LocalStore) refForPut(pending Pending, opts PutOptions) (string, error) {
	prefix, err := normalizePrefix(opts.Prefix)
	if err != nil {
		return "", err
	}
	ext := sanitizedExt(pending.Filename)

	switch opts.Naming {
	case NamingDeterministic:
		name := sanitizeName(opts.Name)
		if name == "" {
			return "", fmt.Errorf("deterministic naming requires a name")
		}
		return path.Join(prefix, name+ext), nil
	case NamingRandom, "":
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomSuffixLength]
		name := fmt.Sprintf("%d-%s%s", time.Now().UTC().UnixNano(), suffix, ext)
		return path.Join(prefix, name), nil
	default:
		return "", fmt.Errorf("invalid naming policy: %s", opts.Naming)
	}
}

func normalizePrefix(prefix string) (string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "", fmt.Errorf("put prefix is required")
	}
	clean := path.Clean(prefix)
	if clean == "." || clean == "tmp" || strings.HasPrefix(clean, "tmp/") || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid put prefix: %s", prefix)
	}
	return clean, nil
}

func sanitizedExt(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filepath.ToSlash(filename))))
	if ext == "" || ext == "." {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	out := make([]rune, 0, len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		}
	}
	return string(out)
}

func (s *LocalStore) pathFromRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("blob reference is required")
	}
	if strings.HasPrefix(ref, "/") {
		return "", fmt.Errorf("blob reference must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid blob reference")
	}
	return filepath.Join(s.root, clean), nil
}

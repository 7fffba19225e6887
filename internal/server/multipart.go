package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"exportal/internal/reconcile"
)

const mediaTypeSniffLen = 512

// parseSlotUploads reads the multipart form and collects pending
// uploads and retained references per slot. Scalar form values stay
// available through r.FormValue afterwards. Files opened here are
// closed when the request body is; the reconciler consumes them
// within the request.
func (s *Server) parseSlotUploads(w http.ResponseWriter, r *http.Request, slots []reconcile.Slot) (map[string][]reconcile.Upload, map[string][]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Uploads.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Uploads.MultipartMaxMemory); err != nil {
		return nil, nil, classifyMultipartError(err)
	}

	uploads := map[string][]reconcile.Upload{}
	retained := map[string][]string{}

	for _, slot := range slots {
		if r.MultipartForm != nil {
			for _, header := range r.MultipartForm.File[slot.Name] {
				upload, err := s.openUpload(slot.Name, header)
				if err != nil {
					return nil, nil, err
				}
				uploads[slot.Name] = append(uploads[slot.Name], upload)
			}
		}

		refs, ok, err := parseRetained(r, slot.Name)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			retained[slot.Name] = refs
		}
	}

	return uploads, retained, nil
}

func (s *Server) openUpload(slotName string, header *multipart.FileHeader) (reconcile.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return reconcile.Upload{}, badRequest(fmt.Errorf("reading upload for %s: %w", slotName, err))
	}

	buffered := bufio.NewReader(file)
	if err := s.checkMediaType(slotName, header, buffered); err != nil {
		_ = file.Close()
		return reconcile.Upload{}, err
	}

	return reconcile.Upload{
		Filename: header.Filename,
		Content:  buffered,
	}, nil
}

// checkMediaType enforces the configured allow-list against the
// sniffed content, falling back to the declared header when sniffing
// is inconclusive. An empty allow-list disables the check.
func (s *Server) checkMediaType(slotName string, header *multipart.FileHeader, buffered *bufio.Reader) error {
	allowed := s.cfg.Uploads.AllowedMediaTypes
	if len(allowed) == 0 {
		return nil
	}

	peek, _ := buffered.Peek(mediaTypeSniffLen)
	mediaType := http.DetectContentType(peek)
	if mediaType == "application/octet-stream" {
		if declared := strings.TrimSpace(header.Header.Get("Content-Type")); declared != "" {
			mediaType = declared
		}
	}
	if semi := strings.Index(mediaType, ";"); semi >= 0 {
		mediaType = mediaType[:semi]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	for _, candidate := range allowed {
		if candidate == mediaType {
			return nil
		}
	}
	return badRequestCode(fmt.Errorf("media type %s is not allowed for %s", mediaType, slotName), ErrCodeUnsupportedMedia)
}

// parseRetained decodes the retained_<slot> form value, a JSON array
// of blob references. Absent means nothing retained for the slot; a
// malformed value rejects the whole request rather than silently
// keeping or dropping files.
func parseRetained(r *http.Request, slotName string) ([]string, bool, error) {
	key := "retained_" + slotName
	if r.MultipartForm == nil {
		return nil, false, nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil, false, nil
	}

	raw := strings.TrimSpace(values[len(values)-1])
	if raw == "" {
		return []string{}, true, nil
	}

	var refs []string
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, false, badRequestCode(fmt.Errorf("%s must be a JSON array of file references", key), ErrCodeInvalidRetained)
	}

	out := make([]string, 0, len(refs))
	seen := map[string]struct{}{}
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out, true, nil
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return makeAPIError(http.StatusRequestEntityTooLarge, "request_too_large", ErrCodeRequestTooLarge, fmt.Errorf("request body too large"))
	}
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return badRequest(fmt.Errorf("multipart form expected"))
	}
	return badRequest(fmt.Errorf("invalid multipart form: %w", err))
}

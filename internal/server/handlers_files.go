package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
)

// handleServeFile streams a stored upload. References are validated by
// the blob store; traversal attempts never reach the filesystem.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.PathValue("ref"))
	if ref == "" {
		s.writeServiceError(w, r, badRequest(fmt.Errorf("file reference is required")))
		return
	}

	reader, err := s.blobs.Open(r.Context(), ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeServiceError(w, r, notFoundCode(fmt.Errorf("file %s not found", ref), ErrCodeFileNotFound))
			return
		}
		s.writeServiceError(w, r, badRequest(err))
		return
	}
	defer reader.Close()

	head := make([]byte, 512)
	n, readErr := io.ReadFull(reader, head)
	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		s.writeStoreError(w, r, readErr)
		return
	}
	head = head[:n]

	contentType := mime.TypeByExtension(path.Ext(ref))
	if contentType == "" {
		contentType = http.DetectContentType(head)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := w.Write(head); err != nil {
		return
	}
	if _, err := io.Copy(w, reader); err != nil {
		s.log().Debug("file stream interrupted", "ref", ref, "error", err)
	}
}

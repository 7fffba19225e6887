package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"exportal/internal/api"
	"exportal/internal/models"
	"exportal/internal/reconcile"
	"exportal/internal/store"
)

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category != "" {
		normalized, err := normalizeCertificateCategory(category)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		category = normalized
	}

	certs, err := s.store.ListCertificates(r.Context(), category)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.CertificateListResponse{Certificates: make([]api.CertificateResponse, 0, len(certs))}
	for _, cert := range certs {
		resp.Certificates = append(resp.Certificates, s.certificateResponse(cert))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	cert, err := s.store.GetCertificate(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if cert == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("certificate %s not found", id), ErrCodeEntityNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, s.certificateResponse(*cert))
}

func (s *Server) handleCreateCertificate(w http.ResponseWriter, r *http.Request) {
	uploads, retained, err := s.parseSlotUploads(w, r, certificateSlots)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	fields, err := certificateFieldsFromForm(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	record, err := s.certificates.Create(r.Context(), reconcile.Intent{
		Fields:   fields,
		Uploads:  uploads,
		Retained: retained,
	})
	if err != nil {
		s.writeReconcileError(w, r, err)
		return
	}

	cert, err := s.store.GetCertificate(r.Context(), record.ID)
	if err != nil || cert == nil {
		s.writeStoreError(w, r, fmt.Errorf("reloading certificate %s: %w", record.ID, err))
		return
	}

	s.recordActivity(r, "", models.ActivityActionCreate, "certificate", cert.ID, cert.Title)
	s.writeJSON(w, http.StatusCreated, s.certificateResponse(*cert))
}

func (s *Server) handleUpdateCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	uploads, retained, err := s.parseSlotUploads(w, r, certificateSlots)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	fields, err := certificateFieldsFromForm(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	expectedVersion, err := formVersion(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	record, err := s.certificates.Update(r.Context(), id, reconcile.Intent{
		Fields:          fields,
		Uploads:         uploads,
		Retained:        retained,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		s.writeReconcileError(w, r, err)
		return
	}

	cert, err := s.store.GetCertificate(r.Context(), record.ID)
	if err != nil || cert == nil {
		s.writeStoreError(w, r, fmt.Errorf("reloading certificate %s: %w", record.ID, err))
		return
	}

	s.recordActivity(r, "", models.ActivityActionUpdate, "certificate", cert.ID, cert.Title)
	s.writeJSON(w, http.StatusOK, s.certificateResponse(*cert))
}

func (s *Server) handleDeleteCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if err := s.certificates.Delete(r.Context(), id); err != nil {
		s.writeReconcileError(w, r, err)
		return
	}
	s.recordActivity(r, "", models.ActivityActionDelete, "certificate", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func certificateFieldsFromForm(r *http.Request) (store.CertificateFields, error) {
	title, err := requireText("title", r.FormValue("title"), maxTitleLength)
	if err != nil {
		return store.CertificateFields{}, err
	}
	issuer, err := requireText("issuer", r.FormValue("issuer"), maxTitleLength)
	if err != nil {
		return store.CertificateFields{}, err
	}
	year, err := strconv.Atoi(strings.TrimSpace(r.FormValue("year")))
	if err != nil {
		return store.CertificateFields{}, badRequest(fmt.Errorf("year must be a number"))
	}
	if year, err = requireYear(year); err != nil {
		return store.CertificateFields{}, err
	}
	category, err := normalizeCertificateCategory(r.FormValue("category"))
	if err != nil {
		return store.CertificateFields{}, err
	}

	return store.CertificateFields{
		Title:    title,
		Issuer:   issuer,
		Year:     year,
		Category: category,
	}, nil
}

func formVersion(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.FormValue("version"))
	if raw == "" {
		return 0, badRequestCode(fmt.Errorf("version is required"), ErrCodeMissingRequired)
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version <= 0 {
		return 0, badRequest(fmt.Errorf("version must be a positive number"))
	}
	return version, nil
}

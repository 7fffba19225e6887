package server

import (
	"fmt"
	"net/http"
	"strings"

	"exportal/internal/api"
	"exportal/internal/models"
)

func (s *Server) handleCreateEnquiry(w http.ResponseWriter, r *http.Request) {
	var req api.EnquiryCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	name, err := requireText("name", req.Name, maxTitleLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	email, err := requireEmail(req.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	message, err := requireText("message", req.Message, maxMessageLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	phone, err := optionalText("phone", req.Phone, maxTitleLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	subject, err := optionalText("subject", req.Subject, maxTitleLength)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	enquiry, err := s.store.CreateEnquiry(r.Context(), &models.Enquiry{
		Name:    name,
		Email:   email,
		Phone:   phone,
		Subject: subject,
		Message: message,
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.log().Info("enquiry received", "id", enquiry.ID, "subject", enquiry.Subject)
	s.writeJSON(w, http.StatusCreated, enquiry)
}

func (s *Server) handleListEnquiries(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" {
		normalized, err := normalizeEnquiryStatus(status)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		status = normalized
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	enquiries, err := s.store.ListEnquiries(r.Context(), status, limit, offset)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EnquiryListResponse{Enquiries: enquiries})
}

func (s *Server) handleGetEnquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	enquiry, err := s.store.GetEnquiry(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if enquiry == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("enquiry %s not found", id), ErrCodeEntityNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, enquiry)
}

func (s *Server) handleSetEnquiryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	var req api.EnquiryStatusRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	status, err := normalizeEnquiryStatus(req.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	enquiry, err := s.store.SetEnquiryStatus(r.Context(), id, status)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if enquiry == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("enquiry %s not found", id), ErrCodeEntityNotFound))
		return
	}

	s.recordActivity(r, "", models.ActivityActionUpdate, "enquiry", enquiry.ID, "status="+status)
	s.writeJSON(w, http.StatusOK, enquiry)
}

func (s *Server) handleDeleteEnquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	deleted, err := s.store.DeleteEnquiry(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !deleted {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("enquiry %s not found", id), ErrCodeEntityNotFound))
		return
	}
	s.recordActivity(r, "", models.ActivityActionDelete, "enquiry", id, "")
	w.WriteHeader(http.StatusNoContent)
}

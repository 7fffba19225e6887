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

func (s *Server) handleListCarousel(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListCarouselItems(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	resp := api.CarouselListResponse{Items: make([]api.CarouselItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, s.carouselResponse(item))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCarousel(w http.ResponseWriter, r *http.Request) {
	uploads, retained, err := s.parseSlotUploads(w, r, carouselSlots)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	fields, err := carouselFieldsFromForm(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	record, err := s.carousel.Create(r.Context(), reconcile.Intent{
		Fields:   fields,
		Uploads:  uploads,
		Retained: retained,
	})
	if err != nil {
		s.writeReconcileError(w, r, err)
		return
	}

	item, err := s.store.GetCarouselItem(r.Context(), record.ID)
	if err != nil || item == nil {
		s.writeStoreError(w, r, fmt.Errorf("reloading carousel item %s: %w", record.ID, err))
		return
	}

	s.recordActivity(r, "", models.ActivityActionCreate, "carousel_item", item.ID, item.Heading)
	s.writeJSON(w, http.StatusCreated, s.carouselResponse(*item))
}

func (s *Server) handleUpdateCarousel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	uploads, retained, err := s.parseSlotUploads(w, r, carouselSlots)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	fields, err := carouselFieldsFromForm(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	expectedVersion, err := formVersion(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	record, err := s.carousel.Update(r.Context(), id, reconcile.Intent{
		Fields:          fields,
		Uploads:         uploads,
		Retained:        retained,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		s.writeReconcileError(w, r, err)
		return
	}

	item, err := s.store.GetCarouselItem(r.Context(), record.ID)
	if err != nil || item == nil {
		s.writeStoreError(w, r, fmt.Errorf("reloading carousel item %s: %w", record.ID, err))
		return
	}

	s.recordActivity(r, "", models.ActivityActionUpdate, "carousel_item", item.ID, item.Heading)
	s.writeJSON(w, http.StatusOK, s.carouselResponse(*item))
}

func (s *Server) handleDeleteCarousel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if err := s.carousel.Delete(r.Context(), id); err != nil {
		s.writeReconcileError(w, r, err)
		return
	}
	s.recordActivity(r, "", models.ActivityActionDelete, "carousel_item", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetJumbotron(w http.ResponseWriter, r *http.Request) {
	jb, err := s.store.GetJumbotron(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if jb == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("jumbotron not configured"), ErrCodeEntityNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, s.jumbotronResponse(*jb))
}

func (s *Server) handleUpdateJumbotron(w http.ResponseWriter, r *http.Request) {
	uploads, retained, err := s.parseSlotUploads(w, r, jumbotronSlots)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	fields, err := jumbotronFieldsFromForm(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	expectedVersion, err := formVersion(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	_, err = s.jumbotron.Update(r.Context(), store.JumbotronID, reconcile.Intent{
		Fields:          fields,
		Uploads:         uploads,
		Retained:        retained,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		s.writeReconcileError(w, r, err)
		return
	}

	jb, err := s.store.GetJumbotron(r.Context())
	if err != nil || jb == nil {
		s.writeStoreError(w, r, fmt.Errorf("reloading jumbotron: %w", err))
		return
	}

	s.recordActivity(r, "", models.ActivityActionUpdate, "jumbotron", store.JumbotronID, jb.Heading)
	s.writeJSON(w, http.StatusOK, s.jumbotronResponse(*jb))
}

func carouselFieldsFromForm(r *http.Request) (store.CarouselFields, error) {
	heading, err := requireText("heading", r.FormValue("heading"), maxTitleLength)
	if err != nil {
		return store.CarouselFields{}, err
	}
	subheading, err := optionalText("subheading", r.FormValue("subheading"), maxTextLength)
	if err != nil {
		return store.CarouselFields{}, err
	}

	position := 0
	if raw := strings.TrimSpace(r.FormValue("position")); raw != "" {
		position, err = strconv.Atoi(raw)
		if err != nil || position < 0 {
			return store.CarouselFields{}, badRequest(fmt.Errorf("position must be a non-negative number"))
		}
	}

	return store.CarouselFields{
		Heading:    heading,
		Subheading: subheading,
		Position:   position,
	}, nil
}

func jumbotronFieldsFromForm(r *http.Request) (store.JumbotronFields, error) {
	heading, err := requireText("heading", r.FormValue("heading"), maxTitleLength)
	if err != nil {
		return store.JumbotronFields{}, err
	}
	tagline, err := optionalText("tagline", r.FormValue("tagline"), maxTextLength)
	if err != nil {
		return store.JumbotronFields{}, err
	}
	return store.JumbotronFields{Heading: heading, Tagline: tagline}, nil
}

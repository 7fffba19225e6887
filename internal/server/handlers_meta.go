package server

import (
	"net/http"
	"time"

	"exportal/internal/api"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

const dashboardRecentActivity = 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		Name:    "exportal",
		Version: Version,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	certificates, err := s.store.CountCertificates(ctx)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	products, err := s.store.CountProducts(ctx)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	carouselItems, err := s.store.CountCarouselItems(ctx)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	enquiries, err := s.store.CountEnquiriesByStatus(ctx)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	recent, err := s.store.ListActivity(ctx, dashboardRecentActivity, 0)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.DashboardResponse{
		Certificates:   certificates,
		Products:       products,
		CarouselItems:  carouselItems,
		Enquiries:      enquiries,
		RecentActivity: recent,
		GeneratedAt:    time.Now().UTC(),
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
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

	entries, err := s.store.ListActivity(r.Context(), limit, offset)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActivityListResponse{Entries: entries})
}

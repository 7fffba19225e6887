package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Public site content.
	mux.HandleFunc("GET /v1/certificates", s.handleListCertificates)
	mux.HandleFunc("GET /v1/certificates/{id}", s.handleGetCertificate)
	mux.HandleFunc("GET /v1/products", s.handleListProducts)
	mux.HandleFunc("GET /v1/products/{id}", s.handleGetProduct)
	mux.HandleFunc("GET /v1/content/carousel", s.handleListCarousel)
	mux.HandleFunc("GET /v1/content/jumbotron", s.handleGetJumbotron)
	mux.HandleFunc("POST /v1/enquiries", s.handleCreateEnquiry)

	// Uploaded files.
	mux.Handle("GET "+s.cfg.PublicFilesBase+"/{ref...}", http.HandlerFunc(s.handleServeFile))

	// Back-office auth.
	mux.HandleFunc("POST /v1/auth/login", s.handleAuthLogin)
	mux.HandleFunc("POST /v1/auth/logout", s.handleAuthLogout)
	mux.HandleFunc("GET /v1/auth/me", s.requireSession(s.handleAuthMe))

	// Back-office mutations. Create and update are multipart forms so
	// scalar fields and file slots travel in one request.
	mux.HandleFunc("POST /v1/admin/certificates", s.requireSession(s.handleCreateCertificate))
	mux.HandleFunc("PUT /v1/admin/certificates/{id}", s.requireSession(s.handleUpdateCertificate))
	mux.HandleFunc("DELETE /v1/admin/certificates/{id}", s.requireSession(s.handleDeleteCertificate))

	mux.HandleFunc("POST /v1/admin/products", s.requireSession(s.handleCreateProduct))
	mux.HandleFunc("PUT /v1/admin/products/{id}", s.requireSession(s.handleUpdateProduct))
	mux.HandleFunc("DELETE /v1/admin/products/{id}", s.requireSession(s.handleDeleteProduct))

	mux.HandleFunc("POST /v1/admin/content/carousel", s.requireSession(s.handleCreateCarousel))
	mux.HandleFunc("PUT /v1/admin/content/carousel/{id}", s.requireSession(s.handleUpdateCarousel))
	mux.HandleFunc("DELETE /v1/admin/content/carousel/{id}", s.requireSession(s.handleDeleteCarousel))

	mux.HandleFunc("PUT /v1/admin/content/jumbotron", s.requireSession(s.handleUpdateJumbotron))

	// Back-office enquiry handling and reporting.
	mux.HandleFunc("GET /v1/admin/enquiries", s.requireSession(s.handleListEnquiries))
	mux.HandleFunc("GET /v1/admin/enquiries/{id}", s.requireSession(s.handleGetEnquiry))
	mux.HandleFunc("POST /v1/admin/enquiries/{id}/status", s.requireSession(s.handleSetEnquiryStatus))
	mux.HandleFunc("DELETE /v1/admin/enquiries/{id}", s.requireSession(s.handleDeleteEnquiry))

	mux.HandleFunc("GET /v1/admin/dashboard", s.requireSession(s.handleDashboard))
	mux.HandleFunc("GET /v1/admin/activity", s.requireSession(s.handleActivity))

	return s.withRequestLogging(mux)
}

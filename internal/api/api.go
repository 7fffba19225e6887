// Package api defines the JSON request and response types of the
// exportal HTTP API.
package api

import (
	"time"

	"exportal/internal/models"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
}

// InfoResponse reports build and instance metadata.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// AuthLoginRequest carries back-office credentials.
type AuthLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMeResponse describes the current session.
type AuthMeResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
}

// CertificateResponse is one certificate with resolved file URLs.
type CertificateResponse struct {
	models.Certificate
	SrcURL  string `json:"src_url,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}

// CertificateListResponse wraps a certificate listing.
type CertificateListResponse struct {
	Certificates []CertificateResponse `json:"certificates"`
}

// ProductResponse is one product with resolved image URLs.
type ProductResponse struct {
	models.Product
	ImageURLs []string `json:"image_urls"`
}

// ProductListResponse wraps a product listing.
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
}

// CarouselItemResponse is one homepage slide with its image URL.
type CarouselItemResponse struct {
	models.CarouselItem
	ImageURL string `json:"image_url,omitempty"`
}

// CarouselListResponse wraps the slide listing.
type CarouselListResponse struct {
	Items []CarouselItemResponse `json:"items"`
}

// JumbotronResponse is the homepage banner with its image URL.
type JumbotronResponse struct {
	models.Jumbotron
	ImageURL string `json:"image_url,omitempty"`
}

// EnquiryCreateRequest is one public contact-form submission.
type EnquiryCreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// EnquiryStatusRequest changes an enquiry's handling state.
type EnquiryStatusRequest struct {
	Status string `json:"status"`
}

// EnquiryListResponse wraps an enquiry listing.
type EnquiryListResponse struct {
	Enquiries []models.Enquiry `json:"enquiries"`
}

// ActivityListResponse wraps the audit trail listing.
type ActivityListResponse struct {
	Entries []models.ActivityEntry `json:"entries"`
}

// DashboardResponse aggregates back-office counts.
type DashboardResponse struct {
	Certificates   int                    `json:"certificates"`
	Products       int                    `json:"products"`
	CarouselItems  int                    `json:"carousel_items"`
	Enquiries      map[string]int         `json:"enquiries"`
	RecentActivity []models.ActivityEntry `json:"recent_activity"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

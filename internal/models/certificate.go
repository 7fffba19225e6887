package models

import (
	"fmt"
	"strings"
	"time"
)

// CertificateCategory groups certificates on the public site.
type CertificateCategory string

const (
	CertificateCategoryQuality    CertificateCategory = "quality"
	CertificateCategoryOrigin     CertificateCategory = "origin"
	CertificateCategoryCompliance CertificateCategory = "compliance"
	CertificateCategoryMembership CertificateCategory = "membership"
)

var validCertificateCategories = map[CertificateCategory]struct{}{
	CertificateCategoryQuality:    {},
	CertificateCategoryOrigin:     {},
	CertificateCategoryCompliance: {},
	CertificateCategoryMembership: {},
}

// Certificate is a company certification shown on the site. SrcRef and
// LogoRef are blob references owned by the row; either may be empty.
type Certificate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Issuer    string    `json:"issuer"`
	Year      int       `json:"year"`
	Category  string    `json:"category"`
	SrcRef    string    `json:"src,omitempty"`
	LogoRef   string    `json:"logo,omitempty"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ParseCertificateCategory(raw string) (CertificateCategory, error) {
	value := CertificateCategory(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("certificate category is required")
	}
	if _, ok := validCertificateCategories[value]; !ok {
		return "", fmt.Errorf("invalid certificate category: %s", value)
	}
	return value, nil
}

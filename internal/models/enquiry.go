package models

import (
	"fmt"
	"strings"
	"time"
)

// EnquiryStatus tracks back-office handling of a contact enquiry.
type EnquiryStatus string

const (
	EnquiryStatusNew     EnquiryStatus = "new"
	EnquiryStatusHandled EnquiryStatus = "handled"
)

// Enquiry is a message submitted through the public contact form.
type Enquiry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ParseEnquiryStatus(raw string) (EnquiryStatus, error) {
	value := EnquiryStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case EnquiryStatusNew, EnquiryStatusHandled:
		return value, nil
	case "":
		return "", fmt.Errorf("enquiry status is required")
	default:
		return "", fmt.Errorf("invalid enquiry status: %s", value)
	}
}

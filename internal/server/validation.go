package server

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"exportal/internal/models"
	"exportal/internal/store"
)

var idRegex = regexp.MustCompile(`^[a-z]{2}-[0-9a-z]{6}$`)

const (
	maxTitleLength   = 200
	maxTextLength    = 2000
	maxMessageLength = 10000
)

func validateID(id string) bool {
	return idRegex.MatchString(id) || id == store.JumbotronID
}

func normalizeCertificateCategory(value string) (string, error) {
	category, err := models.ParseCertificateCategory(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidCategory)
	}
	return string(category), nil
}

func normalizeProductCategory(value string) (string, error) {
	category, err := models.ParseProductCategory(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidCategory)
	}
	return string(category), nil
}

func normalizeEnquiryStatus(value string) (string, error) {
	status, err := models.ParseEnquiryStatus(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidStatus)
	}
	return string(status), nil
}

func requireText(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", badRequestCode(fmt.Errorf("%s is required", field), ErrCodeMissingRequired)
	}
	if len(value) > maxLen {
		return "", badRequest(fmt.Errorf("%s must be at most %d characters", field, maxLen))
	}
	return value, nil
}

func optionalText(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) > maxLen {
		return "", badRequest(fmt.Errorf("%s must be at most %d characters", field, maxLen))
	}
	return value, nil
}

func requireEmail(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", badRequestCode(fmt.Errorf("email is required"), ErrCodeMissingRequired)
	}
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return "", badRequest(fmt.Errorf("invalid email address"))
	}
	return addr.Address, nil
}

func requireYear(value int) (int, error) {
	currentYear := time.Now().UTC().Year()
	if value < 1900 || value > currentYear+1 {
		return 0, badRequest(fmt.Errorf("year must be between 1900 and %d", currentYear+1))
	}
	return value, nil
}

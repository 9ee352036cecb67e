package photo

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes is the largest accepted photo.
const MaxUploadBytes = 10 * 1024 * 1024

// Validation messages returned to the customer.
const (
	ErrTooLarge    = "File size too large (max 10MB)"
	ErrInvalidType = "Invalid file type. Please upload JPG, PNG, or WebP"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Validation is the outcome of checking an upload.
type Validation struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	ContentType string   `json:"content_type,omitempty"`
}

// Extension returns the file extension for the sniffed content type.
func (v Validation) Extension() string {
	return allowedTypes[v.ContentType]
}

// Validate checks size and content type. The type is sniffed from data; the
// client-declared type only produces a warning when it disagrees.
func Validate(data []byte, declaredType string) Validation {
	result := Validation{Valid: true, Errors: []string{}, Warnings: []string{}}

	if len(data) > MaxUploadBytes {
		result.Valid = false
		result.Errors = append(result.Errors, ErrTooLarge)
	}

	sniffed := mimetype.Detect(data).String()
	if idx := strings.Index(sniffed, ";"); idx >= 0 {
		sniffed = sniffed[:idx]
	}
	if _, ok := allowedTypes[sniffed]; !ok {
		result.Valid = false
		result.Errors = append(result.Errors, ErrInvalidType)
		return result
	}
	result.ContentType = sniffed

	declared := strings.ToLower(strings.TrimSpace(declaredType))
	if idx := strings.Index(declared, ";"); idx >= 0 {
		declared = strings.TrimSpace(declared[:idx])
	}
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	if declared != "" && declared != sniffed {
		result.Warnings = append(result.Warnings, fmt.Sprintf("declared type %s does not match detected %s", declared, sniffed))
	}
	return result
}

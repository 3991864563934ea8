package validation_test

import (
	"testing"

	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inviteRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,e164"`
}

type documentRequest struct {
	LicenseURL string `json:"agency_license_url" validate:"required,document_url"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(inviteRequest{
		Email:    "agent@example.com",
		FullName: "Agent One",
		Phone:    "+34600000000",
	})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       inviteRequest
		wantField string
	}{
		{"missing name", inviteRequest{Email: "agent@example.com"}, "full_name"},
		{"invalid email", inviteRequest{Email: "not-an-email", FullName: "A"}, "email"},
		{"invalid phone", inviteRequest{Email: "agent@example.com", FullName: "A", Phone: "600-000"}, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_DocumentURL(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(documentRequest{LicenseURL: "https://files.example.com/license.pdf"}))

	for _, bad := range []string{"license.pdf", "ftp://files.example.com/x", "https://"} {
		err := v.Validate(documentRequest{LicenseURL: bad})
		assert.Error(t, err, bad)
	}
}

func TestIsDocumentURL(t *testing.T) {
	assert.True(t, validation.IsDocumentURL(" http://localhost:9000/doc.pdf "))
	assert.False(t, validation.IsDocumentURL(""))
}

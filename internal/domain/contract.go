package domain

import (
	"strings"
	"time"
)

// LicenseValidityMonths is the number of calendar months after which an agency license must be re-validated.
const LicenseValidityMonths = 11

// ContractStatus is the state of a collaboration contract between a developer and an agency.
type ContractStatus string

const (
	// ContractPending is a request awaiting the developer's review.
	ContractPending ContractStatus = "pending"
	// ContractActive is a fully executed contract.
	ContractActive ContractStatus = "active"
	// ContractRejected is a request the developer turned down. Terminal.
	ContractRejected ContractStatus = "rejected"
)

// ParseContractStatus converts a label to a ContractStatus.
func ParseContractStatus(s string) (ContractStatus, bool) {
	switch ContractStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ContractPending:
		return ContractPending, true
	case ContractActive:
		return ContractActive, true
	case ContractRejected:
		return ContractRejected, true
	default:
		return "", false
	}
}

// CanTransition reports whether a contract may move from s to next.
func (s ContractStatus) CanTransition(next ContractStatus) bool {
	switch s {
	case ContractPending:
		return next == ContractActive || next == ContractRejected
	case ContractActive, ContractRejected:
		return false
	default:
		return false
	}
}

// ContractDocuments holds the URLs of the documents a contract is gated on.
// Only URLs are stored and compared; content is never inspected.
type ContractDocuments struct {
	AgencyRegistrationURL             string `json:"agency_registration_url"`
	AgencyLicenseURL                  string `json:"agency_license_url"`
	AgencySignedContractURL           string `json:"agency_signed_contract_url"`
	DeveloperCounterSignedContractURL string `json:"developer_counter_signed_contract_url,omitempty"`
}

// MissingAgencyDocuments returns the names of the agency-side documents that are absent.
func (d ContractDocuments) MissingAgencyDocuments() []string {
	var missing []string
	if strings.TrimSpace(d.AgencyRegistrationURL) == "" {
		missing = append(missing, "agency_registration_url")
	}
	if strings.TrimSpace(d.AgencyLicenseURL) == "" {
		missing = append(missing, "agency_license_url")
	}
	if strings.TrimSpace(d.AgencySignedContractURL) == "" {
		missing = append(missing, "agency_signed_contract_url")
	}
	return missing
}

// CollaborationContract is the partnership between a developer and an agency.
// There is at most one contract per (DeveloperID, AgencyID).
type CollaborationContract struct {
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	LicenseRenewedAt *time.Time        `json:"license_renewed_at,omitempty"`
	ID               string            `json:"id"`
	DeveloperID      string            `json:"developer_id"`
	AgencyID         string            `json:"agency_id"`
	Status           ContractStatus    `json:"status"`
	Notes            string            `json:"notes,omitempty"`
	Documents        ContractDocuments `json:"documents"`
}

// LicenseAnchor is the date the license validity window is counted from.
// A renewal moves the anchor; CreatedAt itself is never rewritten.
func (c *CollaborationContract) LicenseAnchor() time.Time {
	if c.LicenseRenewedAt != nil {
		return *c.LicenseRenewedAt
	}
	return c.CreatedAt
}

// IsFullyExecuted reports whether the developer approved and counter-signed the contract.
func (c *CollaborationContract) IsFullyExecuted() bool {
	return c.Status == ContractActive && c.Documents.DeveloperCounterSignedContractURL != ""
}

// CalendarMonthsBetween counts whole calendar months from a to b, ignoring the day of month.
// 2024-01-31 to 2024-02-01 is one month.
func CalendarMonthsBetween(a, b time.Time) int {
	a, b = a.UTC(), b.UTC()
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// IsLicenseExpired reports whether the contract's agency license needs re-validation at now.
// It deliberately uses the calendar-month difference, not exact day counting.
func IsLicenseExpired(c *CollaborationContract, now time.Time) bool {
	return CalendarMonthsBetween(c.LicenseAnchor(), now) >= LicenseValidityMonths
}

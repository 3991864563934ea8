package dto

import "github.com/agencynet/agencynet-server/internal/service"

// RequestContractInput is an agency's request to collaborate with a developer.
type RequestContractInput struct {
	AgencyParam
	Body service.ContractRequest
}

// ContractOutput is a single contract.
type ContractOutput struct {
	Body *service.ContractView
}

// RenewLicenseRequest carries the new license document.
type RenewLicenseRequest struct {
	AgencyLicenseURL string `json:"agency_license_url" doc:"URL of the renewed agency license"`
}

// RenewContractInput renews the agency license on an active contract.
type RenewContractInput struct {
	AgencyParam
	DeveloperID string `path:"developerID" doc:"Developer profile identifier"`
	Body        RenewLicenseRequest
}

// DeveloperParam is the path parameter for the acting developer.
type DeveloperParam struct {
	DeveloperID string `path:"developerID" doc:"Developer profile identifier"`
}

// ListDeveloperContractsInput filters a developer's contracts.
type ListDeveloperContractsInput struct {
	DeveloperParam
	Status string `query:"status" enum:"pending,active,rejected" doc:"Only contracts in this status"`
}

// ReviewContractInput is a developer's decision on a pending contract.
type ReviewContractInput struct {
	DeveloperParam
	AgencyID string `path:"agencyID" doc:"Agency identifier"`
	Body     service.ContractReview
}

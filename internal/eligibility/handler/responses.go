package handler

import (
	"keygate/internal/eligibility"
)

// CheckResponse is the HTTP response for GET /eligibility/{principal}.
type CheckResponse struct {
	Eligible     bool `json:"eligible"`
	GoodStanding bool `json:"good_standing"`
}

// StatusResponse is the HTTP response for GET /eligibility/{principal}/status.
type StatusResponse struct {
	CheckResponse
	HoldsCredential bool `json:"holds_credential"`
}

// FromResult converts an eligibility Result to an HTTP response.
func FromResult(result eligibility.Result) *CheckResponse {
	return &CheckResponse{
		Eligible:     result.Eligible,
		GoodStanding: result.GoodStanding,
	}
}

// FromStatusReport converts a StatusReport to an HTTP response.
func FromStatusReport(report eligibility.StatusReport) *StatusResponse {
	return &StatusResponse{
		CheckResponse:   *FromResult(report.Result),
		HoldsCredential: report.HoldsCredential,
	}
}

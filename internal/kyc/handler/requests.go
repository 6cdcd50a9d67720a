package handler

import (
	"strings"

	"kycgate/internal/kyc/models"
	dErrors "kycgate/pkg/domain-errors"
)

// OverrideStatusRequest is the body of PATCH /kyc/status/{clientUserId}.
type OverrideStatusRequest struct {
	Status string `json:"status"`

	parsedStatus models.Status
}

// Validate implements httputil.Validatable.
func (r *OverrideStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Status = strings.TrimSpace(r.Status)
	if r.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

func (r *OverrideStatusRequest) ParsedStatus() models.Status {
	return r.parsedStatus
}

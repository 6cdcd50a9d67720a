package handler

import "kycgate/internal/kyc/models"

// SessionResponse is returned by every verification endpoint.
type SessionResponse struct {
	ClientUserID string        `json:"clientUserId"`
	KycID        string        `json:"kycId"`
	KycLink      string        `json:"kycLink"`
	KycStatus    models.Status `json:"kycStatus"`
}

func FromSession(clientUserID string, session *models.Session) SessionResponse {
	return SessionResponse{
		ClientUserID: clientUserID,
		KycID:        session.ID.String(),
		KycLink:      session.Link,
		KycStatus:    session.Status,
	}
}

package handler

import "kycgate/internal/tenant/models"

// ClientResponse describes the calling tenant. Tenants are called clients on the wire.
type ClientResponse struct {
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName"`
	IsActive   bool   `json:"isActive"`
}

func FromTenant(t *models.Tenant) ClientResponse {
	return ClientResponse{
		ClientID:   t.ID.String(),
		ClientName: t.Name,
		IsActive:   t.IsActive(),
	}
}

package handler

import "kycgate/internal/identity/service"

// UserResponse is returned by POST /user and GET /user/{clientUserId}.
type UserResponse struct {
	UserID       string `json:"userId"`
	ClientUserID string `json:"clientUserId"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

func FromResolution(res *service.Resolution) UserResponse {
	return UserResponse{
		UserID:       res.User.ID.String(),
		ClientUserID: res.Link.ClientUserID,
		Email:        res.User.Email,
		Phone:        res.User.Phone,
	}
}

package user

// UserInfo is the public view of a user shared with other modules.
type UserInfo struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	IsSuperuser bool   `json:"is_superuser"`
}

// GetUserRequest is the request for the get-user service.
type GetUserRequest struct {
	UserID uint `json:"user_id"`
}

// GetUserResponse is the response of the get-user service.
type GetUserResponse struct {
	User  *UserInfo `json:"user,omitempty"`
	Found bool      `json:"found"`
}

package dto

// LoginRequest carries staff or customer credentials
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// ActorDTO is the authenticated actor
type ActorDTO struct {
	ID          uint   `json:"id"`
	UUID        string `json:"uuid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// SessionDTO carries issued tokens
type SessionDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Actor   ActorDTO   `json:"actor"`
	Session SessionDTO `json:"session"`
}

// RefreshSessionRequest exchanges a refresh token for a new pair
type RefreshSessionRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally names the refresh token to revoke alongside the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

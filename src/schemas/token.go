package schemas

// LoginRequest is the body of POST /api/v1/security/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Provider string `json:"provider"`
	Refresh  bool   `json:"refresh"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GuestTokenRequest is the body of POST /api/v1/security/guest_token.
type GuestTokenRequest struct {
	User      GuestUser       `json:"user"`
	RLS       []RLSRule       `json:"rls"`
	Resources []GuestResource `json:"resources"`
}

type GuestUser struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RLSRule struct {
	Clause string `json:"clause"`
}

type GuestResource struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
}

type GuestTokenResponse struct {
	Token string `json:"token"`
}

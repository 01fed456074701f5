package backend

// Session is the token bundle issued by the auth backend. The backend owns
// validation; this service only obtains and forwards sessions.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
	User         *User  `json:"user,omitempty"`
}

// User is the backend's user record, reduced to the fields this service
// reads or writes.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud,omitempty"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  AppMetadata    `json:"app_metadata,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
}

// AppMetadata carries provider attribution stamped by the backend.
type AppMetadata struct {
	Provider  string   `json:"provider,omitempty"`
	Providers []string `json:"providers,omitempty"`
}

// Provider returns the user's last-used provider, or "" when unset.
func (u *User) Provider() string {
	if u == nil {
		return ""
	}
	return u.AppMetadata.Provider
}

// CreateUserParams are the admin user-creation attributes.
type CreateUserParams struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  *AppMetadata   `json:"app_metadata,omitempty"`
}

// UpdateUserParams are the admin user-update attributes. Nil fields are left
// untouched by the backend.
type UpdateUserParams struct {
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  *AppMetadata   `json:"app_metadata,omitempty"`
}

// GeneratedLink is the admin generate_link response.
type GeneratedLink struct {
	ActionLink       string `json:"action_link"`
	EmailOTP         string `json:"email_otp,omitempty"`
	HashedToken      string `json:"hashed_token,omitempty"`
	VerificationType string `json:"verification_type,omitempty"`
}

// UserList is one page of the admin user listing.
type UserList struct {
	Users []User `json:"users"`
	Aud   string `json:"aud,omitempty"`
}

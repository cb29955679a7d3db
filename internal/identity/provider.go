package identity

import "context"

// Provider names reported on User.Provider.
const (
	ProviderPassword  = "password"
	ProviderGoogle    = "google.com"
	ProviderAnonymous = "anonymous"
	ProviderCustom    = "custom"
)

// User is a signed-in identity. Tokens are never serialized.
type User struct {
	UID          string `json:"uid"`
	Email        string `json:"email,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	IsAnonymous  bool   `json:"isAnonymous"`
	Provider     string `json:"provider,omitempty"`
	IDToken      string `json:"-"`
	RefreshToken string `json:"-"`
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Provider performs sign-in flows against one identity system.
type Provider interface {
	Name() string
	// Remote reports whether calls leave the process.
	Remote() bool

	SignInWithEmail(ctx context.Context, email, password string) (*User, error)
	SignUpWithEmail(ctx context.Context, email, password string) (*User, error)
	SignInWithIdP(ctx context.Context, providerID, idToken string) (*User, error)
	SignInAnonymously(ctx context.Context) (*User, error)
	SignInWithCustomToken(ctx context.Context, token string) (*User, error)
	UpdateProfile(ctx context.Context, u *User, displayName string) (*User, error)
	LinkWithEmail(ctx context.Context, u *User, email, password string) (*User, error)
}

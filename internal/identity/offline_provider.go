package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// offlineNamespace seeds deterministic offline uids.
var offlineNamespace = uuid.MustParse("6f1c3b52-0a7e-4d8e-9a44-2f4d6c1e8b90")

// OfflineProvider resolves every call with a synthetic identity so the app
// behaves the same without a configured identity backend. The same email or
// token always yields the same uid.
type OfflineProvider struct{}

func NewOfflineProvider() *OfflineProvider { return &OfflineProvider{} }

func (p *OfflineProvider) Name() string { return "offline" }
func (p *OfflineProvider) Remote() bool { return false }

func offlineUID(kind, value string) string {
	return "offline-" + uuid.NewSHA1(offlineNamespace, []byte(kind+":"+value)).String()
}

func displayNameFor(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

func (p *OfflineProvider) SignInWithEmail(_ context.Context, email, _ string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return &User{
		UID:         offlineUID("email", email),
		Email:       email,
		DisplayName: displayNameFor(email),
		Provider:    ProviderPassword,
	}, nil
}

func (p *OfflineProvider) SignUpWithEmail(ctx context.Context, email, password string) (*User, error) {
	return p.SignInWithEmail(ctx, email, password)
}

func (p *OfflineProvider) SignInWithIdP(_ context.Context, providerID, idToken string) (*User, error) {
	return &User{
		UID:         offlineUID(providerID, idToken),
		DisplayName: "Offline User",
		Provider:    providerID,
	}, nil
}

func (p *OfflineProvider) SignInAnonymously(context.Context) (*User, error) {
	return &User{
		UID:         "offline-anon-" + uuid.NewString(),
		IsAnonymous: true,
		Provider:    ProviderAnonymous,
	}, nil
}

func (p *OfflineProvider) SignInWithCustomToken(_ context.Context, token string) (*User, error) {
	return &User{
		UID:      offlineUID("custom", token),
		Provider: ProviderCustom,
	}, nil
}

func (p *OfflineProvider) UpdateProfile(_ context.Context, u *User, displayName string) (*User, error) {
	out := u.clone()
	out.DisplayName = displayName
	return out, nil
}

func (p *OfflineProvider) LinkWithEmail(_ context.Context, u *User, email, _ string) (*User, error) {
	out := u.clone()
	out.Email = strings.ToLower(strings.TrimSpace(email))
	out.IsAnonymous = false
	out.Provider = ProviderPassword
	if out.DisplayName == "" {
		out.DisplayName = displayNameFor(out.Email)
	}
	return out, nil
}

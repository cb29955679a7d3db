package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/restoplan/planner-backend/internal/logging"
)

// DefaultAuthBaseURL is the Identity Toolkit v1 endpoint.
const DefaultAuthBaseURL = "https://identitytoolkit.googleapis.com/v1"

const authTimeout = 15 * time.Second

// FirebaseProvider signs users in through the Identity Toolkit REST API.
type FirebaseProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logging.Logger
}

// NewFirebaseProvider creates a provider for the given web API key. An
// empty baseURL selects DefaultAuthBaseURL.
func NewFirebaseProvider(baseURL, apiKey string, logger *logging.Logger) *FirebaseProvider {
	if baseURL == "" {
		baseURL = DefaultAuthBaseURL
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &FirebaseProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: authTimeout},
		logger:  logger.Named("identity.firebase"),
	}
}

func (p *FirebaseProvider) Name() string { return "firebase" }
func (p *FirebaseProvider) Remote() bool { return true }

type tokenResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ProviderID   string `json:"providerId"`
}

func (r tokenResponse) user(provider string, anonymous bool) *User {
	return &User{
		UID:          r.LocalID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		IsAnonymous:  anonymous,
		Provider:     provider,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
	}
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call posts body to accounts:{method} and decodes the reply into out.
func (p *FirebaseProvider) call(ctx context.Context, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &AuthError{Kind: ErrAuth, Err: fmt.Errorf("encode request: %w", err)}
	}

	reqURL := p.baseURL + "/accounts:" + method + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return &AuthError{Kind: ErrAuth, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.LogError(method, err)
		return &AuthError{Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()
	p.logger.LogDebugf(method, "status %d in %s", resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 500 {
		return &AuthError{Kind: ErrNetwork, Err: fmt.Errorf("identity service returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error.Message == "" {
			return &AuthError{Kind: ErrAuth, Err: fmt.Errorf("identity service returned status %d", resp.StatusCode)}
		}
		p.logger.LogWarnf(method, "rejected: %s", e.Error.Message)
		return classifyCode(e.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &AuthError{Kind: ErrAuth, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (p *FirebaseProvider) SignInWithEmail(ctx context.Context, email, password string) (*User, error) {
	var r tokenResponse
	err := p.call(ctx, "signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &r)
	if err != nil {
		return nil, err
	}
	return r.user(ProviderPassword, false), nil
}

func (p *FirebaseProvider) SignUpWithEmail(ctx context.Context, email, password string) (*User, error) {
	var r tokenResponse
	err := p.call(ctx, "signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &r)
	if err != nil {
		return nil, err
	}
	return r.user(ProviderPassword, false), nil
}

// SignInWithIdP exchanges a federated provider's ID token, for example a
// Google ID token with providerID "google.com".
func (p *FirebaseProvider) SignInWithIdP(ctx context.Context, providerID, idToken string) (*User, error) {
	form := url.Values{}
	form.Set("id_token", idToken)
	form.Set("providerId", providerID)

	var r tokenResponse
	err := p.call(ctx, "signInWithIdp", map[string]any{
		"postBody":          form.Encode(),
		"requestUri":        "http://localhost",
		"returnSecureToken": true,
	}, &r)
	if err != nil {
		return nil, err
	}
	return r.user(providerID, false), nil
}

// SignInAnonymously is a sign-up without credentials.
func (p *FirebaseProvider) SignInAnonymously(ctx context.Context) (*User, error) {
	var r tokenResponse
	if err := p.call(ctx, "signUp", map[string]any{"returnSecureToken": true}, &r); err != nil {
		return nil, err
	}
	return r.user(ProviderAnonymous, true), nil
}

// SignInWithCustomToken signs in and then looks the account up, since the
// token exchange does not return the uid.
func (p *FirebaseProvider) SignInWithCustomToken(ctx context.Context, token string) (*User, error) {
	var r tokenResponse
	err := p.call(ctx, "signInWithCustomToken", map[string]any{
		"token":             token,
		"returnSecureToken": true,
	}, &r)
	if err != nil {
		return nil, err
	}
	u, err := p.lookup(ctx, r.IDToken)
	if err != nil {
		return nil, err
	}
	u.Provider = ProviderCustom
	u.RefreshToken = r.RefreshToken
	return u, nil
}

type lookupResponse struct {
	Users []struct {
		LocalID          string `json:"localId"`
		Email            string `json:"email"`
		DisplayName      string `json:"displayName"`
		ProviderUserInfo []struct {
			ProviderID string `json:"providerId"`
		} `json:"providerUserInfo"`
	} `json:"users"`
}

func (p *FirebaseProvider) lookup(ctx context.Context, idToken string) (*User, error) {
	var r lookupResponse
	if err := p.call(ctx, "lookup", map[string]any{"idToken": idToken}, &r); err != nil {
		return nil, err
	}
	if len(r.Users) == 0 {
		return nil, &AuthError{Kind: ErrUserNotFound, Code: "USER_NOT_FOUND"}
	}
	info := r.Users[0]
	return &User{
		UID:         info.LocalID,
		Email:       info.Email,
		DisplayName: info.DisplayName,
		IDToken:     idToken,
	}, nil
}

func (p *FirebaseProvider) UpdateProfile(ctx context.Context, u *User, displayName string) (*User, error) {
	var r tokenResponse
	err := p.call(ctx, "update", map[string]any{
		"idToken":           u.IDToken,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &r)
	if err != nil {
		return nil, err
	}
	out := u.clone()
	out.DisplayName = displayName
	if r.IDToken != "" {
		out.IDToken = r.IDToken
		out.RefreshToken = r.RefreshToken
	}
	return out, nil
}

// LinkWithEmail attaches email and password to the account behind u. The
// uid does not change.
func (p *FirebaseProvider) LinkWithEmail(ctx context.Context, u *User, email, password string) (*User, error) {
	var r tokenResponse
	err := p.call(ctx, "update", map[string]any{
		"idToken":           u.IDToken,
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &r)
	if err != nil {
		return nil, err
	}
	out := u.clone()
	out.Email = email
	out.IsAnonymous = false
	out.Provider = ProviderPassword
	if r.LocalID != "" {
		out.UID = r.LocalID
	}
	if r.IDToken != "" {
		out.IDToken = r.IDToken
		out.RefreshToken = r.RefreshToken
	}
	return out, nil
}

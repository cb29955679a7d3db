package identity

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/auth"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
)

// Directory is the admin view of Firebase accounts.
type Directory struct {
	client *auth.Client
}

func NewDirectory(client *auth.Client) *Directory {
	return &Directory{client: client}
}

// VerifyIDToken checks a client ID token and returns the identity it names.
func (d *Directory) VerifyIDToken(ctx context.Context, idToken string) (*User, error) {
	token, err := d.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, &AuthError{Kind: ErrWrongCredential, Err: err}
	}
	u := &User{
		UID:         token.UID,
		Provider:    token.Firebase.SignInProvider,
		IsAnonymous: token.Firebase.SignInProvider == ProviderAnonymous,
		IDToken:     idToken,
	}
	if email, ok := token.Claims["email"].(string); ok {
		u.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		u.DisplayName = name
	}
	return u, nil
}

// LookupUser fetches identity details for uid.
func (d *Directory) LookupUser(ctx context.Context, uid string) (domain.UserRecord, error) {
	rec, err := d.client.GetUser(ctx, uid)
	if err != nil {
		return domain.UserRecord{}, fmt.Errorf("get user %s: %w", uid, err)
	}
	out := domain.UserRecord{
		UID:         uid,
		IsAnonymous: len(rec.ProviderUserInfo) == 0,
	}
	if rec.UserInfo != nil {
		out.Email = rec.Email
		out.DisplayName = rec.DisplayName
	}
	if rec.UserMetadata != nil && rec.UserMetadata.CreationTimestamp > 0 {
		out.CreatedAt = time.UnixMilli(rec.UserMetadata.CreationTimestamp).UTC()
	}
	return out, nil
}

// DeleteUser removes the account. A missing account is not an error.
func (d *Directory) DeleteUser(ctx context.Context, uid string) error {
	if err := d.client.DeleteUser(ctx, uid); err != nil && !auth.IsUserNotFound(err) {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	return nil
}

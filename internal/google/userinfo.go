package google

import (
	"context"
	"fmt"
	"net/http"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// UserInfoFunc resolves the email of the user an authenticated client acts for.
type UserInfoFunc func(ctx context.Context, client *http.Client) (string, error)

// FetchUserEmail calls Google's userinfo endpoint.
func FetchUserEmail(ctx context.Context, client *http.Client) (string, error) {
	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("user info has no email; is the userinfo.email scope granted?")
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return "", fmt.Errorf("google account email %s is not verified", info.Email)
	}
	return info.Email, nil
}

package google

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means no token is stored for the account.
	ErrNotAuthenticated = errors.New("account is not authenticated")

	// ErrReauthRequired means the stored token can no longer be refreshed.
	ErrReauthRequired = errors.New("re-authentication required")

	// ErrUnknownState is returned when a callback carries a state this
	// process never issued.
	ErrUnknownState = errors.New("unknown or already used OAuth state")

	// ErrFlowExpired is returned when the consent flow took too long.
	ErrFlowExpired = errors.New("OAuth flow expired")
)

// GetAuthenticationErrorMessage returns guidance shown to the LLM when a tool
// is called for an account without usable credentials.
func GetAuthenticationErrorMessage(account string) string {
	subject := "this account"
	if account != "" && account != DefaultAccount {
		subject = fmt.Sprintf("account %q", account)
	}
	return fmt.Sprintf(`Google OAuth token not found or no longer valid for %s.

To authorize access:
1. Call the auth_start tool (optionally with the email to sign in as)
2. Open the returned URL and grant access
3. If the browser cannot reach the callback, call auth_complete with the redirect URL from the address bar
4. Retry this tool`, subject)
}

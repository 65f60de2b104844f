package google

import "context"

type userEmailKey struct{}

// WithUserEmail attaches an authenticated user's email to ctx. The HTTP
// transport sets it from a trusted proxy header.
func WithUserEmail(ctx context.Context, email string) context.Context {
	if email == "" {
		return ctx
	}
	return context.WithValue(ctx, userEmailKey{}, email)
}

// UserEmailFromContext returns the email set by WithUserEmail.
func UserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userEmailKey{}).(string)
	return email, ok && email != ""
}

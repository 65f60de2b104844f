package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/api/googleapi"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
)

// Error kinds reported to the caller and the audit log.
const (
	KindUnauthenticated  = "unauthenticated"
	KindPermissionDenied = "permission_denied"
	KindNotFound         = "not_found"
	KindRateLimited      = "rate_limited"
	KindOther            = "other"
)

// ErrorKind classifies err.
func ErrorKind(err error) string {
	if errors.Is(err, google.ErrNotAuthenticated) || errors.Is(err, google.ErrReauthRequired) {
		return KindUnauthenticated
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return KindOther
	}
	switch gerr.Code {
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		if isRateLimitReason(gerr) {
			return KindRateLimited
		}
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	return KindOther
}

// Drive reports some quota errors as 403 with a rate limit reason.
func isRateLimitReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}

func apiMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return err.Error()
}

// DescribeError renders err as guidance for the caller. action completes
// the sentence "Failed to ...".
func DescribeError(account, action string, err error) string {
	switch ErrorKind(err) {
	case KindUnauthenticated:
		return google.GetAuthenticationErrorMessage(account)
	case KindPermissionDenied:
		return fmt.Sprintf("Permission denied: failed to %s. The account %s does not have access to this resource (%s).", action, account, apiMessage(err))
	case KindNotFound:
		return fmt.Sprintf("Not found: failed to %s. Check the ID and that it is shared with %s.", action, account)
	case KindRateLimited:
		return fmt.Sprintf("Rate limited: failed to %s because Google API quota was exceeded. Wait a moment and retry.", action)
	}
	return fmt.Sprintf("Failed to %s: %s", action, apiMessage(err))
}

// ErrorResult converts err into an MCP error result.
func ErrorResult(account, action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(DescribeError(account, action, err))
}

// BatchError wraps err so that a batch item carries the classified message.
func BatchError(account, action string, err error) error {
	return errors.New(DescribeError(account, action, err))
}

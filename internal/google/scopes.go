package google

// Identity scopes, needed to key stored tokens by the user's email.
var identityScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
}

// DefaultOAuthScopes grant full access to Drive, Sheets and Docs.
var DefaultOAuthScopes = append(append([]string{}, identityScopes...),
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/documents",
)

// ReadOnlyOAuthScopes are requested when the server runs without write tools.
var ReadOnlyOAuthScopes = append(append([]string{}, identityScopes...),
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/spreadsheets.readonly",
	"https://www.googleapis.com/auth/documents.readonly",
)

// ScopesFor returns the scope set matching the server mode.
func ScopesFor(readOnly bool) []string {
	if readOnly {
		return append([]string(nil), ReadOnlyOAuthScopes...)
	}
	return append([]string(nil), DefaultOAuthScopes...)
}

// MissingWriteScopes returns the write scopes absent from granted. A nil
// result means granted covers every write tool.
func MissingWriteScopes(granted []string) []string {
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		have[s] = true
	}
	var missing []string
	for _, s := range DefaultOAuthScopes[len(identityScopes):] {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

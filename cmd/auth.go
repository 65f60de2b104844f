package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chayan-1906/google-workspace-mcp/internal/config"
	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/logging"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google account sign-in",
		Long: `Sign Google accounts in and out of the token store used by the MCP server.

Tokens are stored per email address. Every tool accepts an optional
"account" argument naming one of these emails.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthListCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthRevokeCmd())
	cmd.AddCommand(newAuthGenerateKeyCmd())
	return cmd
}

// withApp loads the configuration and runs fn with an open app. Commands
// built on it are cancelled by SIGINT and SIGTERM.
func withApp(fn func(ctx context.Context, a *app) error) error {
	return withConfiguredApp(nil, fn)
}

// withConfiguredApp is withApp with a hook that adjusts the loaded
// configuration before the app is opened.
func withConfiguredApp(configure func(cfg *config.Config), fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if configure != nil {
		configure(cfg)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close app", logging.Err(err))
		}
	}()
	return fn(ctx, a)
}

// loginFlags holds the auth login options.
type loginFlags struct {
	email     string
	noBrowser bool
	yolo      bool
}

// apply sets the requested scopes. Without an explicit --yolo the read_only
// setting of the config decides, as it does for serve.
func (f *loginFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("yolo") {
		cfg.ReadOnly = !f.yolo
	}
}

func newAuthLoginCmd() *cobra.Command {
	flags := &loginFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign a Google account in",
		Long: `Start the Google consent flow and store the resulting token.

By default a local callback server receives Google's redirect and the consent
page opens in the browser. With --no-browser the URL is printed and the
address the browser lands on is read back from stdin.

Read-only access is requested by default. Sign in with --yolo to grant the
write access that "serve --yolo" needs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configure := func(cfg *config.Config) { flags.apply(cmd, cfg) }
			return withConfiguredApp(configure, func(ctx context.Context, a *app) error {
				if flags.noBrowser {
					return loginManual(ctx, a, flags.email, cmd.InOrStdin(), cmd.ErrOrStderr())
				}
				return loginWithCallback(ctx, a, flags.email, cmd.ErrOrStderr())
			})
		},
	}

	cmd.Flags().StringVar(&flags.email, "email", "", "Email to preselect on the consent screen")
	cmd.Flags().BoolVar(&flags.noBrowser, "no-browser", false, "Print the consent URL and read the redirect URL from stdin")
	cmd.Flags().BoolVar(&flags.yolo, "yolo", false, "Request write access to Drive, Sheets and Docs")
	return cmd
}

func loginManual(ctx context.Context, a *app, email string, in io.Reader, out io.Writer) error {
	req, err := a.auth.BeginAuth(email)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Open this URL in a browser and approve access:\n\n%s\n\n", req.URL)
	_, _ = fmt.Fprintln(out, "Then paste the full address the browser was redirected to and press Enter.")
	_, _ = fmt.Fprint(out, "> ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return fmt.Errorf("failed to read redirect URL: %w", err)
	}

	state, code, err := google.ParseCallbackURL(line)
	if err != nil {
		return err
	}
	signedIn, err := a.auth.CompleteAuth(ctx, state, code)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Signed in as %s.\n", signedIn)
	return nil
}

type loginResult struct {
	email string
	err   error
}

func loginWithCallback(ctx context.Context, a *app, email string, out io.Writer) error {
	listener, err := net.Listen("tcp", a.cfg.CallbackAddr)
	if err != nil {
		return fmt.Errorf("cannot listen on %s (is the MCP server running? retry with --no-browser): %w", a.cfg.CallbackAddr, err)
	}

	results := make(chan loginResult, 1)
	mux := http.NewServeMux()
	mux.Handle(server.CallbackPath, loginCallbackHandler(ctx, a.auth, results))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("login callback server failed", logging.Err(err))
		}
	}()
	defer shutdownServer(a.logger, "login callback server", srv.Shutdown)

	req, err := a.auth.BeginAuth(email)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Opening the Google consent page. If it does not open, visit:\n\n%s\n\n", req.URL)
	if err := openBrowser(req.URL); err != nil {
		a.logger.Debug("failed to open browser", logging.Err(err))
	}

	timer := time.NewTimer(time.Until(req.ExpiresAt))
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			return res.err
		}
		_, _ = fmt.Fprintf(out, "Signed in as %s.\n", res.email)
		return nil
	case <-timer.C:
		return fmt.Errorf("timed out waiting for the Google redirect")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loginCallbackHandler finishes the flow started by "auth login" and reports
// the first outcome on results.
func loginCallbackHandler(ctx context.Context, auth *google.Authenticator, results chan<- loginResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")

		state, code, err := google.ParseCallbackURL(r.URL.String())
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, "Authorization failed: %v\n", err)
			report(results, loginResult{err: err})
			return
		}

		email, err := auth.CompleteAuth(ctx, state, code)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = fmt.Fprintf(w, "Authorization failed: %v\n", err)
			report(results, loginResult{err: err})
			return
		}

		_, _ = fmt.Fprintf(w, "Connected Google account %s.\nYou can close this window and return to the terminal.\n", email)
		report(results, loginResult{email: email})
	})
}

func report(results chan<- loginResult, res loginResult) {
	select {
	case results <- res:
	default:
	}
}

func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start"}
	case "darwin":
		cmd = "open"
	default:
		cmd = "xdg-open"
	}
	args = append(args, url)
	return exec.Command(cmd, args...).Start()
}

// accountStatus is one row of "auth list" and "auth status".
type accountStatus struct {
	Email           string     `json:"email"`
	Expiry          *time.Time `json:"expiry,omitempty"`
	Expired         bool       `json:"expired"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	Scopes          []string   `json:"scopes,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func statusFromDocument(doc *tokenstore.Document, now time.Time) accountStatus {
	s := accountStatus{
		Email:     doc.Email,
		Scopes:    doc.Scopes,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.Token != nil {
		s.HasRefreshToken = doc.Token.RefreshToken != ""
		if !doc.Token.Expiry.IsZero() {
			expiry := doc.Token.Expiry
			s.Expiry = &expiry
			s.Expired = now.After(expiry)
		}
	}
	return s
}

func collectStatuses(ctx context.Context, store tokenstore.Store, emails []string) ([]accountStatus, error) {
	now := time.Now()
	statuses := make([]accountStatus, 0, len(emails))
	for _, email := range emails {
		doc, err := store.Get(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to read account %s: %w", email, err)
		}
		statuses = append(statuses, statusFromDocument(doc, now))
	}
	return statuses, nil
}

func printStatuses(out io.Writer, statuses []accountStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}
	if len(statuses) == 0 {
		_, err := fmt.Fprintln(out, "No accounts signed in. Run \"google-workspace-mcp auth login\".")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "EMAIL\tEXPIRES\tREFRESH TOKEN\tUPDATED")
	for _, s := range statuses {
		expires := "never"
		if s.Expiry != nil {
			expires = s.Expiry.Local().Format(time.RFC3339)
			if s.Expired {
				expires += " (expired)"
			}
		}
		refresh := "no"
		if s.HasRefreshToken {
			refresh = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Email, expires, refresh, s.UpdatedAt.Local().Format(time.RFC3339))
	}
	return tw.Flush()
}

func newAuthListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List signed-in accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				emails, err := a.auth.Accounts(ctx)
				if err != nil {
					return err
				}
				statuses, err := collectStatuses(ctx, a.store, emails)
				if err != nil {
					return err
				}
				return printStatuses(cmd.OutOrStdout(), statuses, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <email>",
		Short: "Check that an account has a usable token",
		Long: `Load the token for an account, refreshing it with Google when it is about
to expire, and report whether tools can run as that account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				email, err := tokenstore.NormalizeEmail(args[0])
				if err != nil {
					return err
				}

				tok, err := a.provider.TokenForAccount(ctx, email)
				switch {
				case errors.Is(err, google.ErrNotAuthenticated):
					return fmt.Errorf("%s is not signed in; run \"google-workspace-mcp auth login --email %s\"", email, email)
				case errors.Is(err, google.ErrReauthRequired):
					return fmt.Errorf("%s must sign in again; run \"google-workspace-mcp auth login --email %s\"", email, email)
				case err != nil:
					return err
				}

				out := cmd.OutOrStdout()
				if tok.Expiry.IsZero() {
					_, _ = fmt.Fprintf(out, "%s: authenticated\n", email)
				} else {
					_, _ = fmt.Fprintf(out, "%s: authenticated, token valid until %s\n", email, tok.Expiry.Local().Format(time.RFC3339))
				}
				a.logger.Debug("token status checked", logging.Account(email))
				return nil
			})
		},
	}
	return cmd
}

func newAuthRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <email>",
		Short: "Revoke an account's token and remove it from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				email, err := tokenstore.NormalizeEmail(args[0])
				if err != nil {
					return err
				}
				if err := a.auth.Revoke(ctx, email); err != nil {
					if errors.Is(err, google.ErrNotAuthenticated) {
						return fmt.Errorf("%s is not signed in", email)
					}
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s.\n", email)
				return nil
			})
		},
	}
	return cmd
}

func newAuthGenerateKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-key",
		Short: "Generate a token store encryption key",
		Long: `Print a random AES-256 key for encrypting token documents at rest.
Set it as GWMCP_ENCRYPTION_KEY or store.encryption_key. Keep it: documents
sealed with a key cannot be read without it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := tokenstore.GenerateKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), config.EncodeKey(key))
			return err
		},
	}
}

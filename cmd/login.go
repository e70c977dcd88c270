package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/markb/plcgate/internal/log"
	"github.com/markb/plcgate/internal/oauth"
	"github.com/markb/plcgate/internal/session"
)

// loginTimeout bounds how long the CLI waits for the browser callback. It
// matches the lifetime of the stored code verifier.
const loginTimeout = 10 * time.Minute

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in via the browser",
	Long:  `Starts a PKCE authorization code flow: prints the provider URL to open in a browser, waits for the callback on localhost, and exchanges the returned code for tokens.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("callback-port")

		oauthCfg, err := buildOAuthConfig(cmd)
		if err != nil {
			return err
		}
		if oauthCfg.RedirectURI == "" {
			oauthCfg.RedirectURI = fmt.Sprintf("http://localhost:%d/callback", port)
		}
		if oauthCfg.LogoutURI == "" {
			oauthCfg.LogoutURI = oauthCfg.RedirectURI
		}

		store, err := openTokenStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		client := oauth.NewClient(oauthCfg, store)
		controller := session.New(client)
		controller.OnTransition = func(state session.State) {
			log.Debug("session state changed", "state", state)
		}

		authURL, err := controller.Login(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("Open this URL in your browser to log in:")
		fmt.Println()
		fmt.Println("  " + authURL)
		fmt.Println()

		code, err := waitForCallback(cmd.Context(), port)
		if err != nil {
			return err
		}

		if err := controller.HandleStartup(cmd.Context(), code); err != nil {
			return fmt.Errorf("login failed: %s", controller.ErrorMessage())
		}
		if controller.State() != session.StateAuthenticated {
			return fmt.Errorf("login did not complete (state: %s)", controller.State())
		}

		user := controller.User()
		fmt.Printf("Logged in as %s (%s)\n", user.Email, user.Sub)
		return nil
	},
}

type callbackResult struct {
	code string
	err  error
}

// deliver hands a result to the waiting login command. Only the first result
// counts; a provider that redirects the callback more than once must not
// block the later handlers.
func deliver(resultCh chan<- callbackResult, result callbackResult) {
	select {
	case resultCh <- result:
	default:
	}
}

// callbackHandler serves the provider redirect and reports the first
// authorization code (or provider error) on resultCh.
func callbackHandler(resultCh chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if errCode := query.Get("error"); errCode != "" {
			desc := query.Get("error_description")
			fmt.Fprintln(w, "Login failed. You can close this window.")
			deliver(resultCh, callbackResult{err: fmt.Errorf("provider returned %s: %s", errCode, desc)})
			return
		}
		code := query.Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Login complete. You can close this window.")
		deliver(resultCh, callbackResult{code: code})
	})
}

// waitForCallback runs a one-shot HTTP server on the callback port and
// returns the authorization code the provider redirects back with.
func waitForCallback(ctx context.Context, port int) (string, error) {
	resultCh := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(resultCh))

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return "", fmt.Errorf("cannot listen on callback port %d: %w", port, err)
	}

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			deliver(resultCh, callbackResult{err: err})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case result := <-resultCh:
		return result.code, result.err
	case <-time.After(loginTimeout):
		return "", fmt.Errorf("timed out waiting for the login callback")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().Int("callback-port", 8765, "Local port for the login callback")
	loginCmd.Flags().String("client-id", "", "OAuth2 client ID")
	loginCmd.Flags().String("auth-domain", "", "Provider domain (e.g. https://auth.example.com)")
	loginCmd.Flags().String("redirect-uri", "", "Redirect URI registered with the provider")
	loginCmd.Flags().String("logout-uri", "", "Post-logout redirect URI")
	loginCmd.Flags().String("token-db", "", "Path to the token store (default ~/.plcgate/tokens.db)")
}

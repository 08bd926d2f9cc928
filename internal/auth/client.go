package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"sync"

	"golang.org/x/oauth2"
)

const (
	localServerPort = "8080"
	callbackPath    = "/oauth2callback"
	oauthState      = "state-token"
)

// GetClient returns an authenticated HTTP client for the Google Calendar API.
// A stored token is reused; otherwise the browser flow runs and the new token
// is saved. Refreshed tokens are written back to the store.
func GetClient(ctx context.Context, config *oauth2.Config, store TokenStore) (*http.Client, error) {
	tok, err := store.LoadToken()
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			slog.Warn("stored token unusable, re-authorizing", "error", err)
		}
		tok, err = Authorize(ctx, config, store)
		if err != nil {
			return nil, err
		}
	}

	src := &persistingTokenSource{
		base:  config.TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// Authorize runs the browser flow unconditionally and saves the token.
func Authorize(ctx context.Context, config *oauth2.Config, store TokenStore) (*oauth2.Token, error) {
	tok, err := GetTokenFromWeb(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to get token from web: %w", err)
	}

	if err := store.SaveToken(tok); err != nil {
		return nil, fmt.Errorf("unable to save token: %w", err)
	}
	return tok, nil
}

// persistingTokenSource saves every token whose access token changed.
type persistingTokenSource struct {
	base  oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.SaveToken(tok); err != nil {
			slog.Warn("failed to save refreshed token", "error", err)
		} else {
			slog.Debug("saved refreshed token")
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

// GetTokenFromWeb initiates browser-based OAuth flow
func GetTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	config.RedirectURL = fmt.Sprintf("http://localhost:%s%s", localServerPort, callbackPath)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	server := &http.Server{
		Addr:    ":" + localServerPort,
		Handler: mux,
	}

	mux.HandleFunc(callbackPath, callbackHandler(codeCh, errCh))

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sendOnce(errCh, fmt.Errorf("failed to start local server: %w", err))
		}
	}()

	authURL := config.AuthCodeURL(oauthState, oauth2.AccessTypeOffline)

	slog.Info("opening browser for authorization")
	slog.Info("if the browser doesn't open automatically, visit this URL", "url", authURL)

	if err := openBrowser(authURL); err != nil {
		slog.Warn("failed to open browser automatically", "error", err)
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		server.Shutdown(ctx)
		return nil, err
	case <-ctx.Done():
		server.Shutdown(context.Background())
		return nil, ctx.Err()
	}

	server.Shutdown(ctx)

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange authorization code: %w", err)
	}

	return tok, nil
}

// callbackHandler accepts the redirect carrying the authorization code.
// Requests with a foreign state are rejected, and only the first outcome is
// delivered; later callbacks never block.
func callbackHandler(codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != oauthState {
			slog.Warn("ignoring oauth callback with unexpected state")
			http.Error(w, "Error: invalid state parameter", http.StatusBadRequest)
			return
		}

		code := query.Get("code")
		if code == "" {
			sendOnce(errCh, errors.New("no authorization code received"))
			http.Error(w, "Error: No authorization code received", http.StatusBadRequest)
			return
		}

		sendOnce(codeCh, code)
		fmt.Fprintf(w, "Authorization successful! You can close this window and return to smartcal.")
	}
}

func sendOnce[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// openBrowser opens the specified URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}

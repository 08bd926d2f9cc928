package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// GetServiceAccountClient creates an authenticated HTTP client using a
// service account key. A non-empty subject impersonates that user through
// domain-wide delegation.
func GetServiceAccountClient(ctx context.Context, keyPath, subject string) (*http.Client, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account key: %w", err)
	}

	credType, err := DetectCredentialType(data)
	if err != nil {
		return nil, err
	}
	if credType != CredentialTypeServiceAccount {
		return nil, fmt.Errorf("expected service account credentials, got %s", credType)
	}

	config, err := google.JWTConfigFromJSON(data, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key: %w", err)
	}
	config.Subject = subject

	// Tokens are minted on demand from the key; nothing is stored.
	return config.Client(ctx), nil
}

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drewfead/smartcal/pkg/googlecaltest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &out)
	err := cmd.Run(context.Background(), append([]string{"smartcal"}, args...))
	return out.String(), err
}

func TestRootCommand_ICSBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	icsPath := filepath.Join(t.TempDir(), "events.ics")
	cfgPath := writeConfig(t, `backend = "ics"
timezone = "UTC"
log_level = "error"

[ics]
path = "`+icsPath+`"
`)

	today := time.Now().UTC().Format("02/01/2006")

	t.Run("add", func(t *testing.T) {
		out, err := run(t, "", "--config", cfgPath, "add", "00:00 - 00:30, "+today+", Breakfast")
		if err != nil {
			t.Fatalf("add error = %v", err)
		}
		if !strings.HasPrefix(out, "Event created: ") {
			t.Errorf("unexpected output %q", out)
		}
		data, err := os.ReadFile(icsPath)
		if err != nil {
			t.Fatalf("calendar file missing: %v", err)
		}
		if !strings.Contains(string(data), "Breakfast") {
			t.Errorf("calendar file does not contain the event:\n%s", data)
		}
	})

	t.Run("today", func(t *testing.T) {
		out, err := run(t, "", "--config", cfgPath, "today")
		if err != nil {
			t.Fatalf("today error = %v", err)
		}
		want := "Today's events:\nBreakfast from 00:00 to 00:30\n"
		if out != want {
			t.Errorf("output = %q, want %q", out, want)
		}
	})

	t.Run("add rejects bad input", func(t *testing.T) {
		if _, err := run(t, "", "--config", cfgPath, "add", "tomorrow at noon"); err == nil {
			t.Error("expected error for malformed event")
		}
	})

	t.Run("interactive session", func(t *testing.T) {
		stdin := "undo\n10:00 - 11:00, " + today + ", Review R\nundo\nexit\n"
		out, err := run(t, stdin, "--config", cfgPath)
		if err != nil {
			t.Fatalf("session error = %v", err)
		}
		for _, want := range []string{"No event to undo.", "Event created: ", "Last event removed successfully."} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		data, _ := os.ReadFile(icsPath)
		if strings.Contains(string(data), "Review") {
			t.Error("undone event still present in calendar file")
		}
	})

	t.Run("env overrides config", func(t *testing.T) {
		t.Setenv("SMARTCAL_BACKEND", "outlook")
		if _, err := run(t, "", "--config", cfgPath, "today"); err == nil {
			t.Error("expected error for unknown backend from environment")
		}
	})
}

// newServiceAccountKey writes a service account key whose token endpoint is
// tokenURL.
func newServiceAccountKey(t *testing.T, tokenURL string) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "smartcal-test",
		"private_key_id": "test",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "smartcal@smartcal-test.iam.gserviceaccount.com",
		"client_id":      "1",
		"token_uri":      tokenURL,
	})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "service-account.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommand_GoogleBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	api := googlecaltest.NewServer()
	defer api.Close()

	cfgPath := writeConfig(t, `backend = "google"
timezone = "Europe/Dublin"
log_level = "error"

[auth]
service_account_path = "`+newServiceAccountKey(t, tokenServer.URL)+`"
credentials_path = "`+filepath.Join(t.TempDir(), "credentials.json")+`"
`)

	out, err := run(t, "", "--config", cfgPath, "--api-endpoint", api.URL, "add", "14:00 - 15:00, 20/03/2030, Team Meeting R")
	if err != nil {
		t.Fatalf("add error = %v", err)
	}
	if !strings.HasPrefix(out, "Event created: ") {
		t.Errorf("unexpected output %q", out)
	}

	events := api.GetEvents("primary")
	if len(events) != 1 {
		t.Fatalf("expected 1 event on the fake server, got %d", len(events))
	}
	ev := events[0]
	if ev.Summary != "Team Meeting" {
		t.Errorf("summary = %q", ev.Summary)
	}
	if ev.Start.DateTime != "2030-03-20T14:00:00" || ev.Start.TimeZone != "Europe/Dublin" {
		t.Errorf("start = %+v", ev.Start)
	}
	if len(ev.Recurrence) != 1 || ev.Recurrence[0] != "RRULE:FREQ=WEEKLY" {
		t.Errorf("recurrence = %v", ev.Recurrence)
	}
}

func TestRootCommand_GoogleBackendWithoutCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgPath := writeConfig(t, `log_level = "error"`)

	out, err := run(t, "today\nexit\n", "--config", cfgPath)
	if err != nil {
		t.Fatalf("session error = %v", err)
	}
	if !strings.Contains(out, "An error occurred: failed to list events: calendar backend unavailable: ") {
		t.Errorf("expected a reported setup error, got:\n%s", out)
	}
}

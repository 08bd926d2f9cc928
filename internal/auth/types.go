package auth

import (
	"encoding/json"
	"fmt"
)

// CredentialType represents the type of authentication credentials
type CredentialType int

const (
	CredentialTypeUnknown CredentialType = iota
	CredentialTypeOAuthClient
	CredentialTypeServiceAccount
)

// credentialFile holds the fields that tell Google credential files apart.
type credentialFile struct {
	Type      string           `json:"type"`
	Installed *json.RawMessage `json:"installed"`
	Web       *json.RawMessage `json:"web"`
}

// DetectCredentialType examines the JSON structure to determine credential type
func DetectCredentialType(data []byte) (CredentialType, error) {
	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return CredentialTypeUnknown, fmt.Errorf("failed to parse credential file: %w", err)
	}

	switch {
	case f.Type == "service_account":
		return CredentialTypeServiceAccount, nil
	case f.Installed != nil, f.Web != nil:
		return CredentialTypeOAuthClient, nil
	default:
		return CredentialTypeUnknown, fmt.Errorf("unknown credential type")
	}
}

func (t CredentialType) String() string {
	switch t {
	case CredentialTypeOAuthClient:
		return "OAuth Client"
	case CredentialTypeServiceAccount:
		return "Service Account"
	default:
		return "Unknown"
	}
}

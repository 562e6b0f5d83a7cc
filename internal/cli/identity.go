package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const identityFile = "device.json"

// deviceIdentity pins the device id across CLI runs so every invocation
// reports the same install.
type deviceIdentity struct {
	Type           string `json:"type"` // "device_identity"
	SchemaVersion  int    `json:"schemaVersion"`
	DeviceUniqueID string `json:"device_unique_id"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// defaultIdentityPath places the identity next to the store. A sqlite store
// path names a file, so its directory is used.
func defaultIdentityPath(backend, storePath string) (string, error) {
	storePath = strings.TrimSpace(storePath)
	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		storePath = filepath.Join(home, ".adjust")
	} else if backend == "sqlite" {
		storePath = filepath.Dir(storePath)
	}
	if err := os.MkdirAll(storePath, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(storePath, identityFile), nil
}

func loadDeviceIdentity(path string) (*deviceIdentity, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("device identity path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var id deviceIdentity
	if err := json.Unmarshal(b, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func saveDeviceIdentity(path string, id *deviceIdentity) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("device identity path is required")
	}
	if id == nil {
		return errors.New("device identity is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

// ensureDeviceIdentity loads the identity at path, creating one on first use.
func ensureDeviceIdentity(path string, now time.Time) (*deviceIdentity, error) {
	id, err := loadDeviceIdentity(path)
	if err != nil {
		return nil, err
	}
	if id != nil && id.DeviceUniqueID != "" {
		return id, nil
	}
	id = &deviceIdentity{
		Type:           "device_identity",
		SchemaVersion:  1,
		DeviceUniqueID: uuid.NewString(),
		CreatedAt:      now.UTC().Format(time.RFC3339Nano),
	}
	if err := saveDeviceIdentity(path, id); err != nil {
		return nil, err
	}
	return id, nil
}

func parseRFC3339Any(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	// Try nano first (what we emit), fall back to second precision.
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

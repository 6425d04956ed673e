// Package credentials manages the agent-service API key stored in
// credentials.toml inside the .reel/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/reel/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// EnvAPIKey overrides the stored key when set. Useful for CI and for
	// one-off runs against another service instance.
	EnvAPIKey = "REEL_API_KEY"
)

// Manager manages reading and writing credentials.toml in the .reel/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .reel/ directory; otherwise the standard dotdir resolution applies.
// When no .reel/ directory is found, one is created at ~/.reel/.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home dir: %w", err)
		}
		target = filepath.Join(home, ".reel")
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("creating reel dir: %w", err)
		}
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{Version: currentVersion}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores the service API key.
func (m *Manager) SetKey(key string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.APIKey = key

	return m.Save(creds)
}

// GetKey returns the stored API key. Returns an empty string if no key is
// stored. The environment override is not consulted; use Resolve for that.
func (m *Manager) GetKey() (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.APIKey, nil
}

// RemoveKey deletes the stored API key.
func (m *Manager) RemoveKey() error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.APIKey = ""

	return m.Save(creds)
}

// Resolve returns the API key to use: the EnvAPIKey environment variable when
// set, otherwise the stored key. An empty result means no key is configured.
func (m *Manager) Resolve() (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}

	return m.GetKey()
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

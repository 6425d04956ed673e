package credentials

// Credentials represents the stored secret in credentials.toml. The service
// uses a single API key; there is no per-provider keyring.
type Credentials struct {
	Version int    `toml:"version"`
	APIKey  string `toml:"api_key,omitempty"`
}

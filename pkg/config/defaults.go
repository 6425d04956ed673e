package config

const (
	defaultBaseURL      = "http://localhost:8417"
	defaultStreaming    = true
	defaultSSEBufferKiB = 64

	defaultHistoryEnabled = true

	defaultMockListen = ":8417"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL:          defaultBaseURL,
			StreamingDefault: defaultStreaming,
			SSEBufferKiB:     defaultSSEBufferKiB,
		},
		History: HistoryConfig{
			Enabled: defaultHistoryEnabled,
		},
		Mock: MockConfig{
			Listen: defaultMockListen,
		},
	}
}

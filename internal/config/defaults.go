package config

const (
	defaultBaseURL               = "http://localhost:3000"
	defaultRequestTimeout        = 30
	defaultStateDir              = "~/.local/share/dialer"
	defaultLogDir                = "~/.local/share/dialer/logs"
	defaultExportDir             = "."
	defaultReconnectDelaySeconds = 5
	defaultMaxCSVBytes           = 5 * 1024 * 1024
	defaultBusChannel            = "dialer:assets"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			RequestTimeout: defaultRequestTimeout,
		},
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Live: Live{
			Enabled:               true,
			ReconnectDelaySeconds: defaultReconnectDelaySeconds,
		},
		Upload: Upload{
			MaxCSVBytes: defaultMaxCSVBytes,
		},
		Bus: Bus{
			Channel: defaultBusChannel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

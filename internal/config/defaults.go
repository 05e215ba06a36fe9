package config

const (
	defaultBaseURL             = "http://127.0.0.1:3000"
	defaultAPITimeoutSeconds   = 10
	defaultPollIntervalMillis  = 1500
	defaultFetchTimeoutSeconds = 5
	defaultMissingTolerance    = 3
	defaultStateDir            = "~/.local/share/barberq"
	defaultLogDir              = "~/.local/share/barberq/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultAPITimeoutSeconds,
		},
		Polling: Polling{
			IntervalMillis:      defaultPollIntervalMillis,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
			MissingTolerance:    defaultMissingTolerance,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Barbers: []Barber{
			{ID: "junior", Name: "Junior"},
			{ID: "yago", Name: "Yago"},
			{ID: "reine", Name: "Reine"},
		},
	}
}

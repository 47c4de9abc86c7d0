package config

const (
	defaultDataDir                = "~/.local/share/cratedig"
	defaultDatasetOwner           = "dhruvildave"
	defaultDatasetSlug            = "spotify-charts"
	defaultDatasetFile            = "charts.csv"
	defaultDatasetBaseURL         = "https://www.kaggle.com/api/v1"
	defaultCredentialsFile        = "~/.kaggle/kaggle.json"
	defaultDatasetDownloadTimeout = 3600
	defaultFetchWorkers           = 12
	defaultClipSeconds            = 30
	defaultAudioFormat            = "mp3"
	defaultAudioQuality           = "192"
	defaultFetchBinary            = "yt-dlp"
	defaultResolveTimeout         = 120
	defaultFetchDownloadTimeout   = 600
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Dataset: Dataset{
			Owner:           defaultDatasetOwner,
			Slug:            defaultDatasetSlug,
			File:            defaultDatasetFile,
			BaseURL:         defaultDatasetBaseURL,
			CredentialsFile: defaultCredentialsFile,
			DownloadTimeout: defaultDatasetDownloadTimeout,
		},
		Fetch: Fetch{
			Workers:         defaultFetchWorkers,
			ClipSeconds:     defaultClipSeconds,
			AudioFormat:     defaultAudioFormat,
			AudioQuality:    defaultAudioQuality,
			Binary:          defaultFetchBinary,
			ResolveTimeout:  defaultResolveTimeout,
			DownloadTimeout: defaultFetchDownloadTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunStart:       true,
			RunComplete:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

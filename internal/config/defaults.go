package config

const (
	defaultDataDir            = "~/.local/share/recast"
	defaultWorkDir            = "~/.local/share/recast/work"
	defaultLogDir             = "~/.local/share/recast/logs"
	defaultAPIBind            = "127.0.0.1:7319"
	defaultCaptionsBaseURL    = "https://video.google.com/timedtext"
	defaultCaptionTimeout     = 15
	defaultCaptionRPM         = 30
	defaultMetadataBaseURL    = "https://www.youtube.com/oembed"
	defaultMetadataTimeout    = 5
	defaultFetchBinary        = "yt-dlp"
	defaultProbeTimeout       = 60
	defaultDownloadTimeout    = 300
	defaultSpeechBaseURL      = "https://api.assemblyai.com/v2"
	defaultSpeechPollInterval = 5
	defaultSpeechTimeout      = 30
	defaultLLMBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	defaultLLMModel           = "gemini-2.0-flash"
	defaultLLMTimeout         = 60
	defaultFreeLimit          = 3
	defaultWorkers            = 2
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"

	// UnlimitedQuota is the sentinel limit for plans without a monthly cap.
	UnlimitedQuota = -1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Captions: Captions{
			BaseURL:            defaultCaptionsBaseURL,
			PreferredLanguages: []string{"fr", "en"},
			RequestTimeout:     defaultCaptionTimeout,
			RequestsPerMinute:  defaultCaptionRPM,
		},
		Metadata: Metadata{
			BaseURL:        defaultMetadataBaseURL,
			RequestTimeout: defaultMetadataTimeout,
		},
		MediaFetch: MediaFetch{
			Binary:          defaultFetchBinary,
			ProbeTimeout:    defaultProbeTimeout,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Transcription: Transcription{
			BaseURL:        defaultSpeechBaseURL,
			PollInterval:   defaultSpeechPollInterval,
			RequestTimeout: defaultSpeechTimeout,
		},
		Generation: Generation{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			RequestTimeout: defaultLLMTimeout,
		},
		Quota: Quota{
			FreeLimit:       defaultFreeLimit,
			ProLimit:        UnlimitedQuota,
			EnterpriseLimit: UnlimitedQuota,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package config

const (
	defaultDataDir              = "~/.local/share/cashcue"
	defaultLogDir               = "~/.local/share/cashcue/logs"
	defaultInboxDir             = "~/.local/share/cashcue/inbox"
	defaultAPIBind              = "127.0.0.1:7580"
	defaultInferenceBackend     = BackendHTTP
	defaultInferenceURL         = "http://localhost:5000/predict"
	defaultInferenceTimeout     = 10
	defaultInferenceInputSize   = 640
	defaultInferenceScoreFloor  = 0.05
	defaultInferenceIOU         = 0.45
	defaultConfidenceThreshold  = 0.25
	defaultWindowSize           = 3
	defaultRoundIntervalMS      = 300
	defaultCameraDevice         = "/dev/video0"
	defaultFFmpegBinary         = "ffmpeg"
	defaultCameraInputFormat    = "v4l2"
	defaultCaptureTimeout       = 5
	defaultCameraMaxEdge        = 1280
	defaultAnnounceCommand      = "espeak-ng"
	defaultAnnounceRate         = 160
	defaultAnnounceLanguage     = "en"
	defaultAnnounceUnit         = "rupees"
	defaultAnnounceCooldown     = 5
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// DefaultAllowList is the reference set of recognised denominations.
var DefaultAllowList = []string{"20", "50", "100", "200", "500"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			InboxDir: defaultInboxDir,
			APIBind:  defaultAPIBind,
		},
		Inference: Inference{
			Backend:        defaultInferenceBackend,
			URL:            defaultInferenceURL,
			TimeoutSeconds: defaultInferenceTimeout,
			Labels:         append([]string(nil), DefaultAllowList...),
			InputSize:      defaultInferenceInputSize,
			ScoreFloor:     defaultInferenceScoreFloor,
			IOUThreshold:   defaultInferenceIOU,
		},
		Detection: Detection{
			AllowList:           append([]string(nil), DefaultAllowList...),
			ConfidenceThreshold: defaultConfidenceThreshold,
			WindowSize:          defaultWindowSize,
		},
		Live: Live{
			RoundIntervalMS: defaultRoundIntervalMS,
		},
		Camera: Camera{
			Device:                defaultCameraDevice,
			FFmpegBinary:          defaultFFmpegBinary,
			InputFormat:           defaultCameraInputFormat,
			CaptureTimeoutSeconds: defaultCaptureTimeout,
			MaxEdge:               defaultCameraMaxEdge,
		},
		Announce: Announce{
			Enabled:         true,
			Command:         defaultAnnounceCommand,
			Rate:            defaultAnnounceRate,
			Language:        defaultAnnounceLanguage,
			Unit:            defaultAnnounceUnit,
			CooldownSeconds: defaultAnnounceCooldown,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Confirmations:  true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

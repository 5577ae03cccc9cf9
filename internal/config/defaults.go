package config

const (
	defaultOutputDir             = "~/.local/share/skyreel/output"
	defaultStateDir              = "~/.local/share/skyreel/state"
	defaultLogDir                = "~/.local/share/skyreel/logs"
	defaultSessionFileName       = "instagram_session.json"
	defaultMaxUploadMB           = 100
	defaultPostingTime           = "09:00"
	defaultPollIntervalSeconds   = 60
	defaultNASAAPIKey            = "DEMO_KEY"
	defaultAPODURL               = "https://api.nasa.gov/planetary/apod"
	defaultNewsFeedURL           = "https://www.space.com/feeds/all"
	defaultPreferredSource       = "apod"
	defaultCacheTTLSeconds       = 3600
	defaultRequestTimeoutSeconds = 10
	defaultUserAgent             = "skyreel/0.1 (+daily space reels)"
	defaultCaptionHandle         = "ventureuniverse"
	defaultMaxHashtags           = 10
	defaultMaxBodyChars          = 2000
	defaultReelDurationSeconds   = 15
	defaultReelFPS               = 30
	defaultProfilePicPath        = "~/.local/share/skyreel/profile_pic.jpg"
	defaultLogoPath              = "~/.local/share/skyreel/logo.png"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultEncodeTimeoutSeconds  = 60
	defaultMinVideoMB            = 0.1
	defaultKeepRecentFrames      = 2
	defaultKeepArchived          = 30
	defaultNtfyRequestTimeout    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

var defaultHashtags = []string{
	"#space", "#astronomy", "#nasa", "#spacex", "#universe",
	"#cosmos", "#astrophysics", "#spaceexploration", "#ventureuniverse", "#spacenews",
	"#science", "#galaxy", "#stars", "#spacefacts",
}

var defaultFontPaths = []string{
	"/System/Library/Fonts/Helvetica.ttc",
	"/usr/share/fonts/truetype/msttcorefonts/Arial.ttf",
	"/usr/share/fonts/TTF/arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Instagram: Instagram{
			MaxUploadMB: defaultMaxUploadMB,
		},
		Schedule: Schedule{
			PostingTime:         defaultPostingTime,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			SkipIfPostedToday:   true,
		},
		Content: Content{
			APODURL:               defaultAPODURL,
			NewsFeedURL:           defaultNewsFeedURL,
			PreferredSource:       defaultPreferredSource,
			CacheTTLSeconds:       defaultCacheTTLSeconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			UserAgent:             defaultUserAgent,
		},
		Caption: Caption{
			Handle:       defaultCaptionHandle,
			Hashtags:     append([]string(nil), defaultHashtags...),
			MaxHashtags:  defaultMaxHashtags,
			MaxBodyChars: defaultMaxBodyChars,
		},
		Reel: Reel{
			DurationSeconds:      defaultReelDurationSeconds,
			FPS:                  defaultReelFPS,
			ProfilePicPath:       defaultProfilePicPath,
			LogoPath:             defaultLogoPath,
			FontPaths:            append([]string(nil), defaultFontPaths...),
			FFmpegBinary:         defaultFFmpegBinary,
			FFprobeBinary:        defaultFFprobeBinary,
			EncodeTimeoutSeconds: defaultEncodeTimeoutSeconds,
			MinVideoMB:           defaultMinVideoMB,
			KeepRecentFrames:     defaultKeepRecentFrames,
			KeepArchived:         defaultKeepArchived,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Posted:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

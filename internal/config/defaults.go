package config

const (
	defaultBind                = "0.0.0.0"
	defaultPort                = 3001
	defaultBodyLimitMB         = 50
	defaultAllowOrigins        = "*"
	defaultReadTimeoutSeconds  = 30
	defaultWriteTimeoutSeconds = 60
	defaultIdleTimeoutSeconds  = 60
	defaultMaxAttachmentMB     = 10
	defaultRecipient           = "tripfarm.oficial@gmail.com"
	defaultMailProfile         = ProfileGmail
	defaultMailTimeoutSeconds  = 30
	defaultTimezone            = "America/Sao_Paulo"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultClientBaseURL       = "http://localhost:3001"
	defaultClientTimeout       = 60
	defaultMaxRecordingMB      = 4
	defaultAudioQuestion       = "1"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFplayBinary        = "ffplay"
)

// Mail transport profiles.
const (
	ProfileGmail   = "gmail"
	ProfileSMTP2GO = "smtp2go"
	ProfileCustom  = "custom"
)

// TLS policies accepted by mail.tls.
const (
	TLSStartTLS      = "starttls"
	TLSOpportunistic = "opportunistic"
	TLSImplicit      = "ssl"
	TLSNone          = "none"
)

type mailPreset struct {
	host    string
	port    int
	tls     string
	userEnv string
	passEnv string
}

var mailPresets = map[string]mailPreset{
	ProfileGmail: {
		host:    "smtp.gmail.com",
		port:    587,
		tls:     TLSStartTLS,
		userEnv: "EMAIL_USER",
		passEnv: "EMAIL_PASS",
	},
	ProfileSMTP2GO: {
		host:    "mail.smtp2go.com",
		port:    2525,
		tls:     TLSOpportunistic,
		userEnv: "SMTP2GO_USER",
		passEnv: "SMTP2GO_PASS",
	},
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:                defaultBind,
			Port:                defaultPort,
			BodyLimitMB:         defaultBodyLimitMB,
			AllowOrigins:        defaultAllowOrigins,
			ReadTimeoutSeconds:  defaultReadTimeoutSeconds,
			WriteTimeoutSeconds: defaultWriteTimeoutSeconds,
			IdleTimeoutSeconds:  defaultIdleTimeoutSeconds,
		},
		Intake: Intake{
			MaxAttachmentMB: defaultMaxAttachmentMB,
			Recipient:       defaultRecipient,
		},
		Mail: Mail{
			Profile:        defaultMailProfile,
			TimeoutSeconds: defaultMailTimeoutSeconds,
		},
		Archive: Archive{
			Timezone: defaultTimezone,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Client: Client{
			BaseURL:        defaultClientBaseURL,
			TimeoutSeconds: defaultClientTimeout,
			MaxRecordingMB: defaultMaxRecordingMB,
			AudioQuestion:  defaultAudioQuestion,
			FFmpegBinary:   defaultFFmpegBinary,
			FFplayBinary:   defaultFFplayBinary,
		},
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeServer(); err != nil {
		return err
	}
	c.normalizeIntake()
	c.normalizeMail()
	c.normalizeArchive()
	c.normalizeClient()
	return c.normalizeLogging()
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if value, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("PORT: invalid value %q", value)
		}
		c.Server.Port = port
	}
	if c.Server.StaticDir == "" {
		if value, ok := os.LookupEnv("TRIPFARM_STATIC_DIR"); ok {
			c.Server.StaticDir = value
		}
	}
	c.Server.StaticDir = strings.TrimSpace(c.Server.StaticDir)
	if c.Server.StaticDir != "" {
		expanded, err := expandPath(c.Server.StaticDir)
		if err != nil {
			return fmt.Errorf("server.static_dir: %w", err)
		}
		c.Server.StaticDir = expanded
	}
	c.Server.AllowOrigins = strings.TrimSpace(c.Server.AllowOrigins)
	if c.Server.AllowOrigins == "" {
		c.Server.AllowOrigins = defaultAllowOrigins
	}
	return nil
}

func (c *Config) normalizeIntake() {
	if c.Intake.Recipient == "" {
		if value, ok := os.LookupEnv("MAIL_RECIPIENT"); ok {
			c.Intake.Recipient = value
		}
	}
	c.Intake.Recipient = strings.TrimSpace(c.Intake.Recipient)
	if c.Intake.Recipient == "" {
		c.Intake.Recipient = defaultRecipient
	}
}

func (c *Config) normalizeMail() {
	c.Mail.Profile = strings.ToLower(strings.TrimSpace(c.Mail.Profile))
	if c.Mail.Profile == "" {
		c.Mail.Profile = defaultMailProfile
	}
	if preset, ok := mailPresets[c.Mail.Profile]; ok {
		if strings.TrimSpace(c.Mail.Host) == "" {
			c.Mail.Host = preset.host
		}
		if c.Mail.Port == 0 {
			c.Mail.Port = preset.port
		}
		if strings.TrimSpace(c.Mail.TLS) == "" {
			c.Mail.TLS = preset.tls
		}
		if c.Mail.Username == "" {
			c.Mail.Username = os.Getenv(preset.userEnv)
		}
		if c.Mail.Password == "" {
			c.Mail.Password = os.Getenv(preset.passEnv)
		}
	}
	c.Mail.Host = strings.TrimSpace(c.Mail.Host)
	c.Mail.Username = strings.TrimSpace(c.Mail.Username)
	c.Mail.TLS = strings.ToLower(strings.TrimSpace(c.Mail.TLS))
	if c.Mail.TLS == "" {
		c.Mail.TLS = TLSStartTLS
	}
	if c.Mail.From == "" {
		c.Mail.From = os.Getenv("MAIL_FROM")
	}
	c.Mail.From = strings.TrimSpace(c.Mail.From)
	if c.Mail.From == "" {
		c.Mail.From = c.Mail.Username
	}
	c.Mail.ReplyTo = strings.TrimSpace(c.Mail.ReplyTo)
}

func (c *Config) normalizeArchive() {
	c.Archive.Timezone = strings.TrimSpace(c.Archive.Timezone)
	if c.Archive.Timezone == "" {
		c.Archive.Timezone = defaultTimezone
	}
}

func (c *Config) normalizeClient() {
	c.Client.BaseURL = strings.TrimRight(strings.TrimSpace(c.Client.BaseURL), "/")
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = defaultClientBaseURL
	}
	c.Client.AudioQuestion = strings.TrimSpace(c.Client.AudioQuestion)
	if c.Client.AudioQuestion == "" {
		c.Client.AudioQuestion = defaultAudioQuestion
	}
	c.Client.CaptureInput = strings.TrimSpace(c.Client.CaptureInput)
	c.Client.FFmpegBinary = strings.TrimSpace(c.Client.FFmpegBinary)
	if c.Client.FFmpegBinary == "" {
		c.Client.FFmpegBinary = defaultFFmpegBinary
	}
	c.Client.FFplayBinary = strings.TrimSpace(c.Client.FFplayBinary)
	if c.Client.FFplayBinary == "" {
		c.Client.FFplayBinary = defaultFFplayBinary
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Logging.Dir))
		if err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
		c.Logging.Dir = expanded
	}
	return nil
}

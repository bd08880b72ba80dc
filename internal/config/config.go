package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains HTTP listener and static asset configuration.
type Server struct {
	Bind                string `toml:"bind"`
	Port                int    `toml:"port"`
	StaticDir           string `toml:"static_dir"`
	BodyLimitMB         int    `toml:"body_limit_mb"`
	AllowOrigins        string `toml:"allow_origins"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `toml:"idle_timeout_seconds"`
}

// Intake contains submission handling limits and delivery target.
type Intake struct {
	MaxAttachmentMB int    `toml:"max_attachment_mb"`
	Recipient       string `toml:"recipient"`
}

// Mail contains the outbound SMTP transport settings.
//
// Profile selects preset host/port/tls values and the environment variables
// used for credentials:
//   - gmail: smtp.gmail.com:587, EMAIL_USER / EMAIL_PASS
//   - smtp2go: mail.smtp2go.com:2525, SMTP2GO_USER / SMTP2GO_PASS
//   - custom: host, port and tls taken verbatim from the file
type Mail struct {
	Profile        string `toml:"profile"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	From           string `toml:"from"`
	ReplyTo        string `toml:"reply_to"`
	TLS            string `toml:"tls"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Archive contains settings for the generated ZIP bundle.
type Archive struct {
	Timezone string `toml:"timezone"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Client contains settings used by the submit and record commands.
type Client struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRecordingMB int    `toml:"max_recording_mb"`
	AudioQuestion  string `toml:"audio_question"`
	CaptureInput   string `toml:"capture_input"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFplayBinary   string `toml:"ffplay_binary"`
}

// Config encapsulates all configuration values for TripFarm.
//
// Configuration sections by subsystem:
//   - Server: listener, static assets, body limit and timeouts
//   - Intake: attachment limit and the mailbox receiving submissions
//   - Mail: SMTP transport profile and credentials
//   - Archive: timezone used for the readable answers file
//   - Logging: log format, level and optional log directory
//   - Client: submit/record command defaults
type Config struct {
	Server  Server  `toml:"server"`
	Intake  Intake  `toml:"intake"`
	Mail    Mail    `toml:"mail"`
	Archive Archive `toml:"archive"`
	Logging Logging `toml:"logging"`
	Client  Client  `toml:"client"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tripfarm/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory (or TRIPFARM_ENV_FILE) is loaded first so credential
// fallbacks resolve the same way they do in the environment.
func Load(path string) (*Config, string, bool, error) {
	if err := loadEnvFile(); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvFile reads dotenv entries without overriding variables already set.
func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("TRIPFARM_ENV_FILE"))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tripfarm.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ListenAddress returns the host:port the HTTP server binds to.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Bind, strconv.Itoa(c.Server.Port))
}

// MailConfigured reports whether SMTP credentials are present. Submissions
// are still accepted without them but dispatch fails.
func (c *Config) MailConfigured() bool {
	return strings.TrimSpace(c.Mail.Username) != "" && strings.TrimSpace(c.Mail.Password) != ""
}

// BodyLimitBytes returns the transport-level request body cap.
func (c *Config) BodyLimitBytes() int {
	return c.Server.BodyLimitMB * 1024 * 1024
}

// MaxAttachmentBytes returns the upload cap for the audio attachment.
func (c *Config) MaxAttachmentBytes() int64 {
	return int64(c.Intake.MaxAttachmentMB) * 1024 * 1024
}

// MaxRecordingBytes returns the client-side capture cap.
func (c *Config) MaxRecordingBytes() int {
	return c.Client.MaxRecordingMB * 1024 * 1024
}

// MailTimeout returns the SMTP dial/send timeout.
func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.Mail.TimeoutSeconds) * time.Second
}

// ClientTimeout returns the submit request timeout.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

// Location resolves the archive timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Archive.Timezone)
	if err != nil {
		return nil, fmt.Errorf("archive.timezone: %w", err)
	}
	return loc, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

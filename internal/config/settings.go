package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ytget/flowfetch/internal/platform"
)

// EnvPrefix is prepended to every environment override, e.g. FLOWFETCH_OUTPUT_DIR
const EnvPrefix = "FLOWFETCH"

// Settings keys
const (
	KeyOutputDir     = "output_dir"
	KeyHTTPTimeout   = "http_timeout"
	KeyChunkSize     = "chunk_size"
	KeyProgressEvery = "progress_every"
	KeyUserAgent     = "user_agent"
	KeyLanguage      = "lang"
	KeyLogLevel      = "log_level"
	KeyStrict        = "strict"
	KeyReveal        = "reveal"
)

// Default values
const (
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultChunkSize     = 8192
	DefaultProgressEvery = 10
	DefaultUserAgent     = "flowfetch/1.0"
	DefaultLanguage      = "en"
	DefaultLogLevel      = "warn"
	DefaultFileExtension = ".jpg"
	MaxChunkSize         = 4 << 20
)

// Settings manages application configuration
type Settings struct {
	v *viper.Viper
}

// NewSettings creates a settings manager reading FLOWFETCH_* environment overrides
func NewSettings() *Settings {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyHTTPTimeout, DefaultHTTPTimeout)
	v.SetDefault(KeyChunkSize, DefaultChunkSize)
	v.SetDefault(KeyProgressEvery, DefaultProgressEvery)
	v.SetDefault(KeyUserAgent, DefaultUserAgent)
	v.SetDefault(KeyLanguage, DefaultLanguage)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyStrict, false)
	v.SetDefault(KeyReveal, false)

	return &Settings{v: v}
}

// BindFlag makes a command-line flag take precedence over env and defaults
func (s *Settings) BindFlag(key string, flag *pflag.Flag) error {
	return s.v.BindPFlag(key, flag)
}

// GetOutputDirectory returns the configured output directory
func (s *Settings) GetOutputDirectory() string {
	dir := s.v.GetString(KeyOutputDir)
	if dir == "" {
		// Use ~/Downloads/flow_images
		dir = platform.DefaultOutputDir()
		s.SetOutputDirectory(dir)
	}
	return dir
}

// SetOutputDirectory sets the output directory
func (s *Settings) SetOutputDirectory(dir string) {
	s.v.Set(KeyOutputDir, dir)
}

// GetHTTPTimeout returns the per-request timeout
func (s *Settings) GetHTTPTimeout() time.Duration {
	timeout := s.v.GetDuration(KeyHTTPTimeout)
	if timeout <= 0 {
		s.SetHTTPTimeout(DefaultHTTPTimeout)
		return DefaultHTTPTimeout
	}
	return timeout
}

// SetHTTPTimeout sets the per-request timeout
func (s *Settings) SetHTTPTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	s.v.Set(KeyHTTPTimeout, timeout)
}

// GetChunkSize returns the write buffer size in bytes
func (s *Settings) GetChunkSize() int {
	size := s.v.GetInt(KeyChunkSize)
	if size <= 0 || size > MaxChunkSize {
		s.SetChunkSize(size)
		return s.v.GetInt(KeyChunkSize)
	}
	return size
}

// SetChunkSize sets the write buffer size, clamped to [1, MaxChunkSize]
func (s *Settings) SetChunkSize(size int) {
	if size < 1 {
		size = DefaultChunkSize
	}
	if size > MaxChunkSize {
		size = MaxChunkSize
	}
	s.v.Set(KeyChunkSize, size)
}

// GetProgressEvery returns how many items pass between progress lines
func (s *Settings) GetProgressEvery() int {
	n := s.v.GetInt(KeyProgressEvery)
	if n <= 0 {
		s.SetProgressEvery(DefaultProgressEvery)
		return DefaultProgressEvery
	}
	return n
}

// SetProgressEvery sets the progress interval
func (s *Settings) SetProgressEvery(n int) {
	if n < 1 {
		n = DefaultProgressEvery
	}
	s.v.Set(KeyProgressEvery, n)
}

// GetUserAgent returns the User-Agent sent with every request
func (s *Settings) GetUserAgent() string {
	ua := s.v.GetString(KeyUserAgent)
	if ua == "" {
		return DefaultUserAgent
	}
	return ua
}

// GetLanguage returns the configured console language
func (s *Settings) GetLanguage() string {
	lang := s.v.GetString(KeyLanguage)
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}

// GetLogLevel returns the diagnostic log level
func (s *Settings) GetLogLevel() string {
	level := s.v.GetString(KeyLogLevel)
	if level == "" {
		return DefaultLogLevel
	}
	return level
}

// GetStrict reports whether per-record failures should fail the process
func (s *Settings) GetStrict() bool {
	return s.v.GetBool(KeyStrict)
}

// GetAutoReveal reports whether the output directory is opened after the run
func (s *Settings) GetAutoReveal() bool {
	return s.v.GetBool(KeyReveal)
}

// GetFileExtension returns the extension of written images
func (s *Settings) GetFileExtension() string {
	return DefaultFileExtension
}

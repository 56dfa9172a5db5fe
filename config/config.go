// Package config resolves runtime settings from REKAM_* environment
// variables, an optional .env file and built-in defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "REKAM"

	RecorderDevice = "device"
	RecorderFFmpeg = "ffmpeg"
)

type Config struct {
	APIBase        string        `mapstructure:"api_base" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	Recorder       string        `mapstructure:"recorder" validate:"oneof=device ffmpeg"`
	Device         string        `mapstructure:"device"`
	FFmpegCommand  string        `mapstructure:"ffmpeg_command" validate:"required"`
	InputFormat    string        `mapstructure:"input_format" validate:"required"`
	InputDevice    string        `mapstructure:"input_device" validate:"required"`
	LogPath        string        `mapstructure:"log_path"`

	// reference store server
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	DataDir    string `mapstructure:"data_dir" validate:"required"`
	PublicURL  string `mapstructure:"public_url" validate:"omitempty,url"`
}

// Load reads envFile (if it exists; empty means REKAM_ENV_FILE or ".env")
// and the environment, and returns the validated configuration.
func Load(envFile string) (*Config, error) {
	v, err := newViper(envFile)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper(envFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefault(v)

	if envFile == "" {
		envFile = os.Getenv(EnvPrefix + "_ENV_FILE")
	}
	if envFile == "" {
		envFile = ".env"
	}
	vals, err := godotenv.Read(envFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	default:
		// file values sit between defaults and the real environment
		for k, val := range vals {
			key, ok := strings.CutPrefix(k, EnvPrefix+"_")
			if !ok {
				continue
			}
			v.SetDefault(strings.ToLower(key), val)
		}
	}
	return v, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("API_BASE", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("RECORDER", RecorderFFmpeg)
	v.SetDefault("DEVICE", "")
	v.SetDefault("FFMPEG_COMMAND", "ffmpeg")
	v.SetDefault("LOG_PATH", "")

	format, device := defaultInput()
	v.SetDefault("INPUT_FORMAT", format)
	v.SetDefault("INPUT_DEVICE", device)

	v.SetDefault("LISTEN_ADDR", ":3000")
	v.SetDefault("DATA_DIR", "rekam-data")
	v.SetDefault("PUBLIC_URL", "")
}

// defaultInput picks the ffmpeg capture input for the host OS.
func defaultInput() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

var validate = validator.New()

// Validate checks the configuration after flag overrides are applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Package config loads mudra's configuration from defaults, an optional YAML
// file, a .env file and MUDRA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ayusman/mudra/internal/features"
)

// EnvPrefix prefixes environment overrides, e.g. MUDRA_CAMERA_DEVICE.
const EnvPrefix = "MUDRA"

// Display modes.
const (
	DisplayWindow = "window"
	DisplayStream = "stream"
	DisplayNone   = "none"
)

// Config is the main application configuration.
type Config struct {
	Camera     CameraConfig     `mapstructure:"camera"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Display    DisplayConfig    `mapstructure:"display"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Tray       TrayConfig       `mapstructure:"tray"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
}

// CameraConfig selects the frame source.
type CameraConfig struct {
	Device int `mapstructure:"device"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	FPS    int `mapstructure:"fps"`
	// VideoFile replays a recording instead of opening Device.
	VideoFile string `mapstructure:"video_file"`
}

// DetectorConfig configures the MediaPipe hand landmark service.
type DetectorConfig struct {
	MaxHands              int     `mapstructure:"max_hands"`
	MinConfidence         float64 `mapstructure:"min_confidence"`
	MinTrackingConfidence float64 `mapstructure:"min_tracking_confidence"`
	Script                string  `mapstructure:"script"`
	Python                string  `mapstructure:"python"`
}

// ClassifierConfig locates the gesture model and its label catalog.
type ClassifierConfig struct {
	Model  string `mapstructure:"model"`
	Labels string `mapstructure:"labels"`
	// AxisOrder is rows_cols or cols_rows.
	AxisOrder string `mapstructure:"axis_order"`
	// RegistryName resolves Model and Labels from the model registry.
	RegistryName string `mapstructure:"registry_name"`
}

// DisplayConfig controls where annotated frames go.
type DisplayConfig struct {
	Mode          string `mapstructure:"mode"`
	WindowTitle   string `mapstructure:"window_title"`
	DrawLandmarks bool   `mapstructure:"draw_landmarks"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// StoreConfig locates the model registry database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// TrayConfig toggles the system tray.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MQTTConfig holds settings for the MQTT client connection.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// Load reads configuration from defaults, configPath (optional), a .env file
// in the working directory and the environment, in increasing priority.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Infof("Config loaded from %s", configPath)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Display.Mode = strings.ToLower(cfg.Display.Mode)

	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// setDefaults sets default values for all keys.
func setDefaults(v *viper.Viper) {
	home := homeDir()

	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 30)
	v.SetDefault("camera.video_file", "")

	v.SetDefault("detector.max_hands", 1)
	v.SetDefault("detector.min_confidence", 0.7)
	v.SetDefault("detector.min_tracking_confidence", 0.5)
	v.SetDefault("detector.script", "")
	v.SetDefault("detector.python", "")

	v.SetDefault("classifier.model", "")
	v.SetDefault("classifier.labels", "")
	v.SetDefault("classifier.axis_order", features.AxisRowsCols.String())
	v.SetDefault("classifier.registry_name", "")

	v.SetDefault("display.mode", DisplayWindow)
	v.SetDefault("display.window_title", "mudra")
	v.SetDefault("display.draw_landmarks", false)

	v.SetDefault("server.addr", "127.0.0.1:8420")
	v.SetDefault("server.static_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("store.path", filepath.Join(home, ".mudra", "mudra.db"))

	v.SetDefault("tray.enabled", false)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "mudra")
	v.SetDefault("mqtt.topic", "mudra/gesture")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Validate checks enumerations and value ranges. Model paths are checked when
// the classifier is opened, since they may come from the registry.
func (c *Config) Validate() error {
	var errs []error

	switch c.Display.Mode {
	case DisplayWindow, DisplayStream, DisplayNone:
	default:
		errs = append(errs, fmt.Errorf("display.mode %q: want window, stream or none", c.Display.Mode))
	}
	if _, ok := features.ParseAxisOrder(c.Classifier.AxisOrder); !ok {
		errs = append(errs, fmt.Errorf("classifier.axis_order %q: want rows_cols or cols_rows", c.Classifier.AxisOrder))
	}
	if c.Detector.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be at least 1, got %d", c.Detector.MaxHands))
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_confidence must be in [0, 1], got %g", c.Detector.MinConfidence))
	}
	if c.Camera.FPS < 0 {
		errs = append(errs, fmt.Errorf("camera.fps must not be negative, got %d", c.Camera.FPS))
	}
	if c.Display.Mode == DisplayWindow && c.Tray.Enabled {
		errs = append(errs, errors.New("tray.enabled cannot be combined with display.mode window: both need the main thread"))
	}
	if c.Display.Mode == DisplayStream && c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required for display.mode stream"))
	}
	if c.MQTT.Enabled && (c.MQTT.Broker == "" || c.MQTT.Topic == "") {
		errs = append(errs, errors.New("mqtt.broker and mqtt.topic are required when mqtt is enabled"))
	}

	return errors.Join(errs...)
}

// Axes returns the parsed classifier axis order.
func (c *Config) Axes() features.AxisOrder {
	a, _ := features.ParseAxisOrder(c.Classifier.AxisOrder)
	return a
}

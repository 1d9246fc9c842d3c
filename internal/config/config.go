package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "LATEMATE"

// Config is the resolved console configuration.
type Config struct {
	Port     string
	LogLevel string
	DBPath   string

	DeviceURL string
	USBVID    string
	USBPID    string

	SweepStep      int
	SweepTick      time.Duration
	SweepThreshold float64
	SurfaceWidth   int
	SurfaceHeight  int

	BatchCount    int
	BatchInterval time.Duration

	ArchiveDir string
	SigningKey string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "latemate.db")

	v.SetDefault("device.url", "ws://127.0.0.1:9118/ws")
	v.SetDefault("device.usb_vid", "2E8A")
	v.SetDefault("device.usb_pid", "108B")

	// telemetry arrives at ~50Hz; sweeping at 25Hz keeps one fresh sample per step
	v.SetDefault("calibration.step", 40)
	v.SetDefault("calibration.tick", 40*time.Millisecond)
	v.SetDefault("calibration.threshold", 0.1)
	v.SetDefault("calibration.width", 1920)
	v.SetDefault("calibration.height", 1080)

	v.SetDefault("batch.count", 50)
	v.SetDefault("batch.interval", 500*time.Millisecond)

	v.SetDefault("archive.dir", "archive")
	v.SetDefault("auth.signing_key", "change-me")
}

// Load reads configs/config.yml (or the given search paths) and env overrides.
// A missing config file is not an error.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	return Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log.level"),
		DBPath:   v.GetString("db.path"),

		DeviceURL: v.GetString("device.url"),
		USBVID:    v.GetString("device.usb_vid"),
		USBPID:    v.GetString("device.usb_pid"),

		SweepStep:      v.GetInt("calibration.step"),
		SweepTick:      v.GetDuration("calibration.tick"),
		SweepThreshold: v.GetFloat64("calibration.threshold"),
		SurfaceWidth:   v.GetInt("calibration.width"),
		SurfaceHeight:  v.GetInt("calibration.height"),

		BatchCount:    v.GetInt("batch.count"),
		BatchInterval: v.GetDuration("batch.interval"),

		ArchiveDir: v.GetString("archive.dir"),
		SigningKey: v.GetString("auth.signing_key"),
	}, nil
}

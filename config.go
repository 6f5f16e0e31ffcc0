package landkeeper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// LandConfig is the process-level configuration for running lands: tick
// cadence defaults, queue sizing, and where reevaluation recordings are
// written. It is only loaded here; nothing else in this package reads
// it. NewLandDefinition takes its interval directly (zero meaning
// tickless) and NewLandKeeper sizes both queues at 256 entries.
type LandConfig struct {
	DefaultTickInterval  time.Duration
	ActionQueueSize      int
	ClientEventQueueSize int
	RecordingDir         string
	LogLevel             string
}

// rawLandConfig mirrors LandConfig but with the tick interval as a
// human-readable string ("200ms", "1s"), since neither yaml.v3 nor
// go-toml decode directly into time.Duration.
type rawLandConfig struct {
	DefaultTickInterval  string `yaml:"defaultTickInterval" toml:"default_tick_interval"`
	ActionQueueSize      int    `yaml:"actionQueueSize" toml:"action_queue_size"`
	ClientEventQueueSize int    `yaml:"clientEventQueueSize" toml:"client_event_queue_size"`
	RecordingDir         string `yaml:"recordingDir" toml:"recording_dir"`
	LogLevel             string `yaml:"logLevel" toml:"log_level"`
}

// DefaultLandConfig returns sensible defaults for local development.
func DefaultLandConfig() LandConfig {
	return LandConfig{
		DefaultTickInterval:  100 * time.Millisecond,
		ActionQueueSize:      256,
		ClientEventQueueSize: 256,
		RecordingDir:         "./recordings",
		LogLevel:             "info",
	}
}

// LoadLandConfig reads a LandConfig from path, dispatching on file
// extension: .yaml/.yml via yaml.v3, .toml via go-toml. Fields absent
// from the file keep DefaultLandConfig's values.
func LoadLandConfig(path string) (LandConfig, error) {
	def := DefaultLandConfig()
	raw := rawLandConfig{
		DefaultTickInterval:  def.DefaultTickInterval.String(),
		ActionQueueSize:      def.ActionQueueSize,
		ClientEventQueueSize: def.ClientEventQueueSize,
		RecordingDir:         def.RecordingDir,
		LogLevel:             def.LogLevel,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return def, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return def, fmt.Errorf("landkeeper: parsing yaml config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return def, fmt.Errorf("landkeeper: parsing toml config: %w", err)
		}
	default:
		return def, fmt.Errorf("landkeeper: unsupported config extension %q", ext)
	}

	interval, err := time.ParseDuration(raw.DefaultTickInterval)
	if err != nil {
		return def, fmt.Errorf("landkeeper: parsing defaultTickInterval %q: %w", raw.DefaultTickInterval, err)
	}

	return LandConfig{
		DefaultTickInterval:  interval,
		ActionQueueSize:      raw.ActionQueueSize,
		ClientEventQueueSize: raw.ClientEventQueueSize,
		RecordingDir:         raw.RecordingDir,
		LogLevel:             raw.LogLevel,
	}, nil
}

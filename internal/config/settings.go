package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-categorizer/internal/common"
)

// Settings is the resolved application configuration.
type Settings struct {
	ArtifactDir  string
	DatabasePath string
	Training     TrainingSettings
	Server       ServerSettings
	AMQP         AMQPSettings
	Logging      LoggingSettings
}

// TrainingSettings controls model fitting.
type TrainingSettings struct {
	Dataset     string
	Seed        int64
	TestSize    float64
	Trees       int
	MaxFeatures int
	Workers     int
}

// ServerSettings controls the HTTP endpoint.
type ServerSettings struct {
	CORSOrigin string
	Port       int
}

// AMQPSettings configures the optional training announcements.
type AMQPSettings struct {
	URL      string
	Exchange string
}

// LoggingSettings selects the slog handler.
type LoggingSettings struct {
	Level  string
	Format string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	dataDir := DataDir()

	v.SetDefault("artifacts.dir", filepath.Join(dataDir, "model"))
	v.SetDefault("database.path", filepath.Join(dataDir, "spice-ml.db"))
	v.SetDefault("training.dataset", "expenses_dataset.csv")
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.test_size", 0.2)
	v.SetDefault("training.trees", 200)
	v.SetDefault("training.max_features", 1000)
	v.SetDefault("training.workers", runtime.GOMAXPROCS(0))
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("amqp.exchange", "spice.models")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadDotEnv loads a .env file into the environment when one exists.
// Variables already set are left alone.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FromViper reads Settings out of v and validates them.
func FromViper(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		ArtifactDir:  ExpandPath(v.GetString("artifacts.dir")),
		DatabasePath: ExpandPath(v.GetString("database.path")),
		Training: TrainingSettings{
			Dataset:     ExpandPath(v.GetString("training.dataset")),
			Seed:        v.GetInt64("training.seed"),
			TestSize:    v.GetFloat64("training.test_size"),
			Trees:       v.GetInt("training.trees"),
			MaxFeatures: v.GetInt("training.max_features"),
			Workers:     v.GetInt("training.workers"),
		},
		Server: ServerSettings{
			Port:       v.GetInt("server.port"),
			CORSOrigin: v.GetString("server.cors_origin"),
		},
		AMQP: AMQPSettings{
			URL:      v.GetString("amqp.url"),
			Exchange: v.GetString("amqp.exchange"),
		},
		Logging: LoggingSettings{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every setting and reports all problems at once.
func (s *Settings) Validate() error {
	var problems []string

	if s.ArtifactDir == "" {
		problems = append(problems, "artifacts.dir cannot be empty")
	}
	if s.Training.TestSize < 0 || s.Training.TestSize >= 1 {
		problems = append(problems, fmt.Sprintf("invalid training.test_size %v: must be in [0, 1)", s.Training.TestSize))
	}
	if s.Training.Trees < 1 {
		problems = append(problems, fmt.Sprintf("invalid training.trees %d: must be at least 1", s.Training.Trees))
	}
	if s.Training.MaxFeatures < 1 {
		problems = append(problems, fmt.Sprintf("invalid training.max_features %d: must be at least 1", s.Training.MaxFeatures))
	}
	if s.Training.Workers < 1 {
		problems = append(problems, fmt.Sprintf("invalid training.workers %d: must be at least 1", s.Training.Workers))
	}
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid server.port %d: must be between 1 and 65535", s.Server.Port))
	}
	if s.AMQP.URL != "" {
		if parsed, err := url.Parse(s.AMQP.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid amqp.url: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid amqp.url scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if strings.TrimSpace(s.AMQP.Exchange) == "" {
			problems = append(problems, "amqp.exchange cannot be empty when amqp.url is set")
		}
	}
	if _, err := common.ParseLevel(s.Logging.Level); err != nil {
		problems = append(problems, err.Error())
	}
	switch s.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format: %s", s.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n- %s", common.ErrInvalidConfig, strings.Join(problems, "\n- "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

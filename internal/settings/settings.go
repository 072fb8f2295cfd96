package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/IsraelGboluwaga/phosphora/internal/detector"
	"github.com/IsraelGboluwaga/phosphora/internal/theme"
)

type Settings struct {
	Translation        string   `json:"translation" validate:"required,alphanum,max=16"`
	Theme              string   `json:"theme" validate:"required,theme"` // theme key, e.g. "sage"
	LogLevel           string   `json:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat          string   `json:"log_format" validate:"omitempty,oneof=json text"`
	FalsePositiveWords []string `json:"false_positive_words" validate:"dive,required"`
	RequestsPerSecond  float64  `json:"requests_per_second" validate:"gt=0"`
	PrefetchWorkers    int      `json:"prefetch_workers" validate:"min=1,max=32"`
}

// Defaults returns the settings used when no config file exists.
func Defaults() Settings {
	return Settings{
		Translation:        "NKJV",
		Theme:              theme.DefaultName,
		LogLevel:           "info",
		LogFormat:          "text",
		FalsePositiveWords: detector.DefaultPolicy().FalsePositiveWords,
		RequestsPerSecond:  5,
		PrefetchWorkers:    4,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		return theme.Exists(fl.Field().String())
	})
	return v
}

// Validate checks field constraints.
func (s Settings) Validate() error {
	return validate.Struct(s)
}

// Policy returns the detector policy described by the settings.
func (s Settings) Policy() detector.Policy {
	return detector.Policy{FalsePositiveWords: s.FalsePositiveWords}
}

// Dir returns the per-user config directory, creating it if needed.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(configDir, "phosphora")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the default settings file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func Load() (Settings, error) {
	path, err := Path()
	if err != nil {
		return Defaults(), err
	}
	return LoadFrom(path)
}

// LoadFrom reads settings from path. Fields missing from the file keep their defaults.
func LoadFrom(path string) (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		// No config = just return defaults, no error
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, err
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return Defaults(), err
	}

	if err := s.Validate(); err != nil {
		return Defaults(), err
	}
	return s, nil
}

func Save(s Settings) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(path, s)
}

// SaveTo validates s and writes it to path.
func SaveTo(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	TrackingURI string `name:"MLFLOW_TRACKING_URI or DAGSHUB_REPO" validate:"required_without=StoreURL,omitempty,url"`
	Username    string `name:"DAGSHUB_USERNAME"                    validate:"required_without=StoreURL"`
	Token       string `name:"DAGSHUB_PAT"                         validate:"required_without=StoreURL"`
	Repo        string `name:"DAGSHUB_REPO"`
	StoreURL    string `name:"REGISTRY_STORE_URL"`

	RunInformationPath string        `name:"RUN_INFORMATION_PATH"  validate:"required"`
	PreprocessorPath   string        `name:"PREPROCESSOR_PATH"     validate:"required"`
	ModelServingURL    string        `name:"MODEL_SERVING_URL"     validate:"required,url"`
	ServingCommand     []string      `name:"MODEL_SERVING_COMMAND"`
	Address            string        `name:"SERVER_ADDRESS"        validate:"required"`
	LogLevel           string        `name:"LOG_LEVEL"             validate:"required,oneof=trace debug info warn warning error fatal panic"`
	RequestTimeout     time.Duration `name:"REQUEST_TIMEOUT"       validate:"gt=0"`
	ShutdownTimeout    time.Duration `name:"SHUTDOWN_TIMEOUT"      validate:"gte=0"`
	TestDataPath       string        `name:"TEST_DATA_PATH"        validate:"required"`
	ThresholdError     float64       `name:"THRESHOLD_ERROR"       validate:"gt=0"`
	Version            string
}

// Error is returned when required configuration is absent or malformed.
// It is always raised before any remote call is made.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, ", "))
	}

	return strings.Join(parts, "; ")
}

const Version = "0.3.0"

func setDefaults(v *viper.Viper) {
	v.SetDefault("run_information_path", "run_information.json")
	v.SetDefault("preprocessor_path", "models/preprocessor.yaml")
	v.SetDefault("model_serving_url", "http://127.0.0.1:5001")
	v.SetDefault("address", "0.0.0.0:8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("test_data_path", "data/interim/test.csv")
	v.SetDefault("threshold_error", 5.0)
}

var bindings = map[string][]string{
	"tracking_uri":         {"MLFLOW_TRACKING_URI"},
	"username":             {"DAGSHUB_USERNAME", "MLFLOW_TRACKING_USERNAME"},
	"token":                {"DAGSHUB_PAT", "MLFLOW_TRACKING_PASSWORD"},
	"repo":                 {"DAGSHUB_REPO"},
	"store_url":            {"REGISTRY_STORE_URL"},
	"run_information_path": {"RUN_INFORMATION_PATH"},
	"preprocessor_path":    {"PREPROCESSOR_PATH"},
	"model_serving_url":    {"MODEL_SERVING_URL"},
	"serving_command":      {"MODEL_SERVING_COMMAND"},
	"address":              {"SERVER_ADDRESS"},
	"log_level":            {"LOG_LEVEL"},
	"request_timeout":      {"REQUEST_TIMEOUT"},
	"shutdown_timeout":     {"SHUTDOWN_TIMEOUT"},
	"test_data_path":       {"TEST_DATA_PATH"},
	"threshold_error":      {"THRESHOLD_ERROR"},
}

// Load reads the configuration from the environment. Values found in envFile
// are exported first without overriding variables that are already set.
// A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		TrackingURI:        strings.TrimRight(v.GetString("tracking_uri"), "/"),
		Username:           v.GetString("username"),
		Token:              v.GetString("token"),
		Repo:               v.GetString("repo"),
		StoreURL:           v.GetString("store_url"),
		RunInformationPath: v.GetString("run_information_path"),
		PreprocessorPath:   v.GetString("preprocessor_path"),
		ModelServingURL:    strings.TrimRight(v.GetString("model_serving_url"), "/"),
		ServingCommand:     strings.Fields(v.GetString("serving_command")),
		Address:            v.GetString("address"),
		LogLevel:           strings.ToLower(v.GetString("log_level")),
		RequestTimeout:     v.GetDuration("request_timeout"),
		ShutdownTimeout:    v.GetDuration("shutdown_timeout"),
		TestDataPath:       v.GetString("test_data_path"),
		ThresholdError:     v.GetFloat64("threshold_error"),
		Version:            Version,
	}

	if cfg.TrackingURI == "" && cfg.Username != "" && cfg.Repo != "" {
		cfg.TrackingURI = DagsHubTrackingURI(cfg.Username, cfg.Repo)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func DagsHubTrackingURI(username, repo string) string {
	return fmt.Sprintf("https://dagshub.com/%s/%s.mlflow", username, repo)
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")

	if err := dotenv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read env file %q: %w", path, err)
	}

	for _, key := range dotenv.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, dotenv.GetString(key)); err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
	}

	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("name"); name != "" {
			return name
		}

		return field.Name
	})

	return validate
}

// Validate checks that every required value is present and well formed.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}

	cErr := &Error{}
	for _, fieldErr := range errs {
		switch fieldErr.Tag() {
		case "required", "required_without":
			cErr.Missing = append(cErr.Missing, fieldErr.Field())
		default:
			cErr.Invalid = append(cErr.Invalid, fmt.Sprintf("%s=%v", fieldErr.Field(), fieldErr.Value()))
		}
	}

	return cErr
}

// UsesStore reports whether the registry is reached through its database
// instead of the REST API.
func (c *Config) UsesStore() bool {
	return c.StoreURL != ""
}

// Package config loads runtime configuration from INI files with
// environment-variable overrides. Lookup order for every key: STREAMLINE_*
// environment variable, then the environment-specific INI, then the shared
// defaults in config/setting.ini, then the built-in default.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	settingsFile     = "config/setting.ini"
	defaultEnv       = "dev"
	envConfigPattern = "config/%s/streamline.ini"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Settings contains global toggles such as the active environment.
type Settings struct {
	Environment string
	Defaults    map[string]string
}

// Config describes runtime options for the server daemon and the CLI client.
type Config struct {
	Environment string

	// Server
	ListenAddr   string
	Provider     string
	ProfilesFile string
	ProfileName  string
	SystemPrompt string

	// Provider credentials
	GeminiAPIKey string
	OpenAIAPIKey string

	// Persistence
	StoreBackend string
	StorePath    string
	PostgresDSN  string
	RedisURL     string

	// Client
	ServerURL string

	// Logging
	LogFileServer string
	LogFileCLI    string
	LogLevel      string
}

// Load reads the layered configuration rooted at root ("." when empty).
func Load(root string) (Config, error) {
	if root == "" {
		root = "."
	}
	s, err := loadSettings(root)
	if err != nil {
		return Config{}, err
	}

	envValues, err := parseINI(filepath.Join(root, fmt.Sprintf(envConfigPattern, s.Environment)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			envValues = map[string]string{}
		} else {
			return Config{}, err
		}
	}

	merged := make(map[string]string)
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range envValues {
		merged[k] = v
	}

	cfg := Config{
		Environment:   s.Environment,
		ListenAddr:    firstNonEmpty(os.Getenv("STREAMLINE_LISTEN_ADDR"), merged["listen_addr"], "127.0.0.1:8080"),
		Provider:      firstNonEmpty(os.Getenv("STREAMLINE_PROVIDER"), merged["provider"]),
		ProfilesFile:  firstNonEmpty(os.Getenv("STREAMLINE_MODEL_PROFILES"), merged["model_profiles"]),
		ProfileName:   firstNonEmpty(os.Getenv("STREAMLINE_MODEL_PROFILE"), merged["model_profile"]),
		SystemPrompt:  firstNonEmpty(os.Getenv("STREAMLINE_SYSTEM_PROMPT"), merged["system_prompt"]),
		GeminiAPIKey:  firstNonEmpty(os.Getenv("STREAMLINE_GEMINI_API_KEY"), os.Getenv("GEMINI_API_KEY"), merged["gemini_api_key"]),
		OpenAIAPIKey:  firstNonEmpty(os.Getenv("STREAMLINE_OPENAI_API_KEY"), os.Getenv("OPENAI_API_KEY"), merged["openai_api_key"]),
		StoreBackend:  firstNonEmpty(os.Getenv("STREAMLINE_STORE"), merged["store"], StoreSQLite),
		StorePath:     firstNonEmpty(os.Getenv("STREAMLINE_STORE_PATH"), merged["store_path"], DefaultStorePath()),
		PostgresDSN:   firstNonEmpty(os.Getenv("STREAMLINE_POSTGRES_DSN"), merged["postgres_dsn"]),
		RedisURL:      firstNonEmpty(os.Getenv("STREAMLINE_REDIS_URL"), merged["redis_url"]),
		ServerURL:     firstNonEmpty(os.Getenv("STREAMLINE_SERVER_URL"), merged["server_url"], "http://127.0.0.1:8080"),
		LogFileServer: firstNonEmpty(os.Getenv("STREAMLINE_LOG_FILE_SERVER"), os.Getenv("STREAMLINE_LOG_FILE"), merged["log_file_server"], merged["log_file"]),
		LogFileCLI:    firstNonEmpty(os.Getenv("STREAMLINE_LOG_FILE_CLI"), os.Getenv("STREAMLINE_LOG_FILE"), merged["log_file_cli"], merged["log_file"]),
		LogLevel:      firstNonEmpty(os.Getenv("STREAMLINE_LOG_LEVEL"), merged["log_level"], "info"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	if c.StoreBackend == StorePostgres && strings.TrimSpace(c.PostgresDSN) == "" {
		return errors.New("config: postgres store requires postgres_dsn")
	}
	if c.StoreBackend == StoreRedis && strings.TrimSpace(c.RedisURL) == "" {
		return errors.New("config: redis store requires redis_url")
	}
	return nil
}

// DefaultStorePath places the sqlite database under the user home directory,
// falling back to the working directory when home cannot be resolved.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "streamline.db"
	}
	return filepath.Join(home, ".streamline", "streamline.db")
}

func loadSettings(root string) (Settings, error) {
	values, err := parseINI(filepath.Join(root, settingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return Settings{Environment: defaultEnv, Defaults: map[string]string{}}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	env := values["environment"]
	if env == "" {
		env = defaultEnv
	}
	defaults := make(map[string]string)
	for k, v := range values {
		if k == "environment" {
			continue
		}
		defaults[k] = v
	}
	return Settings{Environment: env, Defaults: defaults}, nil
}

func parseINI(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		values[strings.ToLower(key)] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Package bootstrap scaffolds configuration files and wires the configured
// persistence and upstream backends. Both binaries build their dependency
// graph through it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/streamlinechat/streamline/internal/config"
	"github.com/streamlinechat/streamline/internal/convstore"
	"github.com/streamlinechat/streamline/internal/convstore/memory"
	convpostgres "github.com/streamlinechat/streamline/internal/convstore/postgres"
	convredis "github.com/streamlinechat/streamline/internal/convstore/redis"
	convsqlite "github.com/streamlinechat/streamline/internal/convstore/sqlite"
	"github.com/streamlinechat/streamline/internal/upstream"
	"github.com/streamlinechat/streamline/internal/upstream/echo"
	upgemini "github.com/streamlinechat/streamline/internal/upstream/gemini"
	upopenai "github.com/streamlinechat/streamline/internal/upstream/openai"
)

// InitOptions configures the bootstrap process for generating config files.
type InitOptions struct {
	Root        string
	Environment string
	ServerURL   string
	ListenAddr  string
	Provider    string
	Store       string
	StorePath   string
	Force       bool
}

// Init scaffolds the layered configuration files.
func Init(opts InitOptions) error {
	applyDefaults(&opts)
	if err := ensureDir(filepath.Join(opts.Root, "config", opts.Environment)); err != nil {
		return err
	}

	settingPath := filepath.Join(opts.Root, "config", "setting.ini")
	if err := writeFile(settingPath, settingTemplate(opts), opts.Force); err != nil {
		return err
	}

	envPath := filepath.Join(opts.Root, "config", opts.Environment, "streamline.ini")
	return writeFile(envPath, envTemplate(opts), opts.Force)
}

func applyDefaults(opts *InitOptions) {
	if strings.TrimSpace(opts.Root) == "" {
		opts.Root = "."
	}
	if strings.TrimSpace(opts.Environment) == "" {
		opts.Environment = "dev"
	}
	if strings.TrimSpace(opts.ServerURL) == "" {
		opts.ServerURL = "http://127.0.0.1:8080"
	}
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:8080"
	}
	if strings.TrimSpace(opts.Provider) == "" {
		opts.Provider = "echo"
	}
	if strings.TrimSpace(opts.Store) == "" {
		opts.Store = config.StoreSQLite
	}
	if strings.TrimSpace(opts.StorePath) == "" {
		opts.StorePath = config.DefaultStorePath()
	}
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func writeFile(path, contents string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func settingTemplate(opts InitOptions) string {
	return fmt.Sprintf(`# Streamline settings
environment=%s
store=%s
store_path=%s
server_url=%s
`, opts.Environment, opts.Store, opts.StorePath, opts.ServerURL)
}

func envTemplate(opts InitOptions) string {
	return fmt.Sprintf(`# Environment specific overrides for %s
listen_addr=%s
provider=%s
log_level=info
# gemini_api_key=
# openai_api_key=
# model_profiles=config/models.yaml
# log_file_server=logs/streamlined.log
# log_file_cli=logs/streamline.log
`, opts.Environment, opts.ListenAddr, opts.Provider)
}

// OpenStore builds the configured conversation store.
func OpenStore(cfg config.Config) (convstore.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.StorePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("bootstrap: create store dir: %w", err)
			}
		}
		return convsqlite.New(cfg.StorePath)
	case config.StorePostgres:
		return convpostgres.New(cfg.PostgresDSN)
	case config.StoreRedis:
		return convredis.New(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("bootstrap: unknown store backend %q", cfg.StoreBackend)
	}
}

// ResolveProfile picks the model profile: an explicit profiles file wins,
// otherwise a synthetic profile is built from the flat config keys.
func ResolveProfile(cfg config.Config) (upstream.Profile, error) {
	if cfg.ProfilesFile != "" {
		set, err := upstream.LoadProfiles(cfg.ProfilesFile)
		if err != nil {
			return upstream.Profile{}, err
		}
		if cfg.ProfileName != "" {
			profile, ok := set.Lookup(cfg.ProfileName)
			if !ok {
				return upstream.Profile{}, fmt.Errorf("bootstrap: profile %q not found in %s", cfg.ProfileName, cfg.ProfilesFile)
			}
			return profile, nil
		}
		return set.Default(), nil
	}

	provider := cfg.Provider
	if provider == "" {
		switch {
		case cfg.GeminiAPIKey != "":
			provider = "gemini"
		case cfg.OpenAIAPIKey != "":
			provider = "openai"
		default:
			provider = "echo"
		}
	}
	return upstream.Profile{Name: "default", Provider: provider}, nil
}

// BuildProvider constructs the upstream provider for a profile.
func BuildProvider(ctx context.Context, cfg config.Config, profile upstream.Profile) (upstream.Provider, error) {
	switch profile.Provider {
	case "gemini":
		return upgemini.New(ctx, upgemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       profile.Model,
			Temperature: profile.Temperature,
		})
	case "openai":
		return upopenai.New(upopenai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       profile.Model,
			Temperature: profile.Temperature,
		})
	case "echo":
		return echo.New(), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown provider %q", profile.Provider)
	}
}

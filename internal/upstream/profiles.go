package upstream

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes one named model configuration.
type Profile struct {
	Name         string   `yaml:"name"`
	Provider     string   `yaml:"provider"` // gemini|openai|echo
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	Temperature  *float32 `yaml:"temperature"`
}

// ProfileSet is the parsed profiles file.
type ProfileSet struct {
	DefaultProfile string    `yaml:"default_profile"`
	Profiles       []Profile `yaml:"profiles"`
}

// LoadProfiles reads model profiles from a YAML file.
func LoadProfiles(path string) (*ProfileSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file %s: %w", path, err)
	}
	var set ProfileSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse profiles file %s: %w", path, err)
	}
	if err := set.validate(); err != nil {
		return nil, fmt.Errorf("profiles file %s: %w", path, err)
	}
	return &set, nil
}

func (s *ProfileSet) validate() error {
	if len(s.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}
	seen := map[string]bool{}
	for i, p := range s.Profiles {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("profile %d: name required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true
		switch strings.ToLower(p.Provider) {
		case "gemini", "openai", "echo":
		default:
			return fmt.Errorf("profile %q: unknown provider %q", p.Name, p.Provider)
		}
	}
	if s.DefaultProfile != "" && !seen[s.DefaultProfile] {
		return fmt.Errorf("default_profile %q not defined", s.DefaultProfile)
	}
	return nil
}

// Default returns the default profile, falling back to the first one.
func (s *ProfileSet) Default() Profile {
	if s.DefaultProfile != "" {
		for _, p := range s.Profiles {
			if p.Name == s.DefaultProfile {
				return p
			}
		}
	}
	return s.Profiles[0]
}

// Lookup finds a profile by name.
func (s *ProfileSet) Lookup(name string) (Profile, bool) {
	for _, p := range s.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// ResolvedSystemPrompt returns the profile prompt or the default persona.
func (p Profile) ResolvedSystemPrompt() string {
	if strings.TrimSpace(p.SystemPrompt) != "" {
		return p.SystemPrompt
	}
	return DefaultSystemPrompt
}

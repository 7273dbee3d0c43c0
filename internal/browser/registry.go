package browser

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

//go:embed openers.toml
var openersTOML []byte

// OpenerDefinition describes how to hand a URL to a program.
type OpenerDefinition struct {
	Description string   `toml:"description"`
	Platforms   []string `toml:"platforms"`
	Args        []string `toml:"args,omitempty"`
	ArgsDarwin  []string `toml:"args_darwin,omitempty"`
	ArgsLinux   []string `toml:"args_linux,omitempty"`
	ArgsWindows []string `toml:"args_windows,omitempty"`
	// Terminal openers take over the tty and must be waited for.
	Terminal bool `toml:"terminal,omitempty"`
}

type PlatformConfig struct {
	DefaultOpener string `toml:"default_opener"`
}

type OpenersConfig struct {
	Platforms map[string]PlatformConfig   `toml:"platforms"`
	Openers   map[string]OpenerDefinition `toml:"openers"`
}

type Registry struct {
	goos      string
	platforms map[string]PlatformConfig
	openers   map[string]OpenerDefinition
}

// NewRegistry loads the built-in opener table, then any user overrides
// found in userPaths.
func NewRegistry(userPaths ...string) (*Registry, error) {
	var cfg OpenersConfig
	if err := toml.Unmarshal(openersTOML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}

	r := &Registry{
		goos:      runtime.GOOS,
		platforms: cfg.Platforms,
		openers:   cfg.Openers,
	}
	if r.platforms == nil {
		r.platforms = make(map[string]PlatformConfig)
	}
	if r.openers == nil {
		r.openers = make(map[string]OpenerDefinition)
	}

	for _, path := range userPaths {
		if err := r.merge(path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultUserPath is where user opener overrides are read from.
func DefaultUserPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "snooze", "openers.toml")
}

func (r *Registry) merge(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var user OpenersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, def := range user.Openers {
		r.openers[name] = def
	}
	for goos, p := range user.Platforms {
		r.platforms[goos] = p
	}
	return nil
}

// DefaultOpener returns the platform's launcher, falling back to the
// "fallback" entry.
func (r *Registry) DefaultOpener() string {
	if p, ok := r.platforms[r.goos]; ok && p.DefaultOpener != "" {
		return p.DefaultOpener
	}
	if p, ok := r.platforms["fallback"]; ok {
		return p.DefaultOpener
	}
	return "xdg-open"
}

// Lookup returns the definition for name, if any.
func (r *Registry) Lookup(name string) (OpenerDefinition, bool) {
	def, ok := r.openers[name]
	return def, ok
}

// Args returns the arguments for opening url with name. Unknown openers
// get the url alone. Known openers that do not list the current platform
// are an error.
func (r *Registry) Args(name, url string) ([]string, error) {
	def, ok := r.openers[name]
	if !ok {
		return []string{url}, nil
	}

	supported := false
	for _, p := range def.Platforms {
		if p == r.goos {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("%s not supported on %s", name, r.goos)
	}

	args := append([]string(nil), def.argsFor(r.goos)...)
	return append(args, url), nil
}

func (d OpenerDefinition) argsFor(goos string) []string {
	switch goos {
	case "darwin":
		if len(d.ArgsDarwin) > 0 {
			return d.ArgsDarwin
		}
	case "linux":
		if len(d.ArgsLinux) > 0 {
			return d.ArgsLinux
		}
	case "windows":
		if len(d.ArgsWindows) > 0 {
			return d.ArgsWindows
		}
	}
	return d.Args
}

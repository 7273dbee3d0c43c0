// Package browser opens story links in an external program.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/pders01/snooze/internal/config"
	"github.com/pders01/snooze/internal/debuglog"
)

var ErrUnsupportedURL = errors.New("only http and https links can be opened")

type Launcher struct {
	opener   string
	registry *Registry

	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
	run      func(*exec.Cmd) error
}

// NewLauncher picks the first installed program from cfg.Preferred, then
// cfg.DefaultOpener, then the platform default.
func NewLauncher(cfg config.BrowserConfig) *Launcher {
	registry, err := NewRegistry(DefaultUserPath())
	if err != nil {
		debuglog.Warnf("loading opener definitions: %v", err)
		registry = &Registry{
			platforms: make(map[string]PlatformConfig),
			openers:   make(map[string]OpenerDefinition),
		}
	}
	return newLauncher(cfg, registry, exec.LookPath)
}

func newLauncher(cfg config.BrowserConfig, registry *Registry, lookPath func(string) (string, error)) *Launcher {
	l := &Launcher{
		registry: registry,
		lookPath: lookPath,
		start:    startDetached,
		run:      func(cmd *exec.Cmd) error { return cmd.Run() },
	}

	l.opener = l.findCommand(cfg.Preferred...)
	if l.opener == "" {
		l.opener = cfg.DefaultOpener
	}
	if l.opener == "" {
		l.opener = registry.DefaultOpener()
	}
	return l
}

// Opener reports the program links are handed to.
func (l *Launcher) Opener() string {
	return l.opener
}

// Command builds the command that opens link. interactive reports whether
// the opener takes over the terminal and must run in the foreground.
func (l *Launcher) Command(link string) (cmd *exec.Cmd, interactive bool, err error) {
	if err := checkLink(link); err != nil {
		return nil, false, err
	}

	args, err := l.registry.Args(l.opener, link)
	if err != nil {
		return nil, false, err
	}

	def, _ := l.registry.Lookup(l.opener)
	debuglog.Debugf("opening %s with %s %s", link, l.opener, strings.Join(args, " "))
	return exec.Command(l.opener, args...), def.Terminal, nil
}

// Open hands link to the opener. Graphical openers are started detached;
// terminal openers are waited for.
func (l *Launcher) Open(link string) error {
	cmd, interactive, err := l.Command(link)
	if err != nil {
		return err
	}

	if interactive {
		if err := l.run(cmd); err != nil {
			return fmt.Errorf("running %s: %w", l.opener, err)
		}
		return nil
	}

	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.opener, err)
	}
	return nil
}

func (l *Launcher) findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := l.lookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}

func checkLink(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", link, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: %w", link, ErrUnsupportedURL)
	}
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

package paths

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
)

// Environment variable names
const (
	EnvConfigFile    = "DOTBOOT_CONFIG"
	EnvStateDir      = "DOTBOOT_STATE_DIR"
	EnvXDGConfigHome = "XDG_CONFIG_HOME"
	EnvXDGStateHome  = "XDG_STATE_HOME"
)

// Fixed names
const (
	AppName        = "dotboot"
	ConfigFileName = "config.toml"
	HistoryDBName  = "history.db"
	LogFileName    = "dotboot.log"
)

// Paths resolves locations against an environment.
type Paths struct {
	env hostenv.Env
}

// New creates a resolver for env.
func New(env hostenv.Env) Paths {
	return Paths{env: env}
}

// Home returns the user's home directory.
func (p Paths) Home() string {
	return p.env.Home()
}

// ConfigHome is $XDG_CONFIG_HOME, or the platform default.
func (p Paths) ConfigHome() string {
	if dir := p.env.Get(EnvXDGConfigHome); dir != "" {
		return Expand(p.env, dir)
	}
	return xdg.ConfigHome
}

// StateHome is $XDG_STATE_HOME, or the platform default.
func (p Paths) StateHome() string {
	if dir := p.env.Get(EnvXDGStateHome); dir != "" {
		return Expand(p.env, dir)
	}
	return xdg.StateHome
}

// ConfigFile is the user config file.
func (p Paths) ConfigFile() string {
	if f := p.env.Get(EnvConfigFile); f != "" {
		return Expand(p.env, f)
	}
	return filepath.Join(p.ConfigHome(), AppName, ConfigFileName)
}

// StateDir holds the log file and run history.
func (p Paths) StateDir() string {
	if dir := p.env.Get(EnvStateDir); dir != "" {
		return Expand(p.env, dir)
	}
	return filepath.Join(p.StateHome(), AppName)
}

// HistoryDB is the run ledger.
func (p Paths) HistoryDB() string {
	return filepath.Join(p.StateDir(), HistoryDBName)
}

// NixConf is the per-user nix.conf. Nix reads $XDG_CONFIG_HOME/nix/nix.conf
// and falls back to ~/.config on every platform, unlike xdg.ConfigHome.
func (p Paths) NixConf() string {
	root := p.env.Get(EnvXDGConfigHome)
	if root == "" {
		root = filepath.Join(p.Home(), ".config")
	}
	return filepath.Join(Expand(p.env, root), "nix", "nix.conf")
}

// Resolve expands a configured path: a leading "~" is the home directory
// and relative paths are taken from home.
func (p Paths) Resolve(path string) string {
	path = Expand(p.env, path)
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(p.Home(), path)
	}
	return path
}

// Expand resolves a leading "~" against env's HOME.
func Expand(env hostenv.Env, path string) string {
	if path == "~" {
		return env.Home()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(env.Home(), path[2:])
	}
	return path
}

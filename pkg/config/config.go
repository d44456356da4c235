package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config is the effective configuration.
type Config struct {
	Repository     Repository     `koanf:"repository" toml:"repository"`
	PackageManager PackageManager `koanf:"package_manager" toml:"package_manager"`
	Nix            Nix            `koanf:"nix" toml:"nix"`
	Git            Git            `koanf:"git" toml:"git"`
	SSH            SSH            `koanf:"ssh" toml:"ssh"`
	Params         Params         `koanf:"params" toml:"params"`
	Switch         Switch         `koanf:"switch" toml:"switch"`
	Session        Session        `koanf:"session" toml:"session"`
	Timeouts       Timeouts       `koanf:"timeouts" toml:"timeouts"`
	Interaction    Interaction    `koanf:"interaction" toml:"interaction"`
}

type Repository struct {
	GitHub    string `koanf:"github" toml:"github" validate:"omitempty,contains=/"`
	SSHURL    string `koanf:"ssh_url" toml:"ssh_url"`
	HTTPSURL  string `koanf:"https_url" toml:"https_url"`
	Path      string `koanf:"path" toml:"path" validate:"required"`
	Branch    string `koanf:"branch" toml:"branch"`
	FlakeAttr string `koanf:"flake_attr" toml:"flake_attr"`
}

type PackageManager struct {
	Managers             []string `koanf:"managers" toml:"managers" validate:"min=1,dive,oneof=brew apt-get dnf pacman"`
	HomebrewInstallerURL string   `koanf:"homebrew_installer_url" toml:"homebrew_installer_url" validate:"required,url"`
}

type Nix struct {
	InstallerURLs  []string   `koanf:"installer_urls" toml:"installer_urls" validate:"min=1,dive,url"`
	InstallerArgs  [][]string `koanf:"installer_args" toml:"installer_args"`
	ConfLines      []string   `koanf:"conf_lines" toml:"conf_lines" validate:"dive,required"`
	ExtraArgs      []string   `koanf:"extra_args" toml:"extra_args"`
	ProfileBinDirs []string   `koanf:"profile_bin_dirs" toml:"profile_bin_dirs"`
}

type Git struct {
	Installable string `koanf:"installable" toml:"installable" validate:"required"`
}

type SSH struct {
	Keys []string `koanf:"keys" toml:"keys"`
}

type Params struct {
	File string `koanf:"file" toml:"file" validate:"required"`
}

type Switch struct {
	FallbackInstallable string `koanf:"fallback_installable" toml:"fallback_installable" validate:"required"`
	BackupExtension     string `koanf:"backup_extension" toml:"backup_extension"`
	ApplyWhenStale      bool   `koanf:"apply_when_stale" toml:"apply_when_stale"`
}

type Session struct {
	Name     string   `koanf:"name" toml:"name" validate:"required,excludesall=:."`
	Managers []string `koanf:"managers" toml:"managers" validate:"dive,oneof=brew apt-get dnf pacman nix"`
}

type Timeouts struct {
	Network Duration `koanf:"network" toml:"network" validate:"min=0"`
	Probe   Duration `koanf:"probe" toml:"probe" validate:"min=0"`
}

// Duration is a time.Duration written as text ("15m0s") in TOML.
type Duration time.Duration

// Std converts to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Interaction struct {
	CIEnvVar string `koanf:"ci_env_var" toml:"ci_env_var"`
}

// ResolveRemotes fills the SSH and HTTPS URLs from the GitHub shorthand when
// they are not set explicitly.
func (r Repository) ResolveRemotes() (sshURL, httpsURL string) {
	sshURL, httpsURL = r.SSHURL, r.HTTPSURL
	if r.GitHub == "" {
		return sshURL, httpsURL
	}
	slug := strings.TrimSuffix(strings.Trim(r.GitHub, "/"), ".git")
	if sshURL == "" {
		sshURL = fmt.Sprintf("git@github.com:%s.git", slug)
	}
	if httpsURL == "" {
		httpsURL = fmt.Sprintf("https://github.com/%s.git", slug)
	}
	return sshURL, httpsURL
}

// FlakeRef is the reference handed to home-manager for a resolved checkout path.
func (r Repository) FlakeRef(checkout string) string {
	checkout = filepath.Clean(checkout)
	if r.FlakeAttr == "" {
		return checkout
	}
	return checkout + "#" + r.FlakeAttr
}

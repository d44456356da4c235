// Package params captures the user-specific values the flake needs and
// writes them as a Nix attribute set.
//
// The record is regenerated from scratch on every run; previous content is
// never merged.
package params

import (
	"context"
	"fmt"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/arthur-debert/dotboot/pkg/types"
	"github.com/go-playground/validator/v10"
)

const (
	LabelUsername = "Username"
	LabelHome     = "Home directory"
)

// Params is the declarative environment record.
type Params struct {
	Username      string `validate:"required,excludesall=/:"`
	HomeDirectory string `validate:"required,startswith=/"`
}

var validate = validator.New()

// Validate checks the captured values.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(err, errors.ErrInvalidInput, "invalid user parameters")
	}
	return nil
}

// Defaults introspects the host: $USER (or the account database) and $HOME.
func Defaults(env hostenv.Env) Params {
	p := Params{Username: env.Get(hostenv.EnvUser), HomeDirectory: env.Home()}
	if p.Username == "" || p.HomeDirectory == "" {
		if u, err := user.Current(); err == nil {
			if p.Username == "" {
				p.Username = u.Username
			}
			if p.HomeDirectory == "" {
				p.HomeDirectory = u.HomeDir
			}
		}
	}
	return p
}

// Capture asks for each value with its default pre-filled. An empty answer
// keeps the default.
func Capture(prompter types.Prompter, defaults Params) (Params, error) {
	username, err := prompter.Ask(LabelUsername, defaults.Username)
	if err != nil {
		return Params{}, errors.Wrap(err, errors.ErrPromptDeclined, "username prompt failed")
	}
	home, err := prompter.Ask(LabelHome, defaults.HomeDirectory)
	if err != nil {
		return Params{}, errors.Wrap(err, errors.ErrPromptDeclined, "home directory prompt failed")
	}

	p := Params{
		Username:      orDefault(username, defaults.Username),
		HomeDirectory: orDefault(home, defaults.HomeDirectory),
	}
	if p.HomeDirectory != "" {
		p.HomeDirectory = filepath.Clean(p.HomeDirectory)
	}
	return p, p.Validate()
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// Render produces the Nix expression for p.
func Render(p Params) string {
	var b strings.Builder
	b.WriteString("# Generated by dotboot. Overwritten on every run.\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  username = %s;\n", Quote(p.Username))
	fmt.Fprintf(&b, "  homeDirectory = %s;\n", Quote(p.HomeDirectory))
	b.WriteString("}\n")
	return b.String()
}

var nixEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"${", `\${`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Quote renders s as a Nix double-quoted string literal.
func Quote(s string) string {
	return `"` + nixEscaper.Replace(s) + `"`
}

// Write replaces the record at path with p.
func Write(fsys types.FS, path string, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(path))
	}
	if err := fsys.WriteFile(path, []byte(Render(p)), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", path)
	}
	return nil
}

// Track registers the record with git as intent-to-add so flake evaluation,
// which only sees tracked files, can read it. Already tracked files are left
// as they are.
func Track(ctx context.Context, r runner.Runner, env hostenv.Env, repoPath, path string) error {
	rel, err := filepath.Rel(repoPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return errors.Newf(errors.ErrInvalidInput, "%s is outside %s", path, repoPath)
	}
	if _, err := r.Run(ctx, runner.Command{
		Name: "git",
		Args: []string{"-C", repoPath, "ls-files", "--error-unmatch", "--", rel},
		Env:  env,
	}); err == nil {
		return nil
	}
	_, err = r.Run(ctx, runner.Command{
		Name: "git",
		Args: []string{"-C", repoPath, "add", "--intent-to-add", "--", rel},
		Env:  env,
	})
	return err
}

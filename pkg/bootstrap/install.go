package bootstrap

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/probe"
	"github.com/arthur-debert/dotboot/pkg/remediation"
	"github.com/arthur-debert/dotboot/pkg/runner"
)

// HomebrewBinDirs are where the Homebrew installer puts brew.
var HomebrewBinDirs = []string{"/opt/homebrew/bin", "/usr/local/bin", "/home/linuxbrew/.linuxbrew/bin"}

// downloadArgs fetches url into file over HTTPS only.
func downloadArgs(url, file string) []string {
	return []string{"--proto", "=https", "--tlsv1.2", "-fsSL", "-o", file, url}
}

// script downloads an installer with curl and runs it with interpreter. The
// download is bounded by the network timeout; the installer itself may ask
// for sudo and is not.
func (b *Bootstrap) script(name, src, interpreter string, args []string, extra map[string]string) remediation.Action {
	return func(ctx context.Context, env hostenv.Env) (hostenv.Env, error) {
		dir, err := os.MkdirTemp("", "dotboot-"+name+"-")
		if err != nil {
			return env, errors.Wrap(err, errors.ErrDirCreate, "cannot create a download directory")
		}
		defer os.RemoveAll(dir)

		file := filepath.Join(dir, "install.sh")
		if _, err := b.runner.Run(ctx, runner.Command{
			Name:    "curl",
			Args:    downloadArgs(src, file),
			Env:     env,
			Timeout: b.cfg.Timeouts.Network.Std(),
		}); err != nil {
			return env, errors.Wrapf(err, errors.ErrCommandFailed, "cannot download %s", src).
				WithDetail("url", src)
		}

		if _, err := b.runner.Run(ctx, runner.Command{
			Name:        interpreter,
			Args:        append([]string{file}, args...),
			Env:         env.WithAll(extra),
			Interactive: true,
		}); err != nil {
			return env, err
		}
		return env, nil
	}
}

// foldBinDirs prepends the dirs that contain binary to PATH.
func foldBinDirs(binary string, dirs []string) remediation.Action {
	return func(_ context.Context, env hostenv.Env) (hostenv.Env, error) {
		return fold(env, binary, dirs), nil
	}
}

func fold(env hostenv.Env, binary string, dirs []string) hostenv.Env {
	var found []string
	for _, d := range dirs {
		if probe.Executable(filepath.Join(d, binary)).Satisfied(env) {
			found = append(found, d)
		}
	}
	if len(found) == 0 {
		return env
	}
	return env.PrependPath(found...)
}

// installerName is the host part of an installer URL.
func installerName(src string) string {
	if u, err := url.Parse(src); err == nil && u.Host != "" {
		return u.Host
	}
	return src
}

// macOS reports whether the run targets darwin.
func (b *Bootstrap) macOS() probe.Probe {
	return probe.Func{
		Desc: "macOS",
		Fn:   func(hostenv.Env) bool { return b.goos == "darwin" },
	}
}

func (b *Bootstrap) homebrewCandidate() remediation.Candidate {
	return remediation.Candidate{
		Name:   "homebrew",
		Detect: probe.AllOf{b.macOS(), probe.Command("curl")},
		Install: remediation.Then(
			b.script("homebrew", b.cfg.PackageManager.HomebrewInstallerURL, "bash", nil,
				map[string]string{"NONINTERACTIVE": "1"}),
			foldBinDirs("brew", HomebrewBinDirs),
		),
	}
}

func (b *Bootstrap) nixCandidates() []remediation.Candidate {
	nix := b.cfg.Nix
	out := make([]remediation.Candidate, 0, len(nix.InstallerURLs))
	for i, src := range nix.InstallerURLs {
		var args []string
		if i < len(nix.InstallerArgs) {
			args = nix.InstallerArgs[i]
		}
		out = append(out, remediation.Candidate{
			Name:   installerName(src),
			Detect: probe.Command("curl"),
			Install: remediation.Then(
				b.script("nix", src, "sh", args, nil),
				foldBinDirs("nix", nix.ProfileBinDirs),
			),
		})
	}
	return out
}

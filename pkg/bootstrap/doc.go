// Package bootstrap assembles the concrete stage list that turns a fresh
// machine into a Nix and home-manager managed workstation.
//
// The stages, in order:
//
//	package-manager  a system package manager is present (Homebrew installed on macOS)
//	nix              Nix is installed (Determinate installer, then upstream)
//	nix-config       nix.conf enables flakes
//	git              git is on PATH, supplied from a nix shell when missing
//	ssh-agent        an agent is running with the default keys loaded (optional)
//	repository       the dotfiles flake is cloned or fast-forwarded
//	user-params      user.nix records the user name and home directory
//	switch           home-manager applies the flake (optional)
//	session          a tmux session is prepared for the final handoff (optional)
//
// Every constant comes from config.Config. State that flows between stages
// (the checkout path, whether the checkout is stale, the session handoff) is
// kept on the Bootstrap value, and the process environment flows through
// pipeline.Run.
package bootstrap

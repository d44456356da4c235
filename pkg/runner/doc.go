// Package runner is the typed subprocess layer.
//
// Every external collaborator (package managers, the Nix installer, git,
// ssh-agent, home-manager, tmux) is invoked through Runner with an argument
// vector. Nothing is ever passed through a shell, so arguments need no quoting.
// Commands are resolved against the hostenv.Env they are given, not the PATH
// of the dotboot process.
package runner

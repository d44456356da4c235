package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/types"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// TerminalConfirm asks yes/no questions with an interactive pterm prompt.
type TerminalConfirm struct{}

func (TerminalConfirm) Confirm(question string, defaultYes bool) (bool, error) {
	answer, err := pterm.DefaultInteractiveConfirm.
		WithDefaultValue(defaultYes).
		Show(question)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrPromptDeclined, "confirmation prompt failed")
	}
	return answer, nil
}

// AlwaysAccept answers yes without asking. It is used in CI and with --yes.
type AlwaysAccept struct {
	// Reporter, when set, echoes each accepted question.
	Reporter types.Reporter
}

func (a AlwaysAccept) Confirm(question string, defaultYes bool) (bool, error) {
	if a.Reporter != nil {
		a.Reporter.Info("%s (accepted non-interactively)", question)
	}
	return true, nil
}

// TerminalPrompter reads free text with the default pre-filled.
type TerminalPrompter struct{}

func (TerminalPrompter) Ask(label, defaultValue string) (string, error) {
	answer, err := pterm.DefaultInteractiveTextInput.
		WithDefaultValue(defaultValue).
		Show(label)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrPromptDeclined, "prompt for %s failed", label)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

// DefaultsPrompter answers every prompt with its default.
type DefaultsPrompter struct{}

func (DefaultsPrompter) Ask(_, defaultValue string) (string, error) {
	return defaultValue, nil
}

// TerminalSecret reads a passphrase without echo.
type TerminalSecret struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalSecret reads from in and prompts on stderr.
func NewTerminalSecret(in *os.File) *TerminalSecret {
	return &TerminalSecret{In: in, Out: os.Stderr}
}

func (s *TerminalSecret) AskSecret(label string) ([]byte, error) {
	if s.In == nil || !term.IsTerminal(int(s.In.Fd())) {
		return nil, errors.Newf(errors.ErrPromptDeclined, "cannot ask for %s: no terminal", label)
	}
	fmt.Fprintf(s.Out, "%s: ", label)
	secret, err := term.ReadPassword(int(s.In.Fd()))
	fmt.Fprintln(s.Out)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrPromptDeclined, "cannot read %s", label)
	}
	return secret, nil
}

// NoSecrets declines every secret prompt.
type NoSecrets struct{}

func (NoSecrets) AskSecret(label string) ([]byte, error) {
	return nil, errors.Newf(errors.ErrPromptDeclined, "not asking for %s in non-interactive mode", label)
}

// Interaction is the set of prompt sources for one run.
type Interaction struct {
	Confirm  types.ConfirmationSource
	Prompter types.Prompter
	Secrets  types.SecretPrompter
	// Interactive is false when prompts are answered automatically.
	Interactive bool
}

// NewInteraction picks terminal prompts when stdin is a terminal and
// automatic is false, and the always-accept sources otherwise.
func NewInteraction(stdin *os.File, automatic bool, reporter types.Reporter) Interaction {
	if automatic || stdin == nil || !term.IsTerminal(int(stdin.Fd())) {
		return Interaction{
			Confirm:  AlwaysAccept{Reporter: reporter},
			Prompter: DefaultsPrompter{},
			Secrets:  NoSecrets{},
		}
	}
	return Interaction{
		Confirm:     TerminalConfirm{},
		Prompter:    TerminalPrompter{},
		Secrets:     NewTerminalSecret(stdin),
		Interactive: true,
	}
}

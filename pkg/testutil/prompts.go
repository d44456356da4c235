package testutil

import (
	"fmt"
	"sync"
)

// FixedConfirm answers every confirmation with Answer and records the questions.
type FixedConfirm struct {
	Answer    bool
	Err       error
	Questions []string
}

// Confirm implements types.ConfirmationSource.
func (f *FixedConfirm) Confirm(question string, defaultYes bool) (bool, error) {
	f.Questions = append(f.Questions, question)
	return f.Answer, f.Err
}

// StaticPrompter answers Ask from a map keyed by label; missing labels yield the default.
type StaticPrompter struct {
	Answers map[string]string
	Asked   []string
}

// Ask implements types.Prompter.
func (p *StaticPrompter) Ask(label, defaultValue string) (string, error) {
	p.Asked = append(p.Asked, label)
	if v, ok := p.Answers[label]; ok && v != "" {
		return v, nil
	}
	return defaultValue, nil
}

// StaticSecret returns the same secret for every label.
type StaticSecret struct {
	Secret []byte
	Err    error
	Asked  []string
}

// AskSecret implements types.SecretPrompter.
func (s *StaticSecret) AskSecret(label string) ([]byte, error) {
	s.Asked = append(s.Asked, label)
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]byte(nil), s.Secret...), nil
}

// Level of a captured report line.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelFatal   Level = "fatal"
)

// Line is one captured report line.
type Line struct {
	Level   Level
	Message string
}

// CaptureReporter records diagnostics instead of printing them.
type CaptureReporter struct {
	mu    sync.Mutex
	Lines []Line
}

func (c *CaptureReporter) add(level Level, format string, args []interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Lines = append(c.Lines, Line{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (c *CaptureReporter) Info(format string, args ...interface{}) {
	c.add(LevelInfo, format, args)
}

func (c *CaptureReporter) Success(format string, args ...interface{}) {
	c.add(LevelSuccess, format, args)
}

func (c *CaptureReporter) Warn(format string, args ...interface{}) {
	c.add(LevelWarn, format, args)
}

func (c *CaptureReporter) Fatal(format string, args ...interface{}) {
	c.add(LevelFatal, format, args)
}

// Messages returns the messages captured at level.
func (c *CaptureReporter) Messages(level Level) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, l := range c.Lines {
		if l.Level == level {
			out = append(out, l.Message)
		}
	}
	return out
}

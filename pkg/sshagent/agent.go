package sshagent

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/paths"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/arthur-debert/dotboot/pkg/types"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

const (
	EnvAuthSock = "SSH_AUTH_SOCK"
	EnvAgentPID = "SSH_AGENT_PID"

	defaultDialTimeout = 2 * time.Second
)

// DefaultKeys is the candidate list used when none is configured.
var DefaultKeys = []string{"~/.ssh/id_ed25519", "~/.ssh/id_ecdsa", "~/.ssh/id_rsa"}

// Loader prepares the agent and loads keys into it.
type Loader struct {
	Runner runner.Runner
	// Secrets asks for key passphrases. Nil means encrypted keys are skipped.
	Secrets types.SecretPrompter
	Keys    []string
	// DialTimeout bounds the liveness check. Zero uses a short default.
	DialTimeout time.Duration
}

// KeyResult is the outcome for one candidate key file.
type KeyResult struct {
	Path    string
	Loaded  bool
	Already bool
	Err     error
}

// Report summarises a Prepare call.
type Report struct {
	Socket  string
	Reused  bool
	Spawned bool
	// Exports holds the variables a spawned agent printed.
	Exports map[string]string
	Keys    []KeyResult
}

// Found counts candidate files that exist.
func (r Report) Found() int { return len(r.Keys) }

// Attempted counts keys that needed loading (not already in the agent).
func (r Report) Attempted() int {
	n := 0
	for _, k := range r.Keys {
		if !k.Already {
			n++
		}
	}
	return n
}

// Loaded counts keys that are in the agent after the call.
func (r Report) Loaded() int {
	n := 0
	for _, k := range r.Keys {
		if k.Loaded || k.Already {
			n++
		}
	}
	return n
}

// Failed returns the keys that could not be loaded.
func (r Report) Failed() []KeyResult {
	var out []KeyResult
	for _, k := range r.Keys {
		if k.Err != nil {
			out = append(out, k)
		}
	}
	return out
}

// Prepare ensures a live agent and loads the configured keys into it. The
// returned Env carries the agent's exports when one was spawned. An error is
// returned only when no agent could be reached or started.
func (l Loader) Prepare(ctx context.Context, env hostenv.Env) (Report, hostenv.Env, error) {
	logger := logging.FromContext(ctx, "sshagent")
	var report Report

	client, conn, err := l.connect(env.Get(EnvAuthSock))
	if err == nil {
		report.Reused = true
		report.Socket = env.Get(EnvAuthSock)
		logger.Info().Str("socket", report.Socket).Msg("Reusing running agent")
	} else {
		if env.IsSet(EnvAuthSock) {
			logger.Warn().Err(err).Str("socket", env.Get(EnvAuthSock)).Msg("Advertised agent is not reachable")
		}
		exports, spawnErr := l.spawn(ctx, env)
		if spawnErr != nil {
			return report, env, spawnErr
		}
		env = env.WithAll(exports)
		report.Spawned = true
		report.Exports = exports
		report.Socket = exports[EnvAuthSock]

		client, conn, err = l.connect(report.Socket)
		if err != nil {
			return report, env, errors.Wrapf(err, errors.ErrMissingCapability,
				"started ssh-agent but cannot reach %s", report.Socket)
		}
		logger.Info().Str("socket", report.Socket).Str("pid", exports[EnvAgentPID]).Msg("Started agent")
	}
	defer func() { _ = conn.Close() }()

	present := loadedKeys(client)
	keys := l.Keys
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	for _, candidate := range keys {
		path := paths.Expand(env, candidate)
		data, err := os.ReadFile(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		res := KeyResult{Path: path}
		switch {
		case err != nil:
			res.Err = errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path)
		case present[publicKeyFor(path)]:
			res.Already = true
		default:
			res.Err = l.add(client, path, data)
			res.Loaded = res.Err == nil
		}
		if res.Err != nil {
			logger.Warn().Err(res.Err).Str("key", path).Msg("Key not loaded")
		}
		report.Keys = append(report.Keys, res)
	}

	logger.Info().
		Int("found", report.Found()).
		Int("attempted", report.Attempted()).
		Int("loaded", report.Loaded()).
		Msg("Keys processed")
	return report, env, nil
}

func (l Loader) connect(sock string) (agent.ExtendedAgent, net.Conn, error) {
	if sock == "" {
		return nil, nil, fmt.Errorf("%s is not set", EnvAuthSock)
	}
	timeout := l.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	conn, err := net.DialTimeout("unix", sock, timeout)
	if err != nil {
		return nil, nil, err
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))
	client := agent.NewClient(conn)
	if _, err := client.List(); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	// key loading may block on a passphrase prompt; only the handshake is bounded
	_ = conn.SetDeadline(time.Time{})
	return client, conn, nil
}

func (l Loader) spawn(ctx context.Context, env hostenv.Env) (map[string]string, error) {
	res, err := l.Runner.Run(ctx, runner.Command{Name: "ssh-agent", Args: []string{"-s"}, Env: env})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrMissingCapability, "cannot start ssh-agent")
	}
	exports := ParseExports(res.Stdout)
	if exports[EnvAuthSock] == "" {
		return nil, errors.Newf(errors.ErrMissingCapability, "ssh-agent did not report %s", EnvAuthSock).
			WithDetail("stdout", res.Stdout)
	}
	return exports, nil
}

func (l Loader) add(client agent.ExtendedAgent, path string, data []byte) error {
	key, err := ssh.ParseRawPrivateKey(data)
	var missing *ssh.PassphraseMissingError
	if stderrors.As(err, &missing) {
		if l.Secrets == nil {
			return errors.Newf(errors.ErrPartialCredentialLoad, "%s is encrypted and no passphrase prompt is available", path)
		}
		pass, askErr := l.Secrets.AskSecret(fmt.Sprintf("Passphrase for %s", path))
		if askErr != nil {
			return errors.Wrapf(askErr, errors.ErrPromptDeclined, "no passphrase for %s", path)
		}
		key, err = ssh.ParseRawPrivateKeyWithPassphrase(data, pass)
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrPartialCredentialLoad, "cannot parse %s", path)
	}
	if err := client.Add(agent.AddedKey{PrivateKey: key, Comment: path}); err != nil {
		return errors.Wrapf(err, errors.ErrPartialCredentialLoad, "agent refused %s", path)
	}
	return nil
}

// loadedKeys indexes the agent's keys by their authorized_keys form.
func loadedKeys(client agent.ExtendedAgent) map[string]bool {
	out := make(map[string]bool)
	keys, err := client.List()
	if err != nil {
		return out
	}
	for _, k := range keys {
		out[string(bytes.TrimSpace(ssh.MarshalAuthorizedKey(k)))] = true
	}
	return out
}

// publicKeyFor reads path.pub, returning "" when it is missing or unparsable.
func publicKeyFor(path string) string {
	data, err := os.ReadFile(path + ".pub")
	if err != nil {
		return ""
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(ssh.MarshalAuthorizedKey(pub)))
}

// ParseExports reads the Bourne shell output of "ssh-agent -s":
//
//	SSH_AUTH_SOCK=/tmp/ssh-XXXX/agent.123; export SSH_AUTH_SOCK;
//	SSH_AGENT_PID=124; export SSH_AGENT_PID;
//	echo Agent pid 124;
func ParseExports(out string) map[string]string {
	exports := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		for _, stmt := range strings.Split(scanner.Text(), ";") {
			stmt = strings.TrimSpace(stmt)
			key, value, ok := strings.Cut(stmt, "=")
			if !ok || strings.ContainsAny(key, " \t") {
				continue
			}
			if key != EnvAuthSock && key != EnvAgentPID {
				continue
			}
			exports[key] = strings.Trim(value, `"'`)
		}
	}
	return exports
}

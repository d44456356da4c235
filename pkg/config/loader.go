package config

import (
	_ "embed"
	stderrors "errors"
	"io/fs"
	"os"
	"strings"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/paths"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "DOTBOOT_"

//go:embed embedded/defaults.toml
var defaultConfig []byte

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, stderrors.New("not implemented")
}

// Options select the layers to load.
type Options struct {
	// Env resolves the user config file location and supplies the DOTBOOT_*
	// overrides.
	Env hostenv.Env
	// File overrides the config file path.
	File string
	// Overrides are flag values keyed by dotted path, applied last.
	Overrides map[string]interface{}
}

// Loaded is a configuration together with where it came from.
type Loaded struct {
	Config *Config
	// File is the user config file that was read, empty when none existed.
	File string
}

// Load builds the effective configuration.
func Load(opts Options) (Loaded, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return Loaded{}, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. User file
	path := opts.File
	if path == "" {
		path = paths.New(opts.Env).ConfigFile()
	} else {
		path = paths.Expand(opts.Env, path)
	}
	var loaded Loaded
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Loaded{}, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path).
				WithDetail("path", path)
		}
		loaded.File = path
	} else if !stderrors.Is(err, fs.ErrNotExist) || opts.File != "" {
		return Loaded{}, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read config file %s", path).
			WithDetail("path", path)
	}

	// 3. Environment
	if err := k.Load(confmap.Provider(envOverrides(opts.Env), "."), nil); err != nil {
		return Loaded{}, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	// 4. Flags
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return Loaded{}, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	cfg, err := decode(k)
	if err != nil {
		return Loaded{}, err
	}
	if err := Validate(cfg); err != nil {
		return Loaded{}, err
	}
	loaded.Config = cfg
	return loaded, nil
}

// envOverrides collects the DOTBOOT_* configuration keys set in e. Empty
// values are ignored.
func envOverrides(e hostenv.Env) map[string]interface{} {
	out := make(map[string]interface{})
	for _, kv := range e.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, EnvPrefix) || value == "" {
			continue
		}
		if key := envKey(name); key != "" {
			out[key] = value
		}
	}
	return out
}

// envKey maps DOTBOOT_REPOSITORY__SSH_URL to repository.ssh_url. Variables
// without a section separator (DOTBOOT_CONFIG, DOTBOOT_STATE_DIR) are not
// configuration keys and are dropped.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if !strings.Contains(key, "__") {
		return ""
	}
	return strings.ReplaceAll(key, "__", ".")
}

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and that a repository remote is known.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return errors.Wrapf(err, errors.ErrConfigValid, "invalid value for %s (%s)",
				first.Namespace(), first.Tag()).
				WithDetail("field", first.Namespace())
		}
		return errors.Wrap(err, errors.ErrConfigValid, "invalid configuration")
	}

	sshURL, httpsURL := cfg.Repository.ResolveRemotes()
	if sshURL == "" && httpsURL == "" {
		return errors.Newf(errors.ErrConfigValid,
			"no repository configured: set repository.github or repository.ssh_url/https_url (or %sREPOSITORY__GITHUB)", EnvPrefix)
	}
	if len(cfg.Nix.InstallerArgs) > len(cfg.Nix.InstallerURLs) {
		return errors.New(errors.ErrConfigValid, "nix.installer_args has more entries than nix.installer_urls")
	}
	return nil
}

// Defaults decodes the embedded defaults alone.
func Defaults() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}
	return decode(k)
}

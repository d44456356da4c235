package config

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/types"
	"github.com/pelletier/go-toml/v2"
)

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode configuration")
	}
	return data, nil
}

// WriteDefaults writes the commented defaults file to path. An existing file
// is only replaced when force is set. It reports whether the file was written.
func WriteDefaults(fsys types.FS, path string, force bool) (bool, error) {
	if _, err := fsys.Stat(path); err == nil {
		if !force {
			return false, nil
		}
	} else if !stderrors.Is(err, fs.ErrNotExist) {
		return false, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", path)
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(path))
	}
	if err := fsys.WriteFile(path, defaultConfig, 0644); err != nil {
		return false, errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", path)
	}
	return true, nil
}

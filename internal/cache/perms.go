package cache

import (
	"errors"
	"os"
	"strings"
)

// modes returns directory and file permissions for the requested strictness.
func modes(strict bool) (dir, file os.FileMode) {
	if strict {
		return 0o700, 0o600
	}
	return 0o755, 0o644
}

// ensureDir creates dir and, in strict mode, tightens an existing one.
func ensureDir(dir string, strict bool) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("cache dir not configured")
	}
	dmode, _ := modes(strict)
	if err := os.MkdirAll(dir, dmode); err != nil {
		return err
	}
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode()&0o777 != dmode {
			_ = os.Chmod(dir, dmode)
		}
	}
	return nil
}

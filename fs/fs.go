// Package fs provides filesystem helpers: XDG paths for config and logs, and
// reading screenshot files for attachment.
package fs

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/usertbera/enveye"
)

const appName = "enveye"

// DefaultConfigPath returns the default config file location.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/enveye/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "config.yaml")
}

// DefaultLogPath returns the default log file location.
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state/enveye/enveye.log.
func DefaultLogPath() string {
	return filepath.Join(xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")), appName+".log")
}

// xdgDir resolves an application directory from an XDG variable, falling
// back to the home directory, or the system temp directory if home is
// unavailable.
func xdgDir(env, homeRel string) string {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, homeRel, appName)
}

// ImageExtensions lists the file extensions offered when attaching a
// screenshot.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

// ReadScreenshot reads an image file and returns its bytes with the declared
// MIME type. The type comes from the file extension, or from content
// sniffing when the extension is unknown. Files larger than
// enveye.MaxScreenshotSize are rejected before reading.
func ReadScreenshot(path string) ([]byte, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%w: %s is a directory", enveye.ErrInvalidAttachment, path)
	}
	if info.Size() > enveye.MaxScreenshotSize {
		return nil, "", fmt.Errorf("%w: %s is %d bytes, limit is %d", enveye.ErrInvalidAttachment, path, info.Size(), enveye.MaxScreenshotSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, DetectMIME(path, data), nil
}

// DetectMIME returns the declared MIME type of a file.
func DetectMIME(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

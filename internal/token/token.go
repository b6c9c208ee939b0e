// Package token resolves the opaque bank API token. The synchronizer
// never provisions tokens; it only needs to know whether one exists.
package token

import (
	"os"
	"strings"
)

// Source supplies the API token. The second return is false when no
// token is available.
type Source interface {
	Token() (string, bool)
}

// Static is a fixed token value, mainly for tests.
type Static string

func (s Static) Token() (string, bool) { return string(s), s != "" }

// EnvSource reads the token from an environment variable on every call,
// so rotation does not require a restart of long-lived processes that
// re-exec with a fresh environment.
type EnvSource struct {
	key string
}

// FromEnv creates a source backed by the named environment variable.
func FromEnv(key string) EnvSource {
	return EnvSource{key: key}
}

func (s EnvSource) Token() (string, bool) {
	v := strings.TrimSpace(os.Getenv(s.key))
	return v, v != ""
}

// FileSource reads the token from a file, trimming whitespace. Missing
// or empty files mean no token, not an error.
type FileSource struct {
	path string
}

// FromFile creates a source backed by a token file.
func FromFile(path string) FileSource {
	return FileSource{path: path}
}

func (s FileSource) Token() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	return v, v != ""
}

// Chain tries each source in order and returns the first token found.
type Chain []Source

func (c Chain) Token() (string, bool) {
	for _, s := range c {
		if v, ok := s.Token(); ok {
			return v, true
		}
	}
	return "", false
}

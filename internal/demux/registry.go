package demux

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// An OpenFunc opens one input format. For scheme tags, path is what follows
// the colon; for file extensions, it is the whole path.
type OpenFunc func(path string) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]OpenFunc{}
)

// RegisterFormat makes a format available to Open. A key beginning with a
// dot is matched against file extensions (".mp4"); anything else is a scheme
// tag matched against the text before the first colon ("testsrc").
func RegisterFormat(key string, open OpenFunc) {
	registryMu.Lock()
	registry[strings.ToLower(key)] = open
	registryMu.Unlock()
}

// Formats returns the registered keys, sorted.
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var keys []string
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lookup resolves an input name to an opener and the argument to call it
// with. A name is either "tag:path" or a file path.
func lookup(name string) (OpenFunc, string, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	// Single letter tags are drive letters, not schemes.
	if parts := strings.SplitN(name, ":", 2); len(parts) == 2 && len(parts[0]) > 1 {
		if open, found := registry[strings.ToLower(parts[0])]; found {
			return open, parts[1], nil
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if open, found := registry[ext]; found && ext != "" {
		return open, name, nil
	}

	return nil, "", errors.Wrapf(errNotRegistered, "no format for %q", name)
}

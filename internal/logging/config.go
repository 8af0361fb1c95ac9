package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

const envVar = "LOGLEVEL"

var (
	tagMu     sync.RWMutex
	tagLevels = map[string]Level{}
)

func init() {
	// Parse environment variable into comma-separated "tag=level" directives.
	// If "tag=" is absent, use the level as the default.
	for _, d := range strings.Split(os.Getenv(envVar), ",") {
		if d == "" {
			continue
		}
		if err := applyDirective(d); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid %s directive '%s': %s\n", envVar, d, err)
		}
	}
}

// ApplyDirectives parses the same "tag=level,level" syntax as the LOGLEVEL
// environment variable, e.g. from a command line flag.
func ApplyDirectives(s string) error {
	for _, d := range strings.Split(s, ",") {
		if d == "" {
			continue
		}
		if err := applyDirective(d); err != nil {
			return err
		}
	}
	return nil
}

func applyDirective(d string) error {
	v := strings.SplitN(d, "=", 2)
	level, err := ParseLevel(v[len(v)-1])
	if err != nil {
		return err
	}
	if len(v) == 1 {
		DefaultLogger.out.setLevel(level)
		return nil
	}
	tagMu.Lock()
	tagLevels[v[0]] = level
	tagMu.Unlock()
	return nil
}

func levelForTag(tag string) (Level, bool) {
	tagMu.RLock()
	defer tagMu.RUnlock()
	l, ok := tagLevels[tag]
	return l, ok
}

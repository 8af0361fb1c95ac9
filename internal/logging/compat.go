package logging

import (
	"fmt"
	"os"
)

// Fatalf logs at Error level and exits. Reserved for the command line.
func (log *Logger) Fatalf(format string, v ...interface{}) {
	log.Log(Error, 1, format, v...)
	os.Exit(1)
}

// Panicf logs at Error level and panics. Used for lifecycle bugs that must
// not be recovered from, e.g. a worker goroutine that never terminates.
func (log *Logger) Panicf(format string, v ...interface{}) {
	s := fmt.Sprintf(format, v...)
	log.Log(Error, 1, "%s", s)
	panic(s)
}

func (log *Logger) Printf(format string, v ...interface{}) {
	log.Log(Info, 1, format, v...)
}

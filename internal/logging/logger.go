package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// output is shared by a root logger and every logger derived from it, so that
// redirecting the root also redirects package loggers created at init time.
type output struct {
	// Mutex to prevent messages from different goroutines from interleaving.
	mu       sync.Mutex
	w        io.Writer
	level    Level
	colorize bool
}

func (o *output) setLevel(l Level) {
	o.mu.Lock()
	o.level = l
	o.mu.Unlock()
}

func (o *output) current() (Level, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level, o.colorize
}

type Logger struct {
	// Tag used to filter and classify log messages.
	Tag string

	out *output
}

// Write to stderr by default.
var DefaultLogger = &Logger{out: &output{w: os.Stderr, level: defaultLevel, colorize: true}}

// Override the destination for this logger and all loggers derived from it.
// Colors are only written to the default terminal destination.
func (log *Logger) SetDestination(out io.Writer) {
	log.out.mu.Lock()
	log.out.w = out
	log.out.colorize = out == os.Stderr || out == os.Stdout
	log.out.mu.Unlock()
}

// SetRotatingFile sends log output to a size-rotated file.
func (log *Logger) SetRotatingFile(name string, maxSizeMB, maxBackups, maxAgeDays int) io.Closer {
	lj := &lumberjack.Logger{
		Filename:   name,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	log.SetDestination(lj)
	return lj
}

// SetLevel changes the level of every logger without an explicit tag
// directive.
func (log *Logger) SetLevel(level Level) {
	log.out.setLevel(level)
}

// Derive a new logger with the given tag.
func (log *Logger) WithTag(tag string) *Logger {
	return &Logger{Tag: tag, out: log.out}
}

// Level returns the effective level: the tag directive if one exists,
// otherwise the shared default.
func (log *Logger) Level() Level {
	if l, ok := levelForTag(log.Tag); ok {
		return l
	}
	l, _ := log.out.current()
	return l
}

// Enabled reports whether messages at the given level would be written.
func (log *Logger) Enabled(level Level) bool {
	return level <= log.Level()
}

// Wrapper for []byte that implements io.Writer. Simpler and cheaper than
// bytes.Buffer.
type buffer []byte

func (b *buffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

func (b *buffer) writeString(s string) {
	*b = append(*b, s...)
}

func (b *buffer) writeByte(c byte) {
	*b = append(*b, c)
}

// A global buffer pool, shared across all loggers.
var bufPool = sync.Pool{
	New: func() interface{} {
		return make(buffer, 0, 256)
	},
}

// Log a message at the given level. Include the file and line number from
// 'calldepth' steps up the call stack.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if !log.Enabled(level) {
		return
	}
	_, colorize := log.out.current()

	buf := bufPool.Get().(buffer)
	defer func() { bufPool.Put(buf[:0]) }()

	stamp := time.Now().Format(timestampFormat)

	// Get the caller of Error()/Warn()/Info()/etc.
	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}
	header := fmt.Sprintf("%c/%s[%s:%d]", level.letter(), log.Tag, filepath.Base(file), line)

	if colorize {
		buf.writeString(stampColor.Sprint(stamp))
		buf.writeByte(' ')
		buf.writeString(level.color().Sprint(header))
	} else {
		buf.writeString(stamp)
		buf.writeByte(' ')
		buf.writeString(header)
	}
	buf.writeByte(' ')

	fmt.Fprintf(&buf, format, a...)

	// Append newline if necessary.
	if n := len(buf); n == 0 || buf[n-1] != '\n' {
		buf.writeByte('\n')
	}

	// Lock before writing to avoid interleaving of log messages.
	log.out.mu.Lock()
	_, err := log.out.w.Write(buf)
	log.out.mu.Unlock()
	if err != nil {
		panic(fmt.Sprintf("Failed to log to %v: %v", log.out.w, err))
	}
}

func (log *Logger) Error(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
}

func (log *Logger) Warn(format string, a ...interface{}) {
	log.Log(Warn, 1, format, a...)
}

func (log *Logger) Info(format string, a ...interface{}) {
	log.Log(Info, 1, format, a...)
}

func (log *Logger) Debug(format string, a ...interface{}) {
	log.Log(Debug, 1, format, a...)
}

func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}

package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Logger flags
const (
	FTimestamp = 1 << iota
	FShowFile
)

// Log levels, lower is more verbose
const (
	TRACE = 10 * iota
	DEBUG
	INFO
	WARN
	ERROR
	CRIT
	PANIC
)

var levelNames = map[int]string{
	TRACE: "TRACE",
	DEBUG: "DEBUG",
	INFO:  "INFO ",
	WARN:  "WARN ",
	ERROR: "ERROR",
	CRIT:  "CRIT ",
	PANIC: "PANIC",
}

func levelToString(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return "?????"
}

// ParseLevel converts a level name (case insensitive) to its numeric level
func ParseLevel(name string) (int, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for level, levelName := range levelNames {
		if strings.TrimSpace(levelName) == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// syncWriter is shared between a Logger and all of its clones so that lines from different components do not
// interleave
type syncWriter struct {
	sync.Mutex
	w io.Writer
}

// Logger is a level based logging engine
type Logger struct {
	flags    int
	output   *syncWriter
	prefix   string
	minLevel int
}

// New creates a new logger with the set options
func New(flags int, output io.Writer, prefix string, minLevel int) *Logger {
	return &Logger{flags: flags, output: &syncWriter{w: output}, prefix: prefix, minLevel: minLevel}
}

func (l *Logger) Flags() int {
	return l.flags
}

func (l *Logger) SetFlags(flags int) *Logger {
	l.flags = flags
	return l
}

func (l *Logger) Prefix() string {
	return l.prefix
}

func (l *Logger) SetPrefix(prefix string) *Logger {
	l.prefix = prefix
	return l
}

func (l *Logger) MinLevel() int {
	return l.minLevel
}

func (l *Logger) SetMinLevel(level int) *Logger {
	l.minLevel = level
	return l
}

// Clone returns a copy of the Logger that shares its output. Changes to the clone's prefix, flags or level do not
// affect the original
func (l *Logger) Clone() *Logger {
	out := *l
	return &out
}

func shortenFilename(filename string) string {
	if i := strings.LastIndexByte(filename, '/'); i != -1 {
		return filename[i+1:]
	}
	return filename
}

func (l *Logger) writeOut(msg string, level int) {
	if level < l.minLevel {
		return
	}

	outStr := strings.Builder{}
	if l.flags&FTimestamp != 0 {
		outStr.WriteString("[" + time.Now().Format("15:04:05.000") + "] ")
	}

	outStr.WriteString("[" + levelToString(level) + "] ")

	if l.flags&FShowFile != 0 {
		outStr.WriteRune('[')
		// writeOut -> exported level func -> caller
		if _, file, line, ok := runtime.Caller(2); ok {
			outStr.WriteString(shortenFilename(file))
			outStr.WriteRune(':')
			outStr.WriteString(strconv.Itoa(line))
		} else {
			outStr.WriteString("???")
		}
		outStr.WriteString("] ")
	}

	if l.prefix != "" {
		outStr.WriteString("[" + l.prefix + "] ")
	}

	outStr.WriteString(strings.TrimRight(msg, "\r\n"))
	outStr.WriteRune('\n')

	l.output.Lock()
	defer l.output.Unlock()
	_, _ = io.WriteString(l.output.w, outStr.String())
}

// Trace logs the passed data at the Trace level. The passed arguments are run through fmt.Sprint before logging
func (l *Logger) Trace(args ...interface{}) {
	l.writeOut(fmt.Sprint(args...), TRACE)
}

// Tracef logs the passed data at the Trace level using the format string passed as the first argument
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.writeOut(fmt.Sprintf(format, args...), TRACE)
}

// Debug logs the passed data at the Debug level. The passed arguments are run through fmt.Sprint before logging
func (l *Logger) Debug(args ...interface{}) {
	l.writeOut(fmt.Sprint(args...), DEBUG)
}

// Debugf logs the passed data at the Debug level using the format string passed as the first argument
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.writeOut(fmt.Sprintf(format, args...), DEBUG)
}

// Info logs the passed data at the Info level. The passed arguments are run through fmt.Sprint before logging
func (l *Logger) Info(args ...interface{}) {
	l.writeOut(fmt.Sprint(args...), INFO)
}

// Infof logs the passed data at the Info level using the format string passed as the first argument
func (l *Logger) Infof(format string, args ...interface{}) {
	l.writeOut(fmt.Sprintf(format, args...), INFO)
}

// Warn logs the passed data at the Warn level. The passed arguments are run through fmt.Sprint before logging
func (l *Logger) Warn(args ...interface{}) {
	l.writeOut(fmt.Sprint(args...), WARN)
}

// Warnf logs the passed data at the Warn level using the format string passed as the first argument
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.writeOut(fmt.Sprintf(format, args...), WARN)
}

// Error logs the passed data at the Error level. The passed arguments are run through fmt.Sprint before logging
func (l *Logger) Error(args ...interface{}) {
	l.writeOut(fmt.Sprint(args...), ERROR)
}

// Errorf logs the passed data at the Error level using the format string passed as the first argument
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.writeOut(fmt.Sprintf(format, args...), ERROR)
}

// Crit logs the passed data at the Crit level and exits the program
func (l *Logger) Crit(args ...interface{}) {
	l.writeOut(fmt.Sprint(args...), CRIT)
	os.Exit(1)
}

// Critf logs the passed data at the Crit level using the format string passed as the first argument, and exits
// the program
func (l *Logger) Critf(format string, args ...interface{}) {
	l.writeOut(fmt.Sprintf(format, args...), CRIT)
	os.Exit(1)
}

// Panic logs the passed data at the Panic level and then panics with the message
func (l *Logger) Panic(args ...interface{}) {
	msg := fmt.Sprint(args...)
	l.writeOut(msg, PANIC)
	panic(msg)
}

// Panicf logs the passed data at the Panic level using the format string passed as the first argument, and then
// panics with the message
func (l *Logger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.writeOut(msg, PANIC)
	panic(msg)
}

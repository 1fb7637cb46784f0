package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"sync/atomic"

	"github.com/cornelk/hashmap"
)

const (
	ERROR   = 1
	INFO    = 2
	VERBOSE = 3
	DEBUG   = 7
)

// Logger is passed explicitly to every component, tagged copies share the
// level, filter and repeat limiter of their parent.
type Logger struct {
	*shared
	tag string
}

type shared struct {
	out     *log.Logger
	level   int
	limiter int
	filter  *regexp.Regexp
	counter *hashmap.HashMap
}

func New(level int) *Logger {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level int) *Logger {
	return &Logger{shared: &shared{
		out:     log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		level:   level,
		counter: &hashmap.HashMap{},
	}}
}

// Discard returns a logger that prints nothing, mostly for tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, 0)
}

func (l *Logger) Tagged(tag string) *Logger {
	return &Logger{shared: l.shared, tag: "[" + tag + "] "}
}

func (l *Logger) Level() int {
	return l.level
}

func (l *Logger) SetLimiter(n int) {
	l.limiter = n
}

func (l *Logger) SetFilter(pattern string) error {
	if pattern == "" {
		l.filter = nil
		return nil
	}
	// https://github.com/google/re2/wiki/Syntax
	reg, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	l.filter = reg
	return nil
}

func (l *Logger) Errorf(format string, v ...any) {
	l.printfAtLevel(ERROR, format, v...)
}

func (l *Logger) Printf(format string, v ...any) {
	if l.level >= INFO {
		l.out.Print(l.tag + fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Verbosef(format string, v ...any) {
	l.printfAtLevel(VERBOSE, format, v...)
}

func (l *Logger) Debugf(format string, v ...any) {
	l.printfAtLevel(DEBUG, format, v...)
}

func (l *Logger) printfAtLevel(lvl int, format string, v ...any) {
	if l.level < lvl {
		return
	}
	out := l.filterOutput(format, v...)
	if out == "" {
		return
	}
	if !l.limiterAvailable(out) {
		return
	}
	l.out.Print(out)
}

func (l *Logger) limiterAvailable(out string) bool {
	if l.limiter == 0 {
		return true
	}
	var i int64
	val, _ := l.counter.GetOrInsert(out, &i)
	actual := (val).(*int64)
	count := atomic.AddInt64(actual, 1)
	return count <= int64(l.limiter)
}

func (l *Logger) filterOutput(format string, v ...any) string {
	out := l.tag + fmt.Sprintf(format, v...)
	if l.filter == nil || l.filter.MatchString(out) {
		return out
	}
	return ""
}

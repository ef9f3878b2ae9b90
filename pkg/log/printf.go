package log

import (
	"context"
	"fmt"
	"strings"
)

// PrintfLogger forwards the Println/Printf output of client libraries, such
// as the paho and go-redis internals, to the process logger.
type PrintfLogger struct {
	name  string
	debug bool
}

// NewPrintfLogger logs lines under name, at debug level when debug is set
// and as warnings otherwise.
func NewPrintfLogger(name string, debug bool) *PrintfLogger {
	return &PrintfLogger{name: name, debug: debug}
}

func (p *PrintfLogger) Println(v ...any) {
	p.log(fmt.Sprintln(v...))
}

func (p *PrintfLogger) Printf(format string, v ...any) {
	p.log(fmt.Sprintf(format, v...))
}

// ContextPrintf matches loggers that take a context first.
type ContextPrintf struct {
	*PrintfLogger
}

func (c ContextPrintf) Printf(_ context.Context, format string, v ...any) {
	c.PrintfLogger.Printf(format, v...)
}

func (p *PrintfLogger) log(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	l := std.WithName(p.name)
	if p.debug {
		l.Debug(line)
		return
	}
	l.Warn(line)
}

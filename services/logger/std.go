package logsvc

import (
	"log"

	"github.com/trezcool/darasa/core"
)

// StdLogger logs to a standard library logger; used in DEV/TEST mode.
type StdLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger, conf *core.Config) *StdLogger {
	return &StdLogger{std: std, debug: conf.Debug}
}

func (l StdLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print("DEBUG: "+msg, args)
	}
}

func (l StdLogger) Info(msg string, args ...interface{}) {
	l.print("INFO: "+msg, args)
}

func (l StdLogger) Warn(msg string, args ...interface{}) {
	l.print("WARN: "+msg, args)
}

func (l StdLogger) Error(msg string, err error, args ...interface{}) {
	l.print("ERROR: "+msg+": "+errString(err), args)
}

func (l StdLogger) Critical(msg string, err error, args ...interface{}) {
	l.print("CRITICAL: "+msg+": "+errString(err), args)
}

func (l StdLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

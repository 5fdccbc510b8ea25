package core

// Logger is the app-wide logging contract. Implementations may forward errors
// to an external tracker (rollbar) in addition to stdout.
//
// Variadic args may carry context values (maps, errors, a user.User); each
// implementation decides how to render them.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, err error, args ...interface{})
	Critical(msg string, err error, args ...interface{})
}

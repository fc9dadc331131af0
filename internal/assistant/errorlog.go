package assistant

import (
	"log"
	"sync"
)

// ErrorLogger logs each distinct error message once. Repeated failures of
// the same load are not logged again.
type ErrorLogger struct {
	logger *log.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewErrorLogger(logger *log.Logger) *ErrorLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &ErrorLogger{logger: logger, seen: map[string]struct{}{}}
}

// Log reports whether err was written.
func (l *ErrorLogger) Log(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	l.mu.Lock()
	if _, ok := l.seen[message]; ok {
		l.mu.Unlock()
		return false
	}
	l.seen[message] = struct{}{}
	l.mu.Unlock()

	l.logger.Printf("assistant error: %s", message)
	return true
}

package logging

// Fields is a minimal structured field map for log records.
type Fields map[string]any

// Logger is a tiny leveled logger. Wire an adapter around your logging stack;
// logging/zapadapter ships one for go.uber.org/zap. A nil Logger is never
// valid — use Nop to disable logging.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// Nop is a Logger that discards every record.
type Nop struct{}

func (Nop) Debug(string, Fields) {}
func (Nop) Info(string, Fields) {}
func (Nop) Warn(string, Fields) {}
func (Nop) Error(string, Fields) {}

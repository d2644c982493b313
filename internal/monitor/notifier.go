package monitor

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ConsoleNotifier writes events as single lines to an io.Writer (normally
// os.Stdout), matching the teacher's plain-text console output idiom.
type ConsoleNotifier struct {
	w io.Writer
}

// NewConsoleNotifier returns a ConsoleNotifier writing to w.
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

// Notify implements Notifier.
func (c *ConsoleNotifier) Notify(e Event) error {
	_, err := fmt.Fprintf(c.w, "[%s] %-13s %-10s healthy=%v %s\n",
		e.At.Format("2006-01-02T15:04:05Z"), e.Kind, e.Service, e.Healthy, e.Message)
	return err
}

// LogNotifier writes each event as a structured log line to a
// size-rotated log file. Rotation is handled by lumberjack rather than a
// hand-rolled rotating writer, so one file never grows unbounded across a
// long-running monitor loop.
type LogNotifier struct {
	logger *slog.Logger
	writer *lumberjack.Logger
}

// NewLogNotifier returns a LogNotifier writing JSON lines to path, rotating
// at 1MiB and keeping up to 5 rotated files.
func NewLogNotifier(path string) *LogNotifier {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    1, // MiB
		MaxBackups: 5,
		Compress:   true,
	}
	return &LogNotifier{
		logger: slog.New(slog.NewJSONHandler(writer, nil)),
		writer: writer,
	}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(e Event) error {
	l.logger.Info("monitor event",
		"kind", e.Kind,
		"service", e.Service,
		"healthy", e.Healthy,
		"message", e.Message,
		"run_id", e.RunID,
		"at", e.At,
	)
	return nil
}

// Close flushes and closes the underlying rotated file.
func (l *LogNotifier) Close() error {
	return l.writer.Close()
}

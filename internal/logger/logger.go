// Package logger provides the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats for Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatFixed   = "fixed"
)

// asyncWriter makes writes to a slow writer (a stalled terminal or a full
// journald pipe) non-blocking. Messages are handed to a drain goroutine and
// dropped when the buffer is full.
type asyncWriter struct {
	ch     chan []byte
	w      io.Writer
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	aw := &asyncWriter{
		ch:   make(chan []byte, bufSize),
		w:    w,
		done: make(chan struct{}),
	}
	go aw.drain()
	return aw
}

func (aw *asyncWriter) Write(p []byte) (int, error) {
	aw.mu.RLock()
	defer aw.mu.RUnlock()
	if aw.closed {
		return len(p), nil
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case aw.ch <- cp:
	default:
	}
	return len(p), nil
}

func (aw *asyncWriter) drain() {
	defer close(aw.done)
	for p := range aw.ch {
		_, _ = aw.w.Write(p)
	}
}

// Close stops accepting writes and waits until buffered messages are flushed.
func (aw *asyncWriter) Close() {
	aw.once.Do(func() {
		aw.mu.Lock()
		aw.closed = true
		aw.mu.Unlock()
		close(aw.ch)
		<-aw.done
	})
}

// Config holds the logger configuration.
type Config struct {
	Level      string `json:"Level"`
	Format     string `json:"Format"` // console, json or fixed
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
	NoColor    bool   `json:"NoColor"`
}

// DefaultConfig logs at info level to the console only.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     FormatConsole,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
		Console:    true,
	}
}

// Validate reports unknown levels or formats.
func (c Config) Validate() error {
	if c.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
	}
	switch strings.ToLower(c.Format) {
	case "", FormatConsole, FormatJSON, FormatFixed:
		return nil
	default:
		return fmt.Errorf("invalid log format %q: must be %q, %q or %q", c.Format, FormatConsole, FormatJSON, FormatFixed)
	}
}

var (
	mu               sync.Mutex
	globalLogger     = zerolog.Nop()
	prevFileWriter   io.Closer
	prevConsoleAsync *asyncWriter
)

// Init (re)initializes the global logger. It may be called again on config
// reload; writers from the previous call are closed.
func Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		level, _ = zerolog.ParseLevel(strings.ToLower(cfg.Level))
	}

	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if prevFileWriter != nil {
		prevFileWriter.Close()
		prevFileWriter = nil
	}
	if prevConsoleAsync != nil {
		prevConsoleAsync.Close()
		prevConsoleAsync = nil
	}

	format := strings.ToLower(cfg.Format)
	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		prevFileWriter = fileWriter
		if format == FormatFixed {
			writers = append(writers, NewFixedFormatWriter(fileWriter))
		} else {
			writers = append(writers, fileWriter)
		}
	}

	if cfg.Console || len(writers) == 0 {
		aw := newAsyncWriter(consoleWriter(format, cfg.NoColor), 1000)
		prevConsoleAsync = aw
		writers = append(writers, aw)
	}

	var output io.Writer = writers[0]
	if len(writers) > 1 {
		output = zerolog.MultiLevelWriter(writers...)
	}

	globalLogger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

func consoleWriter(format string, noColor bool) io.Writer {
	switch format {
	case FormatJSON:
		return os.Stdout
	case FormatFixed:
		return NewFixedFormatWriter(os.Stdout)
	default:
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}
	}
}

// Close flushes and closes the writers opened by Init.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if prevConsoleAsync != nil {
		prevConsoleAsync.Close()
		prevConsoleAsync = nil
	}
	if prevFileWriter != nil {
		prevFileWriter.Close()
		prevFileWriter = nil
	}
	globalLogger = zerolog.Nop()
}

// Logger returns the global logger instance.
func Logger() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	l := globalLogger
	return &l
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger.With().Str("component", component).Logger()
}

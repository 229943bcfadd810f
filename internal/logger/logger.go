package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
)

// Environment variables to configure the log file path and level.
const (
	envLogPath  = "WIKI_FETCH_LOG"
	envLogLevel = "WIKI_FETCH_LOG_LEVEL"
)

var (
	mu            sync.Mutex
	logFile       *os.File
	isInitialized bool
)

// InitFromEnv initializes the logger using WIKI_FETCH_LOG or a default path
// next to the executable. WIKI_FETCH_LOG_LEVEL picks the level (default INFO).
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		// Default to the directory where the executable is located
		if exePath, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exePath), "wiki-fetch.log")
		} else {
			path = "./wiki-fetch.log"
		}
	}
	return Init(path, os.Getenv(envLogLevel))
}

// Init points the process-wide apex logger at the file at path.
// It creates parent directories if needed and opens the file in append mode.
func Init(path, level string) error {
	mu.Lock()
	defer mu.Unlock()
	if isInitialized {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	install(f, level)
	isInitialized = true
	return nil
}

// InitWriter sends log lines to w instead of a file. Used by the CLI, which
// logs to stderr.
func InitWriter(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	install(w, level)
	isInitialized = true
}

// install sets the handler and level. An empty or unknown level means info;
// apex's SetLevelFromString would panic on the latter.
func install(w io.Writer, level string) {
	log.SetHandler(NewHandler(w))
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// Close closes the underlying log file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		isInitialized = false
		return err
	}
	return nil
}

// Handler writes one line per entry: timestamp, level, message, fields.
type Handler struct {
	mu sync.Mutex
	w  io.Writer
}

func NewHandler(w io.Writer) *Handler { return &Handler{w: w} }

// HandleLog implements the log.Handler interface
func (h *Handler) HandleLog(e *log.Entry) error {
	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format("2006-01-02 15:04:05.000000"))
	sb.WriteString(" [")
	sb.WriteString(strings.ToUpper(e.Level.String()))
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&sb, " %s=%v", name, e.Fields.Get(name))
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

// Debugf logs verbose diagnostics.
func Debugf(format string, args ...any) { ensure(); log.Debugf(format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { ensure(); log.Infof(format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { ensure(); log.Warnf(format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { ensure(); log.Errorf(format, args...) }

func ensure() {
	mu.Lock()
	ready := isInitialized
	mu.Unlock()
	if !ready {
		// Fallback: initialize with default if not already.
		_ = InitFromEnv()
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

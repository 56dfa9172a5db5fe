package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	diagLog    zerolog.Logger
	diagWriter io.WriteCloser
	submitFile *os.File
	logMu      sync.Mutex
	logReady   bool
	pid        int
	dir        string
)

// RequestMetrics is the timing breakdown of one remote store call.
type RequestMetrics struct {
	Op         string
	Status     int
	DNSMs      float64
	ConnMs     float64
	TLSMs      float64
	ServerMs   float64
	TotalMs    float64
	ConnReused bool
	SizeKB     float64
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	submitFile, err = os.OpenFile(filepath.Join(dir, "submissions_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	diagWriter = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "diagnostics_log.txt"),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagWriter,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagWriter != nil {
		diagWriter.Close()
		diagWriter = nil
	}
	if submitFile != nil {
		submitFile.Close()
		submitFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(recorder, apiBase string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("recorder", recorder).
		Str("api", apiBase).
		Msg("session_start")
}

func SessionEnd(submitted int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("submitted", submitted).
		Msg("session_end")
}

func CaptureStarted(device string) {
	if !logReady {
		return
	}
	diagLog.Info().Str("device", device).Msg("capture_start")
}

func CaptureFinalized(mediaType string, chunks, size int, elapsed int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("media_type", mediaType).
		Int("chunks", chunks).
		Float64("size_kb", float64(size)/1024).
		Int("elapsed_s", elapsed).
		Msg("capture_finalized")
}

func SubmitResult(ok bool, err error) {
	if !logReady {
		return
	}
	if ok {
		diagLog.Info().Msg("submit_ok")
		return
	}
	diagLog.Error().Err(err).Msg("submit_failed")
}

func FetchFailed(err error) {
	if !logReady {
		return
	}
	diagLog.Warn().Err(err).Msg("entries_fetch_failed")
}

func Request(m RequestMetrics) {
	if !logReady {
		return
	}
	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}
	diagLog.Info().
		Str("op", m.Op).
		Int("status", m.Status).
		Str("conn", connStatus).
		Float64("dns_ms", m.DNSMs).
		Float64("conn_ms", m.ConnMs).
		Float64("tls_ms", m.TLSMs).
		Float64("server_ms", m.ServerMs).
		Float64("total_ms", m.TotalMs).
		Float64("size_kb", m.SizeKB).
		Msg("request")
}

// HTTPAccess records one request served by the reference store.
func HTTPAccess(method, path string, status int, latency time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Float64("latency_ms", float64(latency.Microseconds())/1000).
		Msg("http")
}

func SubmissionText(name, address, locator string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if submitFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, name, address, locator)
	submitFile.WriteString(line)
}

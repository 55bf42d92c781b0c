// Package logging configures the zerolog logger used by qapages.
//
// Output goes to the console (pretty on a TTY, JSON otherwise) and to a
// rotating file under the data directory. Sensitive values are redacted
// before they reach either writer.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the rotating log file name inside <data_dir>/logs.
const FileName = "qapages.log"

var (
	fileWriter   io.WriteCloser //nolint:gochecknoglobals // closed on shutdown
	baseWriter   io.Writer      //nolint:gochecknoglobals // shared with run logs
	fileWriterMu sync.Mutex     //nolint:gochecknoglobals
)

// Options controls logger construction.
type Options struct {
	Verbose bool
	Quiet   bool
	// DataDir is where logs/qapages.log is written. Empty disables the file.
	DataDir string
	// Console overrides the console writer (tests).
	Console io.Writer
}

// Level picks the log level from the verbosity flags.
func Level(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init builds the process logger and installs it as the zerolog global.
// A log file that cannot be opened is not fatal; logging continues on the console.
func Init(opts Options) zerolog.Logger {
	console := opts.Console
	if console == nil {
		console = consoleWriter()
	}

	writer := io.Writer(NewRedactingWriter(console))
	if opts.DataDir != "" {
		if fw, err := openLogFile(opts.DataDir); err == nil {
			setFileWriter(fw)
			writer = zerolog.MultiLevelWriter(writer, NewRedactingWriter(fw))
		}
	}

	fileWriterMu.Lock()
	baseWriter = writer
	fileWriterMu.Unlock()

	logger := zerolog.New(writer).Level(Level(opts.Verbose, opts.Quiet)).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// Close flushes and closes the rotating log file if one was opened.
func Close() {
	fileWriterMu.Lock()
	defer fileWriterMu.Unlock()
	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}
}

func setFileWriter(w io.WriteCloser) {
	fileWriterMu.Lock()
	defer fileWriterMu.Unlock()
	if fileWriter != nil {
		_ = fileWriter.Close()
	}
	fileWriter = w
}

func openLogFile(dataDir string) (io.WriteCloser, error) {
	dir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}, nil
}

func consoleWriter() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
	}
	return os.Stderr
}

// Writer returns the writer installed by Init, or stderr before Init runs.
func Writer() io.Writer {
	fileWriterMu.Lock()
	defer fileWriterMu.Unlock()
	if baseWriter == nil {
		return os.Stderr
	}
	return baseWriter
}

// RunLog tees logger output into a run folder's log file in addition to base.
// The returned closer must be closed when the run ends.
func RunLog(base io.Writer, logger zerolog.Logger, path string) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return logger, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return logger, nil, err
	}
	runWriter := zerolog.ConsoleWriter{Out: NewRedactingWriter(f), NoColor: true, TimeFormat: time.DateTime}
	return logger.Output(zerolog.MultiLevelWriter(base, runWriter)), f, nil
}

// Package logging provides the default logger of the disruptor.
//
// The default logger is a zap sugared logger writing to stdout. Two
// environment variables change it at start-up:
//
//	DISRUPTOR_LOGGING_LEVEL  zap level as an integer, -1 (debug) to 5 (fatal)
//	DISRUPTOR_LOGGING_FILE   path of a rotated log file used instead of stdout
//
// Anything implementing Logger can replace it through
// SetDefaultLoggerAndFlusher or per disruptor through disruptor.WithLogger.
package logging

import (
	"errors"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	envLevel = "DISRUPTOR_LOGGING_LEVEL"
	envFile  = "DISRUPTOR_LOGGING_FILE"
	prefix   = "[disruptor]"
)

// Flusher flushes buffered log entries. Call it before the process exits.
type Flusher = func() error

// Level is the alias of zapcore.Level.
type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

var (
	mu             sync.RWMutex
	defaultLogger  Logger
	defaultLevel   Level
	defaultFlusher Flusher
)

func init() {
	if lvl := os.Getenv(envLevel); lvl != "" {
		l, err := strconv.ParseInt(lvl, 10, 8)
		if err != nil {
			panic("invalid " + envLevel + ", " + err.Error())
		}
		defaultLevel = Level(l)
	}

	if fileName := os.Getenv(envFile); fileName != "" {
		var err error
		defaultLogger, defaultFlusher, err = CreateLoggerAsLocalFile(fileName, defaultLevel)
		if err != nil {
			panic("invalid " + envFile + ", " + err.Error())
		}
		return
	}
	zapLogger := zap.New(zapcore.NewCore(newEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(os.Stdout), defaultLevel),
		zap.Development(),
		zap.AddCaller(),
		zap.AddStacktrace(ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defaultLogger = zapLogger.Sugar()
	defaultFlusher = zapLogger.Sync
}

// prefixEncoder writes prefix in front of every entry.
type prefixEncoder struct {
	zapcore.Encoder
	pool buffer.Pool
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return &prefixEncoder{
		Encoder: zapcore.NewConsoleEncoder(cfg),
		pool:    buffer.NewPool(),
	}
}

func (e *prefixEncoder) Clone() zapcore.Encoder {
	return &prefixEncoder{Encoder: e.Encoder.Clone(), pool: e.pool}
}

func (e *prefixEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}
	defer line.Free()

	buf := e.pool.Get()
	buf.AppendString(prefix)
	buf.AppendByte(' ')
	if _, err = buf.Write(line.Bytes()); err != nil {
		buf.Free()
		return nil, err
	}
	return buf, nil
}

// GetDefaultLogger returns the default logger.
func GetDefaultLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// GetDefaultFlusher returns the flusher of the default logger.
func GetDefaultFlusher() Flusher {
	mu.RLock()
	defer mu.RUnlock()
	return defaultFlusher
}

var setupOnce sync.Once

// SetDefaultLoggerAndFlusher replaces the default logger and its flusher.
// Only the first call has an effect.
func SetDefaultLoggerAndFlusher(logger Logger, flusher Flusher) {
	setupOnce.Do(func() {
		mu.Lock()
		defaultLogger, defaultFlusher = logger, flusher
		mu.Unlock()
	})
}

// LogLevel returns the level of the default logger.
func LogLevel() string {
	return defaultLevel.String()
}

// CreateLoggerAsLocalFile returns a logger writing to a rotated file at localFilePath.
func CreateLoggerAsLocalFile(localFilePath string, logLevel Level) (logger Logger, flush Flusher, err error) {
	if localFilePath == "" {
		return nil, nil, errors.New("invalid local logger path")
	}

	// lumberjack.Logger is already safe for concurrent use.
	ws := zapcore.AddSync(&lumberjack.Logger{
		Filename:   localFilePath,
		MaxSize:    100, // megabytes
		MaxBackups: 2,
		MaxAge:     15, // days
	})
	enabler := zap.LevelEnablerFunc(func(level Level) bool {
		return level >= logLevel
	})
	zapLogger := zap.New(zapcore.NewCore(newEncoder(zap.NewProductionEncoderConfig()), ws, enabler),
		zap.AddCaller(), zap.AddStacktrace(ErrorLevel))
	return zapLogger.Sugar(), zapLogger.Sync, nil
}

// Cleanup flushes the default logger.
func Cleanup() {
	if flush := GetDefaultFlusher(); flush != nil {
		_ = flush()
	}
}

// Error logs err if it is not nil.
func Error(err error) {
	if err != nil {
		GetDefaultLogger().Errorf("error occurs during runtime, %v", err)
	}
}

// Debugf logs messages at DEBUG level.
func Debugf(format string, args ...any) {
	GetDefaultLogger().Debugf(format, args...)
}

// Infof logs messages at INFO level.
func Infof(format string, args ...any) {
	GetDefaultLogger().Infof(format, args...)
}

// Warnf logs messages at WARN level.
func Warnf(format string, args ...any) {
	GetDefaultLogger().Warnf(format, args...)
}

// Errorf logs messages at ERROR level.
func Errorf(format string, args ...any) {
	GetDefaultLogger().Errorf(format, args...)
}

// Logger is used for logging formatted messages.
// *zap.SugaredLogger implements it.
type Logger interface {
	// Debugf logs messages at DEBUG level.
	Debugf(format string, args ...any)
	// Infof logs messages at INFO level.
	Infof(format string, args ...any)
	// Warnf logs messages at WARN level.
	Warnf(format string, args ...any)
	// Errorf logs messages at ERROR level.
	Errorf(format string, args ...any)
	// Fatalf logs messages at FATAL level.
	Fatalf(format string, args ...any)
}

// Printf logs at INFO level through logger.
// It adapts a Logger to APIs that expect a Printf method.
type Printf struct {
	Logger Logger
}

// Printf implements the Printf logger interface.
func (p Printf) Printf(format string, args ...any) {
	p.Logger.Infof(format, args...)
}

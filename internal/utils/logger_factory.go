package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	logFormatAutoStringConstant          = "auto"
	consoleTimeLayoutConstant            = "2006-01-02 15:04:05"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	defaultLogFileMaxSizeConstant        = 10
	defaultLogFileMaxBackupsConstant     = 3
	defaultLogFileMaxAgeConstant         = 28
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
	LogFormatAuto       LogFormat = LogFormat(logFormatAutoStringConstant)
)

// TerminalDetector reports whether a file descriptor is attached to a terminal.
type TerminalDetector func(fileDescriptor uintptr) bool

// LoggerOutputs bundles the loggers produced for a single CLI invocation.
type LoggerOutputs struct {
	// DiagnosticLogger receives every structured log entry.
	DiagnosticLogger *zap.Logger
	// ConsoleLogger prints bare sentences for command progress and is nil unless output is human-readable.
	ConsoleLogger *zap.Logger
	// Format is the effective format after resolving LogFormatAuto.
	Format LogFormat
}

// LogFileOptions describes an optional rotating log file that mirrors the diagnostic logger.
type LogFileOptions struct {
	Path             string
	MaxSizeMegabytes int
	MaxBackups       int
	MaxAgeDays       int
}

// Enabled reports whether a log file path is configured.
func (options LogFileOptions) Enabled() bool {
	return len(strings.TrimSpace(options.Path)) > 0
}

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct {
	outputWriter     io.Writer
	terminalDetector TerminalDetector
	logFile          LogFileOptions
}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// NewLoggerFactory constructs a logger factory writing to standard error.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{terminalDetector: detectTerminal}
}

// WithOutput returns a factory writing to the provided writer instead of standard error.
func (factory *LoggerFactory) WithOutput(writer io.Writer) *LoggerFactory {
	duplicated := *factory
	duplicated.outputWriter = writer
	return &duplicated
}

// WithTerminalDetector returns a factory using the provided detector to resolve LogFormatAuto.
func (factory *LoggerFactory) WithTerminalDetector(detector TerminalDetector) *LoggerFactory {
	duplicated := *factory
	duplicated.terminalDetector = detector
	return &duplicated
}

// WithLogFile returns a factory that also writes structured entries to a rotating file.
func (factory *LoggerFactory) WithLogFile(options LogFileOptions) *LoggerFactory {
	duplicated := *factory
	duplicated.logFile = options
	return &duplicated
}

// ResolveFormat validates the requested format and resolves LogFormatAuto against the output writer.
func (factory *LoggerFactory) ResolveFormat(requestedLogFormat LogFormat) (LogFormat, error) {
	normalizedFormat := LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat))))
	switch normalizedFormat {
	case LogFormatStructured, LogFormatConsole:
		return normalizedFormat, nil
	case LogFormatAuto:
		outputFile, isFile := factory.resolveOutputWriter().(*os.File)
		if isFile && factory.terminalDetector != nil && factory.terminalDetector(outputFile.Fd()) {
			return LogFormatConsole, nil
		}
		return LogFormatStructured, nil
	default:
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	outputs, creationError := factory.CreateLoggerOutputs(requestedLogLevel, requestedLogFormat)
	if creationError != nil {
		return nil, creationError
	}
	return outputs.DiagnosticLogger, nil
}

// CreateLoggerOutputs produces the diagnostic logger and, for human-readable output, a console logger.
func (factory *LoggerFactory) CreateLoggerOutputs(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (LoggerOutputs, error) {
	zapLogLevel, levelExists := logLevelMapping[LogLevel(strings.ToLower(strings.TrimSpace(string(requestedLogLevel))))]
	if !levelExists {
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	resolvedFormat, formatError := factory.ResolveFormat(requestedLogFormat)
	if formatError != nil {
		return LoggerOutputs{}, formatError
	}

	writeSyncer := zapcore.AddSync(NewFlushingWriter(factory.resolveOutputWriter()))
	encoderConfiguration := zap.NewProductionEncoderConfig()

	var encoder zapcore.Encoder
	if resolvedFormat == LogFormatConsole {
		encoderConfiguration.EncodeTime = zapcore.TimeEncoderOfLayout(consoleTimeLayoutConstant)
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfiguration)
	} else {
		encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfiguration)
	}

	diagnosticCore := zapcore.NewCore(encoder, writeSyncer, zapLogLevel)
	if factory.logFile.Enabled() {
		fileEncoderConfiguration := zap.NewProductionEncoderConfig()
		fileEncoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		diagnosticCore = zapcore.NewTee(
			diagnosticCore,
			zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfiguration), zapcore.AddSync(factory.newRotatingFile()), zapLogLevel),
		)
	}

	outputs := LoggerOutputs{
		DiagnosticLogger: zap.New(diagnosticCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
		Format:           resolvedFormat,
	}

	if resolvedFormat == LogFormatConsole {
		consoleEncoderConfiguration := zapcore.EncoderConfig{
			MessageKey: encoderConfiguration.MessageKey,
			LineEnding: zapcore.DefaultLineEnding,
		}
		outputs.ConsoleLogger = zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfiguration), writeSyncer, zapcore.InfoLevel))
	}

	return outputs, nil
}

func (factory *LoggerFactory) resolveOutputWriter() io.Writer {
	if factory.outputWriter != nil {
		return factory.outputWriter
	}
	return os.Stderr
}

func (factory *LoggerFactory) newRotatingFile() *lumberjack.Logger {
	rotatingFile := &lumberjack.Logger{
		Filename:   strings.TrimSpace(factory.logFile.Path),
		MaxSize:    factory.logFile.MaxSizeMegabytes,
		MaxBackups: factory.logFile.MaxBackups,
		MaxAge:     factory.logFile.MaxAgeDays,
	}
	if rotatingFile.MaxSize <= 0 {
		rotatingFile.MaxSize = defaultLogFileMaxSizeConstant
	}
	if rotatingFile.MaxBackups < 0 {
		rotatingFile.MaxBackups = defaultLogFileMaxBackupsConstant
	}
	if rotatingFile.MaxAge < 0 {
		rotatingFile.MaxAge = defaultLogFileMaxAgeConstant
	}
	return rotatingFile
}

func detectTerminal(fileDescriptor uintptr) bool {
	return isatty.IsTerminal(fileDescriptor) || isatty.IsCygwinTerminal(fileDescriptor)
}

package utils_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitpull/internal/utils"
)

const (
	testLoggerFactoryCaseSupportedFormatConstant   = "supported_log_level_%s_format_%s"
	testLoggerFactoryCaseUnsupportedLevelConstant  = "unsupported_log_level"
	testLoggerFactoryCaseUnsupportedFormatConstant = "unsupported_log_format"
	testLoggerFactorySubtestTemplateConstant       = "%d_%s"
	testInvalidLogLevelConstant                    = "invalid"
	testInvalidLogFormatConstant                   = "invalid"
	testLogMessageConstant                         = "logger_factory_test_message"
)

func TestLoggerFactoryCreateLogger(testInstance *testing.T) {
	testCases := []struct {
		name                string
		requestedLogLevel   utils.LogLevel
		requestedLogFormat  utils.LogFormat
		expectError         bool
		expectStructuredLog bool
	}{
		{
			name:                fmt.Sprintf(testLoggerFactoryCaseSupportedFormatConstant, utils.LogLevelDebug, utils.LogFormatStructured),
			requestedLogLevel:   utils.LogLevelDebug,
			requestedLogFormat:  utils.LogFormatStructured,
			expectStructuredLog: true,
		},
		{
			name:                fmt.Sprintf(testLoggerFactoryCaseSupportedFormatConstant, utils.LogLevelInfo, utils.LogFormatStructured),
			requestedLogLevel:   utils.LogLevelInfo,
			requestedLogFormat:  utils.LogFormatStructured,
			expectStructuredLog: true,
		},
		{
			name:               fmt.Sprintf(testLoggerFactoryCaseSupportedFormatConstant, utils.LogLevelInfo, utils.LogFormatConsole),
			requestedLogLevel:  utils.LogLevelInfo,
			requestedLogFormat: utils.LogFormatConsole,
		},
		{
			name:               testLoggerFactoryCaseUnsupportedLevelConstant,
			requestedLogLevel:  utils.LogLevel(testInvalidLogLevelConstant),
			requestedLogFormat: utils.LogFormatStructured,
			expectError:        true,
		},
		{
			name:               testLoggerFactoryCaseUnsupportedFormatConstant,
			requestedLogLevel:  utils.LogLevelInfo,
			requestedLogFormat: utils.LogFormat(testInvalidLogFormatConstant),
			expectError:        true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testLoggerFactorySubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			loggerFactory := utils.NewLoggerFactory()

			pipeReader, pipeWriter, pipeError := os.Pipe()
			require.NoError(testInstance, pipeError)

			originalStderr := os.Stderr
			os.Stderr = pipeWriter

			logger, creationError := loggerFactory.CreateLogger(testCase.requestedLogLevel, testCase.requestedLogFormat)

			os.Stderr = originalStderr

			if testCase.expectError {
				require.Error(testInstance, creationError)
				require.Nil(testInstance, logger)

				require.NoError(testInstance, pipeWriter.Close())
				require.NoError(testInstance, pipeReader.Close())
				return
			}

			require.NoError(testInstance, creationError)
			require.NotNil(testInstance, logger)

			logger.Info(testLogMessageConstant)
			syncError := logger.Sync()
			if syncError != nil {
				require.True(testInstance, errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL))
			}

			require.NoError(testInstance, pipeWriter.Close())

			capturedOutput, readError := io.ReadAll(pipeReader)
			require.NoError(testInstance, readError)
			require.NoError(testInstance, pipeReader.Close())

			trimmedOutput := bytes.TrimSpace(capturedOutput)
			require.NotEmpty(testInstance, trimmedOutput)
			require.Contains(testInstance, string(trimmedOutput), testLogMessageConstant)
			require.Equal(testInstance, testCase.expectStructuredLog, json.Valid(trimmedOutput))
		})
	}
}

func TestLoggerFactoryResolvesAutoFormat(testInstance *testing.T) {
	testCases := []struct {
		name           string
		output         io.Writer
		terminal       bool
		expectedFormat utils.LogFormat
	}{
		{
			name:           "terminal_file",
			output:         os.Stderr,
			terminal:       true,
			expectedFormat: utils.LogFormatConsole,
		},
		{
			name:           "redirected_file",
			output:         os.Stderr,
			terminal:       false,
			expectedFormat: utils.LogFormatStructured,
		},
		{
			name:           "non_file_writer",
			output:         &bytes.Buffer{},
			terminal:       true,
			expectedFormat: utils.LogFormatStructured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			detectorResult := testCase.terminal
			loggerFactory := utils.NewLoggerFactory().
				WithOutput(testCase.output).
				WithTerminalDetector(func(uintptr) bool { return detectorResult })

			resolvedFormat, resolveError := loggerFactory.ResolveFormat(utils.LogFormatAuto)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedFormat, resolvedFormat)
		})
	}
}

func TestLoggerFactoryConsoleOutputsIncludeConsoleLogger(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	loggerFactory := utils.NewLoggerFactory().WithOutput(outputBuffer)

	consoleOutputs, consoleError := loggerFactory.CreateLoggerOutputs(utils.LogLevelInfo, utils.LogFormatConsole)
	require.NoError(testInstance, consoleError)
	require.NotNil(testInstance, consoleOutputs.ConsoleLogger)
	require.Equal(testInstance, utils.LogFormatConsole, consoleOutputs.Format)

	consoleOutputs.ConsoleLogger.Info("Fetching main from origin in /config")
	require.Equal(testInstance, "Fetching main from origin in /config\n", outputBuffer.String())

	structuredOutputs, structuredError := loggerFactory.CreateLoggerOutputs(utils.LogLevelInfo, utils.LogFormatStructured)
	require.NoError(testInstance, structuredError)
	require.Nil(testInstance, structuredOutputs.ConsoleLogger)
}

func TestLoggerFactoryMirrorsDiagnosticEntriesToLogFile(testInstance *testing.T) {
	logFilePath := filepath.Join(testInstance.TempDir(), "gitpull.log")
	outputBuffer := &bytes.Buffer{}
	loggerFactory := utils.NewLoggerFactory().
		WithOutput(outputBuffer).
		WithLogFile(utils.LogFileOptions{Path: logFilePath, MaxSizeMegabytes: 1, MaxBackups: 1, MaxAgeDays: 1})

	outputs, creationError := loggerFactory.CreateLoggerOutputs(utils.LogLevelInfo, utils.LogFormatConsole)
	require.NoError(testInstance, creationError)

	outputs.DiagnosticLogger.Info(testLogMessageConstant)
	outputs.DiagnosticLogger.Debug("suppressed below info")

	fileContent, readError := os.ReadFile(logFilePath)
	require.NoError(testInstance, readError)

	var entry map[string]any
	require.NoError(testInstance, json.Unmarshal(bytes.TrimSpace(fileContent), &entry))
	require.Equal(testInstance, testLogMessageConstant, entry["msg"])
	require.Contains(testInstance, outputBuffer.String(), testLogMessageConstant)
	require.False(testInstance, utils.LogFileOptions{Path: "  "}.Enabled())
}

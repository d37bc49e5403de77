package restart

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitpull/internal/gitrepo"
)

const (
	commandUseConstant                        = "restart-check"
	commandShortDescriptionConstant           = "Show whether changes between two commits would restart Home Assistant"
	commandLongDescriptionConstant            = "restart-check lists the files changed between two commits of the configured working tree and evaluates them against the restart ignore list."
	unexpectedArgumentsMessageConstant        = "restart-check does not accept positional arguments"
	workTreeRequiredMessageConstant           = "repository path must be configured"
	changedFilesErrorTemplateConstant         = "unable to list changed files: %w"
	flagFromNameConstant                      = "from"
	flagFromDescriptionConstant               = "Commit or revision to compare from"
	flagFromDefaultConstant                   = "HEAD~1"
	flagToNameConstant                        = "to"
	flagToDescriptionConstant                 = "Commit or revision to compare to"
	flagToDefaultConstant                     = "HEAD"
	reportHeaderTemplateConstant              = "Changes %s..%s in %s\n"
	reportRestartRequiredLineTemplateConstant = "  restart  %s\n"
	reportIgnoredLineTemplateConstant         = "  ignored  %s\n"
	reportDecisionTemplateConstant            = "Restart required: %t (%s)\n"
	evaluationLogMessageConstant              = "restart check evaluated"
	logFieldFromConstant                      = "from"
	logFieldToConstant                        = "to"
	logFieldRestartConstant                   = "restart"
	logFieldReasonConstant                    = "reason"
	logFieldRestartRequiredCountConstant      = "restart_required_count"
	logFieldIgnoredCountConstant              = "ignored_count"
)

var (
	errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)
	errWorkTreeRequired    = errors.New(workTreeRequiredMessageConstant)
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandConfiguration is the slice of configuration restart-check reads.
type CommandConfiguration struct {
	WorkTree string
	Restart  Configuration
}

// ConfigurationProvider supplies the current command configuration.
type ConfigurationProvider func() CommandConfiguration

// ChangeReader lists files changed between two revisions.
type ChangeReader interface {
	ChangedFiles(workTree string, fromCommit string, toCommit string) ([]string, error)
}

// CommandBuilder assembles the restart-check command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ChangeReader          ChangeReader
	FileSystem            afero.Fs
}

// Build constructs the restart-check command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(flagFromNameConstant, flagFromDefaultConstant, flagFromDescriptionConstant)
	command.Flags().String(flagToNameConstant, flagToDefaultConstant, flagToDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.resolveConfiguration()
	workTree := strings.TrimSpace(configuration.WorkTree)
	if len(workTree) == 0 {
		return errWorkTreeRequired
	}

	fromRevision, _ := command.Flags().GetString(flagFromNameConstant)
	toRevision, _ := command.Flags().GetString(flagToNameConstant)

	changedFiles, changedFilesError := builder.resolveChangeReader().ChangedFiles(workTree, fromRevision, toRevision)
	if changedFilesError != nil {
		return fmt.Errorf(changedFilesErrorTemplateConstant, changedFilesError)
	}

	sanitizedConfiguration := configuration.Restart.Sanitize()
	decision := Evaluate(Input{
		PreviousCommit: fromRevision,
		NewCommit:      toRevision,
		ChangedFiles:   changedFiles,
		IgnoreList:     NewIgnoreList(builder.resolveFileSystem(), workTree, sanitizedConfiguration.Ignore),
		AutoRestart:    sanitizedConfiguration.Auto,
	})

	builder.resolveLogger().Info(
		evaluationLogMessageConstant,
		zap.String(logFieldFromConstant, fromRevision),
		zap.String(logFieldToConstant, toRevision),
		zap.Bool(logFieldRestartConstant, decision.Restart),
		zap.String(logFieldReasonConstant, string(decision.Reason)),
		zap.Int(logFieldRestartRequiredCountConstant, len(decision.RestartRequiredFiles)),
		zap.Int(logFieldIgnoredCountConstant, len(decision.IgnoredFiles)),
	)

	return writeReport(command.OutOrStdout(), workTree, fromRevision, toRevision, decision)
}

func writeReport(writer io.Writer, workTree string, fromRevision string, toRevision string, decision Decision) error {
	if _, writeError := fmt.Fprintf(writer, reportHeaderTemplateConstant, fromRevision, toRevision, workTree); writeError != nil {
		return writeError
	}
	for _, changedFile := range decision.RestartRequiredFiles {
		if _, writeError := fmt.Fprintf(writer, reportRestartRequiredLineTemplateConstant, changedFile); writeError != nil {
			return writeError
		}
	}
	for _, changedFile := range decision.IgnoredFiles {
		if _, writeError := fmt.Fprintf(writer, reportIgnoredLineTemplateConstant, changedFile); writeError != nil {
			return writeError
		}
	}
	_, writeError := fmt.Fprintf(writer, reportDecisionTemplateConstant, decision.Restart, decision.Reason)
	return writeError
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return CommandConfiguration{}
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveChangeReader() ChangeReader {
	if builder.ChangeReader != nil {
		return builder.ChangeReader
	}
	return gitrepo.NewInspector()
}

func (builder *CommandBuilder) resolveFileSystem() afero.Fs {
	if builder.FileSystem != nil {
		return builder.FileSystem
	}
	return afero.NewOsFs()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
)

const (
	gitRemoteSubcommandNameConstant      = "remote"
	gitRemotePruneSubcommandNameConstant = "prune"
	gitFetchSubcommandNameConstant       = "fetch"
	gitCheckoutSubcommandNameConstant    = "checkout"
	gitPullSubcommandNameConstant        = "pull"
	gitResetSubcommandNameConstant       = "reset"
	gitCloneSubcommandNameConstant       = "clone"
	gitConfigSubcommandNameConstant      = "config"
	gitCredentialSubcommandNameConstant  = "credential"
	gitBranchFlagConstant                = "--branch"
	homeAssistantCoreSubcommandConstant  = "core"
	homeAssistantCheckActionConstant     = "check"
	homeAssistantRestartActionConstant   = "restart"
	sshTestFlagConstant                  = "-T"
	sshOptionFlagConstant                = "-o"
	sshPortFlagConstant                  = "-p"
)

const (
	gitRemotePruneStartTemplateConstant                  = "Pruning stale %s tracking branches in %s"
	gitRemotePruneSuccessTemplateConstant                = "Pruned stale %s tracking branches in %s"
	gitRemotePruneFailureTemplateConstant                = "Failed to prune stale %s tracking branches in %s (exit code %d%s)"
	gitRemotePruneExecutionFailureTemplateConstant       = "Unable to prune stale %s tracking branches in %s: %s"
	gitFetchStartTemplateConstant                        = "Fetching %s from %s in %s"
	gitFetchWithoutRefsStartTemplateConstant             = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant                      = "Fetched %s from %s in %s"
	gitFetchWithoutRefsSuccessTemplateConstant           = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant                      = "Failed to fetch %s from %s in %s (exit code %d%s)"
	gitFetchWithoutRefsFailureTemplateConstant           = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant             = "Unable to fetch %s from %s in %s: %s"
	gitFetchWithoutRefsExecutionFailureTemplateConstant  = "Unable to fetch from %s in %s: %s"
	gitFetchAllRemotesLabelConstant                      = "all remotes"
	gitCheckoutStartTemplateConstant                     = "Switching %s to branch %s"
	gitCheckoutSuccessTemplateConstant                   = "%s now on branch %s"
	gitCheckoutFailureTemplateConstant                   = "Failed to switch %s to branch %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant          = "Unable to switch %s to branch %s: %s"
	gitPullStartTemplateConstant                         = "Pulling %s from %s into %s"
	gitPullSuccessTemplateConstant                       = "Pulled %s from %s into %s"
	gitPullFailureTemplateConstant                       = "Failed to pull %s from %s into %s (exit code %d%s)"
	gitPullExecutionFailureTemplateConstant              = "Unable to pull %s from %s into %s: %s"
	gitResetStartTemplateConstant                        = "Resetting %s to %s"
	gitResetSuccessTemplateConstant                      = "%s reset to %s"
	gitResetFailureTemplateConstant                      = "Failed to reset %s to %s (exit code %d%s)"
	gitResetExecutionFailureTemplateConstant             = "Unable to reset %s to %s: %s"
	gitCloneStartTemplateConstant                        = "Cloning %s into %s"
	gitCloneSuccessTemplateConstant                      = "Cloned %s into %s"
	gitCloneFailureTemplateConstant                      = "Failed to clone %s into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant             = "Unable to clone %s into %s: %s"
	gitCredentialStartTemplateConstant                   = "Storing git credentials"
	gitCredentialSuccessTemplateConstant                 = "Stored git credentials"
	gitCredentialFailureTemplateConstant                 = "Failed to store git credentials (exit code %d%s)"
	gitCredentialExecutionFailureTemplateConstant        = "Unable to store git credentials: %s"
	gitConfigStartTemplateConstant                       = "Setting git option %s"
	gitConfigSuccessTemplateConstant                     = "Set git option %s"
	gitConfigFailureTemplateConstant                     = "Failed to set git option %s (exit code %d%s)"
	gitConfigExecutionFailureTemplateConstant            = "Unable to set git option %s: %s"
	sshCheckStartTemplateConstant                        = "Checking SSH access to %s"
	sshCheckSuccessTemplateConstant                      = "SSH access to %s confirmed"
	sshCheckFailureTemplateConstant                      = "SSH access to %s was refused (exit code %d%s)"
	sshCheckExecutionFailureTemplateConstant             = "Unable to check SSH access to %s: %s"
	homeAssistantCheckStartConstant                      = "Checking Home Assistant configuration"
	homeAssistantCheckSuccessConstant                    = "Home Assistant configuration is valid"
	homeAssistantCheckFailureTemplateConstant            = "Home Assistant configuration check failed (exit code %d%s)"
	homeAssistantCheckExecutionFailureTemplateConstant   = "Unable to check Home Assistant configuration: %s"
	homeAssistantRestartStartConstant                    = "Restarting Home Assistant"
	homeAssistantRestartSuccessConstant                  = "Home Assistant restart requested"
	homeAssistantRestartFailureTemplateConstant          = "Home Assistant restart failed (exit code %d%s)"
	homeAssistantRestartExecutionFailureTemplateConstant = "Unable to restart Home Assistant: %s"
)

// stageTemplates groups the four lifecycle templates of a single command shape.
type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandSSH:
		return formatter.describeSSHMessage(command, result, failure, stage)
	case CommandHomeAssistant:
		return formatter.describeHomeAssistantMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	subcommand := strings.TrimSpace(arguments[0])
	switch subcommand {
	case gitRemoteSubcommandNameConstant:
		return formatter.describeGitRemoteMessage(command, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeGitFetchMessage(command, result, failure, stage)
	case gitCheckoutSubcommandNameConstant:
		branchName := formatter.ensureValue(formatter.firstNonFlagArgument(arguments[1:]))
		return formatter.render(stage, result, failure, stageTemplates{
			start:            gitCheckoutStartTemplateConstant,
			success:          gitCheckoutSuccessTemplateConstant,
			failure:          gitCheckoutFailureTemplateConstant,
			executionFailure: gitCheckoutExecutionFailureTemplateConstant,
		}, workingDirectory, branchName)
	case gitPullSubcommandNameConstant:
		remoteName, references := formatter.extractRemoteAndReferences(arguments[1:])
		return formatter.render(stage, result, failure, stageTemplates{
			start:            gitPullStartTemplateConstant,
			success:          gitPullSuccessTemplateConstant,
			failure:          gitPullFailureTemplateConstant,
			executionFailure: gitPullExecutionFailureTemplateConstant,
		}, formatter.ensureValue(strings.Join(references, ", ")), formatter.ensureValue(remoteName), workingDirectory)
	case gitResetSubcommandNameConstant:
		target := formatter.ensureValue(formatter.lastArgument(arguments[1:]))
		return formatter.render(stage, result, failure, stageTemplates{
			start:            gitResetStartTemplateConstant,
			success:          gitResetSuccessTemplateConstant,
			failure:          gitResetFailureTemplateConstant,
			executionFailure: gitResetExecutionFailureTemplateConstant,
		}, workingDirectory, target)
	case gitCloneSubcommandNameConstant:
		source, destination := formatter.extractCloneEndpoints(arguments[1:])
		return formatter.render(stage, result, failure, stageTemplates{
			start:            gitCloneStartTemplateConstant,
			success:          gitCloneSuccessTemplateConstant,
			failure:          gitCloneFailureTemplateConstant,
			executionFailure: gitCloneExecutionFailureTemplateConstant,
		}, formatter.ensureValue(source), formatter.ensureValue(destination))
	case gitConfigSubcommandNameConstant:
		optionName := formatter.ensureValue(formatter.firstNonFlagArgument(arguments[1:]))
		return formatter.render(stage, result, failure, stageTemplates{
			start:            gitConfigStartTemplateConstant,
			success:          gitConfigSuccessTemplateConstant,
			failure:          gitConfigFailureTemplateConstant,
			executionFailure: gitConfigExecutionFailureTemplateConstant,
		}, optionName)
	case gitCredentialSubcommandNameConstant:
		return formatter.render(stage, result, failure, stageTemplates{
			start:            gitCredentialStartTemplateConstant,
			success:          gitCredentialSuccessTemplateConstant,
			failure:          gitCredentialFailureTemplateConstant,
			executionFailure: gitCredentialExecutionFailureTemplateConstant,
		})
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRemoteMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.ensureValue(formatter.lastArgument(arguments[2:]))
	switch strings.TrimSpace(arguments[1]) {
	case gitRemotePruneSubcommandNameConstant:
		return formatter.render(stage, result, failure, stageTemplates{
			start:            gitRemotePruneStartTemplateConstant,
			success:          gitRemotePruneSuccessTemplateConstant,
			failure:          gitRemotePruneFailureTemplateConstant,
			executionFailure: gitRemotePruneExecutionFailureTemplateConstant,
		}, remoteName, workingDirectory)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitFetchMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName, references := formatter.extractRemoteAndReferences(command.Details.Arguments[1:])
	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		trimmedRemote = gitFetchAllRemotesLabelConstant
	}

	if len(references) == 0 {
		return formatter.render(stage, result, failure, stageTemplates{
			start:            gitFetchWithoutRefsStartTemplateConstant,
			success:          gitFetchWithoutRefsSuccessTemplateConstant,
			failure:          gitFetchWithoutRefsFailureTemplateConstant,
			executionFailure: gitFetchWithoutRefsExecutionFailureTemplateConstant,
		}, trimmedRemote, workingDirectory)
	}

	return formatter.render(stage, result, failure, stageTemplates{
		start:            gitFetchStartTemplateConstant,
		success:          gitFetchSuccessTemplateConstant,
		failure:          gitFetchFailureTemplateConstant,
		executionFailure: gitFetchExecutionFailureTemplateConstant,
	}, strings.Join(references, ", "), trimmedRemote, workingDirectory)
}

func (formatter CommandMessageFormatter) describeSSHMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if !containsArgument(command.Details.Arguments, sshTestFlagConstant) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	destination := formatter.ensureValue(formatter.extractSSHDestination(command.Details.Arguments))
	return formatter.render(stage, result, failure, stageTemplates{
		start:            sshCheckStartTemplateConstant,
		success:          sshCheckSuccessTemplateConstant,
		failure:          sshCheckFailureTemplateConstant,
		executionFailure: sshCheckExecutionFailureTemplateConstant,
	}, destination)
}

func (formatter CommandMessageFormatter) describeHomeAssistantMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 || strings.TrimSpace(arguments[0]) != homeAssistantCoreSubcommandConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch strings.TrimSpace(arguments[1]) {
	case homeAssistantCheckActionConstant:
		return formatter.render(stage, result, failure, stageTemplates{
			start:            homeAssistantCheckStartConstant,
			success:          homeAssistantCheckSuccessConstant,
			failure:          homeAssistantCheckFailureTemplateConstant,
			executionFailure: homeAssistantCheckExecutionFailureTemplateConstant,
		})
	case homeAssistantRestartActionConstant:
		return formatter.render(stage, result, failure, stageTemplates{
			start:            homeAssistantRestartStartConstant,
			success:          homeAssistantRestartSuccessConstant,
			failure:          homeAssistantRestartFailureTemplateConstant,
			executionFailure: homeAssistantRestartExecutionFailureTemplateConstant,
		})
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

// render applies the stage template; failure templates receive exit code and stderr, execution failures the cause.
func (formatter CommandMessageFormatter) render(stage messageStage, result ExecutionResult, failure error, templates stageTemplates, values ...any) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		failureValues := append(append([]any{}, values...), result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		return fmt.Sprintf(templates.failure, failureValues...)
	case messageStageExecutionFailure:
		executionValues := append(append([]any{}, values...), formatter.describeFailure(failure))
		return fmt.Sprintf(templates.executionFailure, executionValues...)
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = commandLabel + commandArgumentsJoinSeparatorConstant + strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant)
	}
	workingDirectorySuffix := emptyStringConstant
	if trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory); len(trimmedWorkingDirectory) > 0 {
		workingDirectorySuffix = fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) lastArgument(arguments []string) string {
	for index := len(arguments) - 1; index >= 0; index-- {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) firstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) extractRemoteAndReferences(arguments []string) (string, []string) {
	remoteName := emptyStringConstant
	references := []string{}
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		if len(remoteName) == 0 {
			remoteName = trimmed
			continue
		}
		references = append(references, trimmed)
	}
	return remoteName, references
}

// extractCloneEndpoints skips flags and the value of --branch to find the source and destination.
func (formatter CommandMessageFormatter) extractCloneEndpoints(arguments []string) (string, string) {
	positional := []string{}
	for index := 0; index < len(arguments); index++ {
		trimmed := strings.TrimSpace(arguments[index])
		if trimmed == gitBranchFlagConstant {
			index++
			continue
		}
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		positional = append(positional, trimmed)
	}
	switch len(positional) {
	case 0:
		return emptyStringConstant, emptyStringConstant
	case 1:
		return positional[0], defaultWorkingDirectoryLabelConstant
	default:
		return positional[0], positional[1]
	}
}

// extractSSHDestination skips option flags that carry a value (-o, -p).
func (formatter CommandMessageFormatter) extractSSHDestination(arguments []string) string {
	for index := 0; index < len(arguments); index++ {
		trimmed := strings.TrimSpace(arguments[index])
		if trimmed == sshOptionFlagConstant || trimmed == sshPortFlagConstant {
			index++
			continue
		}
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

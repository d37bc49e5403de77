package restart

// Reason explains a restart decision.
type Reason string

// Decision reasons.
const (
	ReasonCommitsUnchanged    Reason = "commits unchanged"
	ReasonAutoRestartDisabled Reason = "automatic restart disabled"
	ReasonNoIgnoreList        Reason = "commits changed and no ignore list is configured"
	ReasonTrackedFilesChanged Reason = "restart-required files changed"
	ReasonOnlyIgnoredChanged  Reason = "only ignored files changed"
)

// Input collects everything the policy looks at.
type Input struct {
	PreviousCommit string
	NewCommit      string
	ChangedFiles   []string
	IgnoreList     IgnoreList
	AutoRestart    bool
}

// Decision is the outcome of Evaluate. File lists cover every changed file and are never short-circuited.
type Decision struct {
	Restart              bool
	Reason               Reason
	RestartRequiredFiles []string
	IgnoredFiles         []string
}

// ShouldRestart reports whether Home Assistant must restart after a sync.
func ShouldRestart(previousCommit string, newCommit string, changedFiles []string, ignoreList IgnoreList, autoRestart bool) bool {
	return Evaluate(Input{
		PreviousCommit: previousCommit,
		NewCommit:      newCommit,
		ChangedFiles:   changedFiles,
		IgnoreList:     ignoreList,
		AutoRestart:    autoRestart,
	}).Restart
}

// Evaluate applies the restart policy: no restart when commits are equal or auto restart is off,
// a restart for any change when the ignore list is empty, and otherwise a restart when at least
// one changed file is not ignored.
func Evaluate(input Input) Decision {
	decision := Decision{RestartRequiredFiles: []string{}, IgnoredFiles: []string{}}
	for _, changedFile := range input.ChangedFiles {
		if input.IgnoreList.Matches(changedFile) {
			decision.IgnoredFiles = append(decision.IgnoredFiles, changedFile)
			continue
		}
		decision.RestartRequiredFiles = append(decision.RestartRequiredFiles, changedFile)
	}

	switch {
	case input.PreviousCommit == input.NewCommit:
		decision.Reason = ReasonCommitsUnchanged
	case !input.AutoRestart:
		decision.Reason = ReasonAutoRestartDisabled
	case input.IgnoreList.Empty():
		decision.Restart = true
		decision.Reason = ReasonNoIgnoreList
	case len(decision.RestartRequiredFiles) > 0:
		decision.Restart = true
		decision.Reason = ReasonTrackedFilesChanged
	default:
		decision.Reason = ReasonOnlyIgnoredChanged
	}
	return decision
}

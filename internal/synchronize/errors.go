package synchronize

import "errors"

const (
	remoteMismatchMessageConstant     = "configured remote does not match repository remote"
	fetchFailedMessageConstant        = "fetch failed"
	checkoutFailedMessageConstant     = "checkout failed"
	pullFailedMessageConstant         = "pull failed"
	resetFailedMessageConstant        = "reset failed"
	recloneFailedMessageConstant      = "reclone failed"
	stateUnavailableMessageConstant   = "repository state unavailable"
	workTreeRequiredMessageConstant   = "working tree path must be provided"
	remoteURLRequiredMessageConstant  = "remote url must be provided"
	gitExecutorMissingMessageConstant = "git executor not configured"
	inspectorMissingMessageConstant   = "repository inspector not configured"
	reclonerMissingMessageConstant    = "recloner not configured"
	unsupportedModeMessageConstant    = "unsupported synchronization mode"
)

// Failure kinds. Every error returned by Synchronize wraps exactly one of these.
var (
	ErrRemoteMismatch   = errors.New(remoteMismatchMessageConstant)
	ErrFetchFailed      = errors.New(fetchFailedMessageConstant)
	ErrCheckoutFailed   = errors.New(checkoutFailedMessageConstant)
	ErrPullFailed       = errors.New(pullFailedMessageConstant)
	ErrResetFailed      = errors.New(resetFailedMessageConstant)
	ErrRecloneFailed    = errors.New(recloneFailedMessageConstant)
	ErrStateUnavailable = errors.New(stateUnavailableMessageConstant)
)

// Option and dependency validation errors.
var (
	ErrWorkTreeRequired         = errors.New(workTreeRequiredMessageConstant)
	ErrRemoteURLRequired        = errors.New(remoteURLRequiredMessageConstant)
	ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)
	ErrInspectorNotConfigured   = errors.New(inspectorMissingMessageConstant)
	ErrReclonerNotConfigured    = errors.New(reclonerMissingMessageConstant)
	ErrUnsupportedMode          = errors.New(unsupportedModeMessageConstant)
)

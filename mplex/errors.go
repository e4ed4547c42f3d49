package mplex

import "errors"

// Error kinds returned by Activate, Poll and New. The underlying errno is
// wrapped alongside, so errors.Is works for both.
var (
	ErrSocket        = errors.New("mplex: failed to open socket")
	ErrBind          = errors.New("mplex: failed to bind socket")
	ErrListen        = errors.New("mplex: failed to listen on socket")
	ErrPoller        = errors.New("mplex: readiness poller failure")
	ErrSettings      = errors.New("mplex: invalid server settings")
	ErrNotActive     = errors.New("mplex: server is not active")
	ErrAlreadyActive = errors.New("mplex: server is already active")
)

package uninstall

import "fmt"

// AlreadyRemovedError is the benign outcome: the removal target no longer
// exists, typically because a previous run or the user already uninstalled
// it. Callers log it and move on.
type AlreadyRemovedError struct {
	Target string
}

func (e *AlreadyRemovedError) Error() string {
	return fmt.Sprintf("%s is already uninstalled", e.Target)
}

// ParseError reports an uninstall invocation string that could not be split
// into an executable and arguments.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse uninstall string %q: %s", e.Input, e.Reason)
}

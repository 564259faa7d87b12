package execshell

// CommandEventObserver receives lifecycle notifications for the git commands
// a scan issues. Observers see every acquisition command, making them the
// hook for progress reporting and command metrics.
type CommandEventObserver interface {
	// CommandStarted fires just before the command process launches.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the command exits, with its captured result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when the process could not run at all.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// noopCommandEventObserver discards all command events. Executors fall back
// to it when no observer is configured.
type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}

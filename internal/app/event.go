package app

// Event is the closed set of notifications fanned out to subscribers.
// Events are transient and in-memory; a subscriber that misses events
// resynchronizes by re-querying the current state.
type Event interface {
	isEvent()
}

// FilesAdded reports that the user selected files for archiving.
type FilesAdded struct {
	Files []string
}

// ArchiveOpened reports that an existing archive was loaded.
type ArchiveOpened struct {
	Path string
}

// OperationStarted reports that an operation acquired a permit and
// began executing.
type OperationStarted struct {
	Operation Operation
}

// OperationProgress carries a completion fraction in [0, 1].
type OperationProgress struct {
	Operation Operation
	Fraction  float64
}

// OperationCompleted carries the typed result of a finished operation.
type OperationCompleted struct {
	Operation Operation
	Result    OperationResult
}

// OperationFailed carries a human-readable failure message.
type OperationFailed struct {
	Operation Operation
	Message   string
}

// StateChanged reports the new application state after an accepted
// transition.
type StateChanged struct {
	State State
}

func (FilesAdded) isEvent()         {}
func (ArchiveOpened) isEvent()      {}
func (OperationStarted) isEvent()   {}
func (OperationProgress) isEvent()  {}
func (OperationCompleted) isEvent() {}
func (OperationFailed) isEvent()    {}
func (StateChanged) isEvent()       {}

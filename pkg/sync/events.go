package sync

// Event is sent by a task to report what it's doing. Events from a single task
// are delivered in the order they happened.
type Event interface {
	isEvent()
}

// StateChanged is sent when the task starts running.
type StateChanged struct {
	State TaskState
}

// Progress is sent before each file is copied, and once more with a Percent
// of 100 after the last file.
type Progress struct {
	Percent    int
	RemotePath string
}

// Warning reports a problem that doesn't stop the sync, such as a remote
// directory that couldn't be created.
type Warning struct {
	Err error
}

// Completed is the final event of a task that processed all of its files.
type Completed struct {
	Files        int
	FailedCopies int
}

// Failed is the final event of a task that was aborted.
type Failed struct {
	Err error
}

func (StateChanged) isEvent() {}
func (Progress) isEvent()     {}
func (Warning) isEvent()      {}
func (Completed) isEvent()    {}
func (Failed) isEvent()       {}

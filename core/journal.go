package core

// journal records undo steps for in-memory mutations so a call can be rolled back
// when an external interaction fails after the internal state was committed.
type journal struct {
	undo []func()
}

// record pushes an undo step.
func (j *journal) record(fn func()) {
	j.undo = append(j.undo, fn)
}

// NewCheckpoint returns a revision that RevertTo can roll back to.
func (j *journal) NewCheckpoint() int {
	return len(j.undo)
}

// RevertTo undoes every step recorded after revision, newest first.
func (j *journal) RevertTo(revision int) {
	for i := len(j.undo) - 1; i >= revision; i-- {
		j.undo[i]()
	}
	j.undo = j.undo[:revision]
}

// reset forgets all recorded steps once a call has completed.
func (j *journal) reset() {
	j.undo = j.undo[:0]
}

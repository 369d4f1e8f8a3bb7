package savestate

// Status is shown by the host as a best-effort indicator.
type Status uint8

const (
	Loading Status = iota
	Loaded
	Saving
	Saved
	Deleted
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case Deleted:
		return "deleted"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Event describes a save operation, Slot is -1 for the battery save.
type Event struct {
	Status Status
	Slot   int
	Err    error
}

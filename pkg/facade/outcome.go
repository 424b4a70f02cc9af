package facade

// TaskOutcome is the resolved shape of a single submission, matching
// spec.md §6's {success, data, error, task_id, type}.
type TaskOutcome struct {
	Success bool
	Data    []byte
	Error   string
	TaskID  uint64
	Type    string // always "single"
}

// BatchOutcome is the resolved shape of a submit_many call. TaskIDs is
// reported for correlation only — SubmitMany releases each task's pool
// record once its outcome has been captured into Results/Errors, so the
// ids are no longer valid arguments to GetResult/GetError/HasError.
type BatchOutcome struct {
	TaskIDs     []uint64
	Results     [][]byte
	Errors      []string
	Count       uint32
	SuccessCount uint32
	ErrorCount  uint32
	Type        string // "array" or "batch"
}

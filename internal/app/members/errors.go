package members

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// ErrSaveInProgress is returned when a save is submitted while another one is
// still awaiting its document read.
var ErrSaveInProgress = &Error{
	Status:  409,
	Code:    "SAVE_IN_PROGRESS",
	Message: "another save is still in progress",
}

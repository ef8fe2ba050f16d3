package command

import "time"

// Result is the outcome of one command.
type Result struct {
	Success bool
	Message string
	Data    map[string]any
	Error   string
	// ContinueProcessing tells the caller whether retrying with other input
	// makes sense.
	ContinueProcessing bool
	Timestamp          time.Time
}

// Success returns a successful result.
func Success(message string) Result {
	return Result{
		Success:            true,
		Message:            message,
		Data:               map[string]any{},
		ContinueProcessing: true,
		Timestamp:          time.Now(),
	}
}

// Failure returns a failed result.
func Failure(err string, continueProcessing bool) Result {
	return Result{
		Success:            false,
		Data:               map[string]any{},
		Error:              err,
		ContinueProcessing: continueProcessing,
		Timestamp:          time.Now(),
	}
}

// Redirect asks the processor to run another command line instead.
func Redirect(commandLine string) Result {
	r := Success("")
	r.Data["redirect"] = commandLine
	return r
}

// With returns r with one data entry added.
func (r Result) With(key string, value any) Result {
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	r.Data[key] = value
	return r
}

// RedirectTarget returns the command line of a redirect result.
func (r Result) RedirectTarget() (string, bool) {
	s, ok := r.Data["redirect"].(string)
	return s, ok && s != ""
}

package bib

import "fmt"

// FetchError reports a failed remote bibliography lookup: the service was
// unreachable, returned an error status, or returned no usable record.
// Fatal; the run is not retried.
type FetchError struct {
	URL    string
	Reason string
	Err    error
}

func (fetchErr *FetchError) Error() string {
	if fetchErr.Err != nil {
		return fmt.Sprintf("failed to fetch bibliography for %s: %s: %v", fetchErr.URL, fetchErr.Reason, fetchErr.Err)
	}
	return fmt.Sprintf("failed to fetch bibliography for %s: %s", fetchErr.URL, fetchErr.Reason)
}

func (fetchErr *FetchError) Unwrap() error {
	return fetchErr.Err
}

// ConversionError reports a failed external encoding conversion. Input
// carries the offending text so the failure can be diagnosed from the
// error alone.
type ConversionError struct {
	Direction Direction
	Input     string
	Reason    string
	Err       error
}

func (convErr *ConversionError) Error() string {
	message := fmt.Sprintf("%s conversion failed: %s", convErr.Direction, convErr.Reason)
	if convErr.Err != nil {
		message += ": " + convErr.Err.Error()
	}
	return message + "\noffending input:\n" + convErr.Input
}

func (convErr *ConversionError) Unwrap() error {
	return convErr.Err
}

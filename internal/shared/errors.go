package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Pipeline errors
	ErrGenerationFailed = fmt.Errorf("candidate generation failed")
	ErrInvalidTrack     = fmt.Errorf("invalid track")

	// Remote and service errors
	ErrRemoteAPI          = fmt.Errorf("remote API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoDevice           = fmt.Errorf("no playback device available")

	// Store errors
	ErrStoreUnavailable = fmt.Errorf("playlist store unavailable")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// RemoteAPIError reports a non-success response from the remote music service.
//
// It matches [ErrRemoteAPI] with [errors.Is].
type RemoteAPIError struct {
	Status  int
	Message string
}

func (e *RemoteAPIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", ErrRemoteAPI, e.Status)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrRemoteAPI, e.Status, e.Message)
}

func (e *RemoteAPIError) Is(target error) bool {
	return target == ErrRemoteAPI
}

// RemoteStatus extracts the HTTP status carried by a [RemoteAPIError] in err's chain.
//
// Returns 0 when err does not wrap one.
func RemoteStatus(err error) int {
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

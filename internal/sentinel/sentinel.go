package sentinel

var _ error = Error("")

// Error is an immutable error value. Declare sentinels with it as const:
//
//	const ErrNoMatchingPod = sentinel.Error("no pod matches the selector")
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

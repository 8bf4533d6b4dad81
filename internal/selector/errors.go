package selector

// noEngineAvailableError signals that neither classification nor the static
// preference order found a usable engine.
type noEngineAvailableError struct{}

func (noEngineAvailableError) Error() string { return "no engine available" }

// ErrNoEngineAvailable constructs the selection-failure error.
func ErrNoEngineAvailable() error { return noEngineAvailableError{} }

// IsNoEngineAvailable reports whether err indicates selection found nothing
// usable.
func IsNoEngineAvailable(err error) bool {
	_, ok := err.(noEngineAvailableError)
	return ok
}

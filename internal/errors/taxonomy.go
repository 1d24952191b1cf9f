package errors

// Taxonomy sentinels. Producers attach them with Mark (or Wrap) so callers can
// test membership with Is regardless of how much context was added on the way up.
var (
	// ErrConfiguration indicates missing or invalid required configuration.
	ErrConfiguration = New("configuration error")

	// ErrInsufficientInput indicates the seed list has too few codes.
	ErrInsufficientInput = New("insufficient input")

	// ErrNotFound indicates a durable artifact does not exist.
	ErrNotFound = New("not found")

	// ErrTrackerMissing indicates a stage ran before Seed created the tracker.
	ErrTrackerMissing = New("tracker missing")

	// ErrAlreadyInitialized indicates Seed ran against an existing tracker.
	ErrAlreadyInitialized = New("tracker already initialized")

	// ErrOutOfOrder indicates a stage marker would precede a later stage's marker.
	ErrOutOfOrder = New("stage marked out of order")

	// ErrPayloadReset indicates an attempt to replace a non-empty payload with an empty one.
	ErrPayloadReset = New("payload reset to empty")

	// ErrPrerequisite indicates a key has not been through an earlier stage this stage depends on.
	ErrPrerequisite = New("prerequisite stage incomplete")

	// ErrMissingField indicates a required payload field is absent or has the wrong type.
	ErrMissingField = New("missing field")

	// ErrUnexpectedShape indicates a fetched payload's field set differs from the
	// expected one. It is reported as a warning, never returned from a stage.
	ErrUnexpectedShape = New("unexpected payload shape")

	// ErrLocked indicates another process owns the output directory.
	ErrLocked = New("output directory locked")
)

// IsFatal reports whether err should abort a stage run. Everything except a
// shape warning is fatal.
func IsFatal(err error) bool {
	return err != nil && !Is(err, ErrUnexpectedShape)
}

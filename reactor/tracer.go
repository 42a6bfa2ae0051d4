package reactor

// Cause names what produced a published state.
type Cause string

const (
	CauseLaunch    Cause = "launch"
	CauseEvent     Cause = "event"
	CauseChild     Cause = "child"
	CauseAsync     Cause = "async"
	CauseImmediate Cause = "immediate"
)

// Record describes one published state.
type Record struct {
	ReactorID string
	Name      string
	Seq       int64
	Cause     Cause
	Status    Status

	// State is the running state or, once finished, the final value.
	State any
}

// Tracer observes every state a reactor publishes, including the initial
// state at launch.
//
// Record runs on the reactor's scheduler before any SendSync caller waiting on
// that transition is released, and must not block.
type Tracer interface {
	Record(Record)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(Record)

// Record calls f(r).
func (f TracerFunc) Record(r Record) {
	f(r)
}

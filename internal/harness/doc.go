// Package harness runs reactor scenarios as executable contract tests.
//
// A scenario builds one of the demo reactor trees with fixed IDs, drives it
// with events, and checks the journal every reactor recorded into. All
// reactors of a run share a DeterministicClock, so records carry one global
// seq order and single-threaded scenarios produce byte-identical traces.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files with the following structure:
//
//	name: counter_basic
//	description: "What this scenario validates"
//	reactor: counter          # counter | aggregator | racer | latch
//	children: 3               # aggregator only
//	slow_delay: 1h            # racer only
//	limit: 2                  # latch only
//	steps:
//	  - target: root          # root | child-N | children
//	    event: inc
//	    repeat: 2
//	    async: false
//	    timeout: 1s
//	  - await_finished: root
//	assertions:
//	  - type: final_state
//	    target: root
//	    expect: { count: 2 }
//
// CUE files are unified with the embedded #Scenario schema (schema.cue)
// before decoding; YAML files are decoded strictly and reject unknown fields.
//
// # Assertion Types
//
//   - final_status: the target is running or finished when the run ends
//   - final_state: the target's final state matches expect (subset for objects)
//   - trace_count: the target recorded count records, optionally of one cause
//   - trace_order: the target's records have exactly the listed causes
//   - trace_contains: some record of the target carries state
//
// Contract violations raised on a reactor's scheduler are caught and reported
// as run errors instead of terminating the process.
package harness

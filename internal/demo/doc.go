// Package demo contains small reactors used by the scenario harness and the CLI.
//
//   - Counter: counts inc/dec events, finishes with its count on stop.
//   - Aggregator: owns Counter children and reports their combined total.
//   - Racer: races a fast event against a slow timer and keeps the first label.
//   - Latch: counts up to a limit, then idles and ignores further events.
package demo

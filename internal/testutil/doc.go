// Package testutil holds deterministic stand-ins used by the scenario harness
// and tests: a logical clock for trace sequence numbers and a run id
// generator that never runs out.
package testutil

// Package pipeline sequences the generation, transformation, validation and
// output stages for one request and reports each run to the monitor.
//
// Stages run strictly one after another. An error in any stage aborts the
// run and is returned to the caller; such a run is not recorded. A run whose
// quality misses the threshold is a normal, recorded result with Success
// false.
package pipeline

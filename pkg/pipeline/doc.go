// Package pipeline provides a driver for staged batch pipelines over a shared filesystem.
//
// A pipeline is a fixed set of stages. Each stage names the stage whose output feeds it and
// writes its own files into a dedicated output directory. Stages do not rediscover their
// inputs by scanning directories: every stage returns the manifest of files it produced and
// the driver hands that manifest to the stages downstream.
//
// The driver runs stages one after the other in the order they were added, which is checked
// to be a topological order of the stage graph. A stage starts only after its input stage
// returned successfully, and the first failure stops the run. There is no retry and no
// rollback, files already written are left in place.
//
// Per-file stages can fan out over their input artifacts with PerFile. Every unit writes a
// distinct output derived from its input name, so units run concurrently without locking.
package pipeline

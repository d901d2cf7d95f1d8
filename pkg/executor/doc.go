// Package executor runs the external tools of a stage.
//
// A tool is described by a Template: the executable and an argument list whose entries are
// text/template strings. Rendering produces a Command holding a plain argv that is handed
// to the operating system as is, it never goes through a shell. A Runner executes the
// Command and turns a failure status into an *ExitError carrying the captured stderr.
package executor

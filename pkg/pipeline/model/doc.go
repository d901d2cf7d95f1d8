// Package model provides the data structures shared by the pipeline packages.
// It defines the stage description, the artifacts a stage produces, the manifests passed
// between stages and the options that can hook into a pipeline run.
package model

// Package rnaseq assembles the RNA-seq stages on top of the pipeline driver: read quality
// reports, trimming, alignment, feature counting, differential expression and the volcano
// plot of its results.
//
// Every external tool is described by an executor.Template. A stage renders its template
// for each unit, runs it through an executor.Runner and checks the declared outputs were
// written before it hands the produced manifest to the next stage.
package rnaseq

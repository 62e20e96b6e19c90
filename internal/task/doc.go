// Package task runs a set of work units to completion against an LLM
// generation service. Interactive runs spread units over one lane per
// credential; batch runs hand the whole set to a bulk endpoint. Both paths
// share the quality gate, checkpoint and result sink, so an interrupted run
// resumes where it stopped.
package task

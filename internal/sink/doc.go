// Package sink writes finished work units to the tabular result file that
// downstream assessment tooling consumes.
package sink

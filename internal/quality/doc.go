// Package quality converts named pass/fail check outcomes into an
// accept / retry / reject verdict, and loads the catalogue of checks that the
// quality-check call is asked to evaluate.
package quality

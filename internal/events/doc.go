// Package events carries unit lifecycle notifications from lanes to
// observers.
//
// Lanes emit a UnitEvent each time a unit starts or reaches a terminal
// status. Observers such as the progress tracker register an EventHandler
// with an EventEmitter and never depend on the task package directly.
package events

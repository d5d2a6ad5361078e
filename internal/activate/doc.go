// Package activate instantiates each resolved mod's entry object, wires
// its capability handles, and invokes its entry point inside a failure
// boundary so one mod's crash never aborts the rest of the load.
package activate

// Package relay carries console output from sandboxed documents to the host.
//
// A sandbox posts Messages on a Bus. The Listener subscribes to the Bus once,
// discards anything that is not a console message from the live handle,
// formats the rest into display lines and appends them to a Log.
package relay

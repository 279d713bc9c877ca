// Package poller fans state fetches out across many devices on a shared
// worker pool and invokes a callback per refreshed device.
//
// One Poller owns a goroutine pool sized for the expected device count and a
// ticker driving periodic sweeps. Each sweep fetches every registered device
// concurrently under one deadline; a slow or dead device costs one worker
// for the duration of the sweep, never the sweep itself.
package poller

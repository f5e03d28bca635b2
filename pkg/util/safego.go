// Package util holds small concurrency helpers shared by the node runtime,
// the engine launcher and the exporters.
package util

import (
	"runtime/debug"

	"github.com/salahayoub/bonsai/pkg/logging"
)

// SafeGo runs fn on a new goroutine and recovers any panic, logging it with
// a stack trace instead of crashing the application.
func SafeGo(fn func()) {
	SafeGoWithName("anonymous", fn)
}

// SafeGoWithName is SafeGo with a goroutine name attached to the panic log.
//
//	util.SafeGoWithName("block-watcher", func() {
//	    // goroutine code here
//	})
func SafeGoWithName(name string, fn func()) {
	GoRecover(name, fn, nil)
}

// GoRecover is SafeGoWithName with a hook that receives the recovered value.
// The node runtime uses the hook to turn a panicking task into an error
// message so the control loop always gets its result.
func GoRecover(name string, fn func(), onPanic func(recovered any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("goroutine panic recovered",
					"goroutine", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}

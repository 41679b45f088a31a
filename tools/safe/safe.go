package safe

import (
	"campusmarket/logger"
)

// Go starts a goroutine that recovers from panics so a misbehaving
// task cannot take the process down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

// Call invokes f inline, recovering from panics. Used when iterating
// handler lists where one bad handler must not stop the rest.
func Call(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[safe.Call] panic recovered: %v", r)
		}
	}()
	f()
}

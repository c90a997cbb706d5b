package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"improve/log"
)

func Notify(ch chan os.Signal) {
	signal.Notify(ch, signals...)
}

// exit is swapped out in tests.
var exit = os.Exit

// Context returns a context that is cancelled on the first interrupt or
// termination signal. A second signal exits the process with status 130
// unless the returned cancel has been called.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ch := make(chan os.Signal, 2)
	Notify(ch)
	ctx, cancel, done := watch(parent, ch)
	go func() {
		<-done
		signal.Stop(ch)
	}()
	return ctx, cancel
}

// watch cancels on the first value from ch and exits on the second. done is
// closed once the watcher has returned.
func watch(parent context.Context, ch <-chan os.Signal) (context.Context, context.CancelFunc, <-chan struct{}) {
	ctx, cancelCtx := context.WithCancel(parent)
	stop := make(chan struct{})
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(stop) })
		cancelCtx()
	}

	go func() {
		defer close(done)
		select {
		case sig := <-ch:
			log.Infof("received %s, shutting down", sig)
			cancelCtx()
		case <-ctx.Done():
			return
		}
		select {
		case <-ch:
			log.Warn("second signal, exiting immediately")
			log.Close()
			exit(130)
		case <-stop:
		}
	}()
	return ctx, cancel, done
}

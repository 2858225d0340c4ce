package termination

import "os"

// Deliver injects sig as if it had been received from the OS.
func (w *Watcher) Deliver(sig os.Signal) {
	w.sigCh <- sig
}

// Done is closed when the signal loop has returned.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

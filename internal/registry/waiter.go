// FILE: internal/registry/waiter.go
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WaitTimeout is the longest a client is held by a long poll
const WaitTimeout = 25 * time.Second

// waitRegistry parks long-polling clients until a tournament's version moves
type waitRegistry struct {
	mu       sync.Mutex
	waiters  map[string][]*waitRequest // tournament ID → waiting clients
	timeout  time.Duration
	shutdown chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

type waitRequest struct {
	version int           // version the client already has
	notify  chan struct{} // closed on change, timeout or removal
	once    sync.Once
	timer   *time.Timer
}

func newWaitRegistry(timeout time.Duration) *waitRegistry {
	if timeout <= 0 {
		timeout = WaitTimeout
	}
	return &waitRegistry{
		waiters:  make(map[string][]*waitRequest),
		timeout:  timeout,
		shutdown: make(chan struct{}),
	}
}

// register parks a client. The returned channel fires when the tournament
// moves past version, the wait times out, ctx ends or the registry closes.
func (w *waitRegistry) register(ctx context.Context, id string, version int) <-chan struct{} {
	req := &waitRequest{
		version: version,
		notify:  make(chan struct{}),
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.fire(req)
		return req.notify
	}
	req.timer = time.AfterFunc(w.timeout, func() { w.fire(req) })
	w.waiters[id] = append(w.waiters[id], req)
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-req.notify:
		case <-w.shutdown:
			w.fire(req)
		}
		req.timer.Stop()
		w.remove(id, req)
	}()

	return req.notify
}

// notify wakes every client of id holding an older version
func (w *waitRegistry) notify(id string, version int) {
	w.mu.Lock()
	waitList := append([]*waitRequest(nil), w.waiters[id]...)
	w.mu.Unlock()

	for _, req := range waitList {
		if req.version != version {
			w.fire(req)
		}
	}
}

// removeTournament releases every client of a deleted tournament
func (w *waitRegistry) removeTournament(id string) {
	w.mu.Lock()
	waitList := w.waiters[id]
	delete(w.waiters, id)
	w.mu.Unlock()

	for _, req := range waitList {
		w.fire(req)
	}
}

func (w *waitRegistry) close(timeout time.Duration) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.shutdown)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out")
	}
}

func (w *waitRegistry) fire(req *waitRequest) {
	req.once.Do(func() { close(req.notify) })
}

func (w *waitRegistry) remove(id string, req *waitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[id]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[id] = append(waitList[:i], waitList[i+1:]...)
			break
		}
	}
	if len(w.waiters[id]) == 0 {
		delete(w.waiters, id)
	}
}

//go:build !linux

package reactor

import "fmt"

// Run is unimplemented outside Linux: the reactor is built directly on
// epoll, which has no portable equivalent in this codebase.
func (r *Reactor) Run() error {
	return fmt.Errorf("reactor: epoll-based I/O loop is only supported on linux")
}

//go:build linux

package reactor

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// Run performs the one-time setup of spec.md §4.5 and then drives the
// single-threaded main loop until a fatal error occurs.
func (r *Reactor) Run() error {
	listenFd, err := r.listen()
	if err != nil {
		return err
	}
	defer unix.Close(listenFd)

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	defer unix.Close(epfd)

	if err := r.epollAdd(epfd, listenFd); err != nil {
		return err
	}

	r.log.WithFields(logFields(r.cfg.Host, r.cfg.Port)).Info("redrust-go reactor listening")

	lastCron := time.Now()
	cronFrequency := cronIntervalSeconds * time.Second
	events := make([]unix.EpollEvent, maxClients)

	for {
		if now := time.Now(); now.After(lastCron.Add(cronFrequency)) {
			r.store.ActiveExpirySweep()
			if r.metrics != nil {
				r.metrics.SetKeysTotal(r.store.Len())
			}
			lastCron = now
		}

		n, err := unix.EpollWait(epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			continue
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)

			if fd == listenFd {
				if err := r.acceptOne(epfd, listenFd); err != nil {
					return err
				}
				continue
			}

			r.serviceClient(epfd, fd)
		}
	}
}

func (r *Reactor) listen() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)

	addr, err := resolveIPv4(r.cfg.Host)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}

	sa := &unix.SockaddrInet4{Port: r.cfg.Port, Addr: addr}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, err
	}

	if err := unix.Listen(fd, maxClients); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

func resolveIPv4(host string) ([4]byte, error) {
	var out [4]byte
	if host == "" || host == "0.0.0.0" {
		return out, nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip4", host)
		if err != nil {
			return out, err
		}
		ip = resolved.IP
	}
	ip4 := ip.To4()
	copy(out[:], ip4)
	return out, nil
}

func (r *Reactor) epollAdd(epfd, fd int) error {
	return unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	})
}

// acceptOne accepts one pending connection and registers it with epoll. An
// accept error is returned and ends Run; a failed registration only closes
// the new fd.
func (r *Reactor) acceptOne(epfd, listenFd int) error {
	fd, _, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		r.log.WithError(err).Error("accept failed")
		return err
	}

	if err := r.epollAdd(epfd, fd); err != nil {
		r.log.WithError(err).Warn("failed to register client fd with epoll")
		unix.Close(fd)
		return nil
	}

	r.connections++
	if r.metrics != nil {
		r.metrics.RecordConnection()
	}
	return nil
}

func (r *Reactor) serviceClient(epfd, fd int) {
	buf := r.bufs.get(readBufferSize)
	defer r.bufs.put(buf)

	n, err := unix.Read(fd, buf)
	if err != nil || n == 0 {
		r.closeClient(epfd, fd)
		return
	}
	if r.metrics != nil {
		r.metrics.RecordBytesRead(n)
	}

	cmds, err := commandsFromFrame(buf[:n])
	if err != nil {
		r.closeClient(epfd, fd)
		return
	}

	reply, err := evalToBuffer(r.evaluator, cmds)
	if err != nil {
		r.closeClient(epfd, fd)
		return
	}

	// Short writes are not retried — a documented limitation: under
	// backpressure a reply may be truncated before the fd is closed.
	written, err := unix.Write(fd, reply)
	if err != nil || written < len(reply) {
		r.closeClient(epfd, fd)
		return
	}
	if r.metrics != nil {
		r.metrics.RecordBytesWritten(written)
	}
}

func (r *Reactor) closeClient(epfd, fd int) {
	_ = unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, fd, nil)
	unix.Close(fd)
	r.connections--
}

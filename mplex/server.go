//go:build linux

package mplex

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// conn is the per-connection state owned by the Server.
type conn struct {
	client Client
	recv   []byte
	send   []byte

	// queued is set while a send queue entry exists and write interest is armed.
	queued   bool
	closing  bool
	overflow bool
}

// Server is the connection multiplexer.
type Server struct {
	port        int
	host        netip.Addr
	readSize    int
	maxEvents   int
	pollTimeout time.Duration
	queueLimit  int

	listenFD int
	epollFD  int
	active   bool

	conns      map[int]*conn
	connected  int
	pending    []int
	overflowed []Client

	events  []unix.EpollEvent
	readBuf []byte

	handler  EventHandler
	observer Observer
	log      logrus.FieldLogger
}

// New creates an inactive Server for the given port. Port 0 binds an
// ephemeral port; use Addr after Activate to learn it.
func New(port int, opts ...Option) (*Server, error) {
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrSettings, port)
	}
	s := &Server{
		port:        port,
		readSize:    DefaultReadSize,
		maxEvents:   DefaultMaxEvents,
		pollTimeout: DefaultPollTimeout,
		listenFD:    -1,
		epollFD:     -1,
		conns:       make(map[int]*conn),
		observer:    nopObserver{},
		log:         logrus.StandardLogger().WithField("component", "mplex"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetEventHandler installs the handler. Only one handler is active at a time.
func (s *Server) SetEventHandler(h EventHandler) {
	s.handler = h
}

// Activate creates, binds and listens on the TCP socket and registers it with
// the readiness poller.
func (s *Server) Activate() error {
	if s.active {
		return ErrAlreadyActive
	}

	sa := &unix.SockaddrInet4{Port: s.port}
	if s.host.IsValid() {
		sa.Addr = s.host.As4()
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSocket, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return fmt.Errorf("%w: SO_REUSEADDR: %w", ErrSocket, err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return fmt.Errorf("%w: port %d: %w", ErrBind, s.port, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return fmt.Errorf("%w: %w", ErrListen, err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("%w: epoll_create1: %w", ErrPoller, err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(fd)
		unix.Close(epfd)
		return fmt.Errorf("%w: add listener: %w", ErrPoller, err)
	}

	s.listenFD = fd
	s.epollFD = epfd
	s.events = make([]unix.EpollEvent, s.maxEvents)
	s.readBuf = make([]byte, s.readSize)
	s.active = true

	s.log.WithField("port", s.port).Info("Server successfully activated")
	return nil
}

// Deactivate disconnects every client, then closes the listener and the poller.
func (s *Server) Deactivate() {
	if !s.active {
		return
	}
	for _, c := range s.conns {
		s.disconnect(c)
	}
	s.drain()

	unix.Close(s.listenFD)
	unix.Close(s.epollFD)
	s.listenFD, s.epollFD = -1, -1
	s.active = false
	s.log.Info("Server has been deactivated")
}

// Addr returns the address the listener is bound to.
func (s *Server) Addr() (netip.AddrPort, error) {
	if !s.active {
		return netip.AddrPort{}, ErrNotActive
	}
	sa, err := unix.Getsockname(s.listenFD)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return addrPortOf(sa), nil
}

// ConnectedClientsCount returns the number of connections not yet torn down.
func (s *Server) ConnectedClientsCount() int {
	return s.connected
}

// Poll waits up to the poll timeout for readiness events and processes all
// of them once. Disconnections requested while processing are applied after
// the whole batch has been handled.
func (s *Server) Poll() error {
	if !s.active {
		return ErrNotActive
	}

	n, err := unix.EpollWait(s.epollFD, s.events, int(s.pollTimeout/time.Millisecond))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		s.log.WithError(err).Error("Failed to poll events")
		return fmt.Errorf("%w: epoll_wait: %w", ErrPoller, err)
	}

	for _, ev := range s.events[:n] {
		fd := int(ev.Fd)
		if fd == s.listenFD {
			if ev.Events&unix.EPOLLIN != 0 {
				s.accept()
			}
			continue
		}

		c, ok := s.conns[fd]
		if !ok || c.closing {
			continue
		}
		// Hangup wins over pending input: frames arriving with the half-close are dropped.
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0 {
			s.clientLog(c).Info("Client disconnected")
			s.disconnect(c)
			continue
		}
		if ev.Events&unix.EPOLLIN != 0 {
			s.recv(c)
		}
		if ev.Events&unix.EPOLLOUT != 0 && !c.closing {
			s.flush(c)
		}
	}

	s.drain()
	return nil
}

// SendTo queues msg for c and arms write interest. Output for a client that
// is being disconnected is dropped.
func (s *Server) SendTo(client Client, msg string) {
	c := s.lookup(client)
	if c == nil || c.closing || c.overflow {
		return
	}
	s.clientLog(c).Debugf("Queueing %d bytes: %q", len(msg), truncate(msg, 50))

	if s.queueLimit > 0 && len(c.send)+len(msg) > s.queueLimit {
		s.clientLog(c).Warnf("Send queue limit of %d bytes exceeded", s.queueLimit)
		c.send = nil
		c.overflow = true
		s.overflowed = append(s.overflowed, c.client)
		return
	}

	if !c.queued {
		c.queued = true
		c.send = append(c.send[:0], msg...)
		s.modify(c.client.fd, unix.EPOLLIN|unix.EPOLLOUT|unix.EPOLLRDHUP)
		return
	}
	s.clientLog(c).Debugf("Appending to existing buffer (size was %d)", len(c.send))
	c.send = append(c.send, msg...)
}

// Broadcast queues msg for every connected client.
func (s *Server) Broadcast(msg string) {
	for _, c := range s.conns {
		s.SendTo(c.client, msg)
	}
}

// BroadcastExcept queues msg for every connected client but except.
func (s *Server) BroadcastExcept(except Client, msg string) {
	for _, c := range s.conns {
		if c.client.id != except.id {
			s.SendTo(c.client, msg)
		}
	}
}

// Multisend queues msg for each of clients.
func (s *Server) Multisend(clients []Client, msg string) {
	for _, c := range clients {
		s.SendTo(c, msg)
	}
}

// DisconnectClient notifies the handler immediately and schedules the
// descriptor for teardown at the end of the current Poll.
func (s *Server) DisconnectClient(client Client) {
	c := s.lookup(client)
	if c == nil {
		return
	}
	s.disconnect(c)
}

func (s *Server) lookup(client Client) *conn {
	c, ok := s.conns[client.fd]
	if !ok || c.client.id != client.id {
		return nil
	}
	return c
}

func (s *Server) disconnect(c *conn) {
	if c.closing {
		return
	}
	c.closing = true
	if s.handler != nil {
		s.handler.OnDisconnect(c.client)
	}
	s.pending = append(s.pending, c.client.fd)
}

// drain applies the disconnections requested during the batch.
func (s *Server) drain() {
	for len(s.overflowed) > 0 {
		client := s.overflowed[0]
		s.overflowed = s.overflowed[1:]
		s.DisconnectClient(client)
	}
	for _, fd := range s.pending {
		s.teardown(fd)
	}
	s.pending = s.pending[:0]
}

func (s *Server) accept() {
	fd, sa, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if !errors.Is(err, unix.EAGAIN) {
			s.log.WithError(err).Warn("Failed to accept client")
		}
		return
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: int32(fd)}
	if err := unix.EpollCtl(s.epollFD, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(fd)
		s.log.WithError(err).Error("Failed to add client to epoll")
		return
	}

	c := &conn{client: NewClient(fd, addrPortOf(sa))}
	s.conns[fd] = c
	s.connected++
	s.clientLog(c).Info("New client accepted")
	s.observer.ClientAccepted(c.client)
	if s.handler != nil {
		s.handler.OnConnect(c.client)
	}
}

func (s *Server) recv(c *conn) {
	n, err := unix.Read(c.client.fd, s.readBuf)
	if err != nil {
		switch {
		case retryable(err):
			return
		case errors.Is(err, unix.ECONNRESET):
			s.clientLog(c).Info("Connection of client has been reset")
		case errors.Is(err, unix.ETIMEDOUT):
			s.clientLog(c).Info("Client has timed out")
		default:
			s.clientLog(c).WithError(err).Warn("Unknown error occurred while reading from client")
		}
		s.disconnect(c)
		return
	}
	if n == 0 {
		s.clientLog(c).Info("Client disconnected (EOF)")
		s.disconnect(c)
		return
	}
	s.observer.BytesRead(n)

	frames, rest := ExtractFrames(append(c.recv, s.readBuf[:n]...))
	c.recv = rest
	for _, frame := range frames {
		s.clientLog(c).Debugf("Received %q", frame)
		s.observer.FrameReceived(c.client)
		if s.handler != nil {
			s.handler.OnMessage(Message{Text: frame, Client: c.client})
		}
		if c.closing {
			return
		}
	}
}

// retryable reports socket errors that leave the connection usable; the
// operation is retried on the next readiness event.
func retryable(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)
}

func (s *Server) flush(c *conn) {
	if !c.queued || len(c.send) == 0 {
		s.disarm(c)
		return
	}

	n, err := unix.SendmsgN(c.client.fd, c.send, nil, nil, unix.MSG_NOSIGNAL)
	switch {
	case err != nil && retryable(err):
		s.clientLog(c).WithError(err).Debug("Send deferred")
		return
	case err != nil:
		s.clientLog(c).WithError(err).Warn("Unknown error occurred while sending to client")
		s.disconnect(c)
		return
	case n == 0:
		s.clientLog(c).Info("Send returned 0, connection closed")
		s.disconnect(c)
		return
	}

	s.clientLog(c).Debugf("Sent %d bytes of %d", n, len(c.send))
	s.observer.BytesWritten(n)
	c.send = c.send[n:]
	if len(c.send) == 0 {
		s.disarm(c)
	}
}

func (s *Server) disarm(c *conn) {
	c.send = nil
	c.queued = false
	s.modify(c.client.fd, unix.EPOLLIN|unix.EPOLLRDHUP)
}

func (s *Server) modify(fd int, events uint32) {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(s.epollFD, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		s.log.WithError(err).WithField("fd", fd).Error("Failed to modify epoll interest")
	}
}

// teardown releases everything the Server holds for fd. Pending output gets
// one last non-blocking write attempt first.
func (s *Server) teardown(fd int) {
	c, ok := s.conns[fd]
	if !ok {
		return
	}
	if len(c.send) > 0 && !c.overflow {
		if n, err := unix.SendmsgN(fd, c.send, nil, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT); err == nil {
			s.observer.BytesWritten(n)
		}
	}

	delete(s.conns, fd)
	s.connected--
	if err := unix.EpollCtl(s.epollFD, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		s.log.WithError(err).WithField("fd", fd).Error("Critical error could not delete fd from epoll")
	}
	s.clientLog(c).Debug("Closing client file descriptor")
	unix.Close(fd)
	s.observer.ClientClosed(c.client)
}

func (s *Server) clientLog(c *conn) logrus.FieldLogger {
	return s.log.WithFields(logrus.Fields{
		"fd":     c.client.fd,
		"conn":   c.client.id.String(),
		"remote": c.client.String(),
	})
}

func addrPortOf(sa unix.Sockaddr) netip.AddrPort {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr).Unmap(), uint16(a.Port))
	}
	return netip.AddrPort{}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package mplex

import (
	"net/netip"
	"strconv"

	"github.com/google/uuid"
)

// Client identifies one accepted connection.
//
// The descriptor number is recycled by the kernel once the connection is
// closed; the ID is not, so a Client held past its connection's teardown
// never addresses whoever inherits the descriptor.
type Client struct {
	fd   int
	id   uuid.UUID
	addr netip.AddrPort
}

// NewClient creates a handle for the descriptor fd connected from addr.
func NewClient(fd int, addr netip.AddrPort) Client {
	return Client{
		fd:   fd,
		id:   uuid.New(),
		addr: addr,
	}
}

// FD returns the socket descriptor.
func (c Client) FD() int {
	return c.fd
}

// ID returns the stable identity of the connection.
func (c Client) ID() uuid.UUID {
	return c.id
}

// IP returns the remote address without the port.
func (c Client) IP() string {
	if !c.addr.IsValid() {
		return "0.0.0.0"
	}
	return c.addr.Addr().String()
}

// Port returns the remote port.
func (c Client) Port() int {
	return int(c.addr.Port())
}

// IsZero reports whether c is the zero handle.
func (c Client) IsZero() bool {
	return c.id == uuid.Nil
}

func (c Client) String() string {
	return c.IP() + ":" + strconv.Itoa(c.Port())
}

/*
Package mplex implements a single-threaded, readiness based TCP connection
multiplexer.

A Server owns the listening socket and an epoll instance. Each call to Poll
waits briefly for readiness events and handles all of them: it accepts new
clients, reads from readable sockets, splits the byte stream into CRLF
terminated frames and flushes queued output to writable sockets. Protocol
logic lives behind the EventHandler interface; the Server never interprets
frames.

The reactor is built on epoll and is only available on Linux. All Server
methods must be called from the goroutine that runs Poll.

	srv, err := mplex.New(6667)
	if err != nil {
	    log.Fatal(err)
	}
	srv.SetEventHandler(handler)
	if err := srv.Activate(); err != nil {
	    log.Fatal(err)
	}
	for {
	    srv.Poll()
	}
*/
package mplex

package wait

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// IRC is ready once the server at addr answers a PING with a reply line
// carrying its server prefix. A bare connect is not enough: the kernel
// completes handshakes for a listener nobody polls yet. Unregistered clients
// get a numeric refusal, which still proves the poll loop is running.
func IRC(addr string) Probe {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		defer conn.Close()

		deadline := time.Now().Add(time.Second)
		if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
			deadline = dl
		}
		conn.SetDeadline(deadline)

		if _, err := conn.Write([]byte("PING :ready\r\n")); err != nil {
			return err
		}
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return err
		}
		if !strings.HasPrefix(line, ":") {
			return fmt.Errorf("unexpected reply %q", strings.TrimRight(line, "\r\n"))
		}
		return nil
	}
}

// HTTP is ready once a GET of url answers with status.
func HTTP(url string, status int) Probe {
	client := &http.Client{Timeout: time.Second}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != status {
			return fmt.Errorf("GET %s: status %d, want %d", url, resp.StatusCode, status)
		}
		return nil
	}
}

package mplex

// Message is one complete frame received from a client.
type Message struct {
	Text   string
	Client Client
}

// EventHandler receives the three notifications the Server produces.
// All calls happen on the goroutine running Poll.
type EventHandler interface {
	OnConnect(c Client)
	OnDisconnect(c Client)
	OnMessage(msg Message)
}

// Observer is notified about socket level activity. It is meant for metrics
// and must not call back into the Server.
type Observer interface {
	ClientAccepted(c Client)
	ClientClosed(c Client)
	FrameReceived(c Client)
	BytesRead(n int)
	BytesWritten(n int)
}

type nopObserver struct{}

func (nopObserver) ClientAccepted(Client) {}
func (nopObserver) ClientClosed(Client)   {}
func (nopObserver) FrameReceived(Client)  {}
func (nopObserver) BytesRead(int)         {}
func (nopObserver) BytesWritten(int)      {}

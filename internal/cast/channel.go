package cast

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vishen/go-chromecast/application"
	castv2 "github.com/vishen/go-chromecast/cast"
)

// commandNamespace is the custom application channel the remote receiver
// listens on for playback commands.
const commandNamespace = "urn:x-cast:com.connectsdk"

const senderID = "sender-0"

// connectionRetries covers devices that need a few seconds to wake before
// accepting a connection.
const connectionRetries = 5

// Channel is an open command path to a single cast device. Sends are
// fire-and-forget; a delivery failure is returned for logging but never
// retried.
type Channel interface {
	Send(payload castv2.Payload) error
	Close(stopMedia bool) error
}

// Dialer opens a channel to a target. The coordinator takes one so tests
// can substitute an in-memory channel.
type Dialer func(target Target) (Channel, error)

var requestIDCounter int32

func nextRequestID() int {
	return int(atomic.AddInt32(&requestIDCounter, 1))
}

// deviceChannel wraps a go-chromecast connection plus its application
// handle. The raw connection is kept so custom-namespace payloads can be
// sent alongside the library's standard media commands.
type deviceChannel struct {
	mu   sync.Mutex
	conn castv2.Conn
	app  *application.Application
}

// Dial connects to the device and launches the application handshake.
func Dial(target Target) (Channel, error) {
	conn := castv2.NewConnection()
	app := application.NewApplication(
		application.WithConnection(conn),
		application.WithConnectionRetries(connectionRetries),
	)

	if err := app.Start(target.Host, target.Port); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", target.Addr(), err)
	}

	return &deviceChannel{conn: conn, app: app}, nil
}

func (c *deviceChannel) Send(payload castv2.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	requestID := nextRequestID()
	payload.SetRequestId(requestID)

	if err := c.conn.Send(requestID, payload, senderID, c.transportID(), commandNamespace); err != nil {
		return fmt.Errorf("send cast command: %w", err)
	}
	return nil
}

// transportID returns the running receiver's transport id, falling back to
// the platform receiver when no application is launched yet.
func (c *deviceChannel) transportID() string {
	if err := c.app.Update(); err == nil {
		if app := c.app.App(); app != nil && app.TransportId != "" {
			return app.TransportId
		}
	}
	return "receiver-0"
}

func (c *deviceChannel) Close(stopMedia bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.app.Close(stopMedia)
}

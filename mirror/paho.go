package mirror

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// message in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// ClientOptions configures the broker connection.
type ClientOptions struct {
	Broker         string // tcp://host:port
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	Qos            byte
	Retain         bool
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.KeepAlive <= 0 {
		o.KeepAlive = 30 * time.Second
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	return o
}

// Client is a Publisher backed by paho.
type Client struct {
	inner paho.Client
	opts  ClientOptions
}

// Dial connects to the broker.
func Dial(opts ClientOptions) (*Client, error) {
	opts = opts.withDefaults()
	p := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if opts.Username != "" {
		p.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		p.SetPassword(opts.Password)
	}

	c := &Client{inner: paho.NewClient(p), opts: opts}
	tok := c.inner.Connect()
	if !tok.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out after %s", opts.Broker, opts.ConnectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", opts.Broker, err)
	}
	return c, nil
}

// Publish sends payload to topic and waits for the broker.
func (c *Client) Publish(topic string, payload []byte) error {
	tok := c.inner.Publish(topic, c.opts.Qos, c.opts.Retain, payload)
	if !tok.WaitTimeout(c.opts.ConnectTimeout) {
		return ErrPublishTimeout
	}
	return tok.Error()
}

// Close disconnects, giving in-flight messages 250 ms.
func (c *Client) Close() {
	c.inner.Disconnect(250)
}

// Package bus publishes conversion lifecycle events to NATS so other services
// can react to finished 3D models without polling the backend themselves.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"foodviz/internal/domain"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	IsClosed() bool
}

// drainTimeout bounds how long Close waits for buffered messages to flush.
const drainTimeout = 10 * time.Second

// Client publishes JSON messages on a fixed subject prefix.
type Client struct {
	nc      Conn
	subject string
}

// Connect dials NATS with unlimited reconnects.
func Connect(url, subject string) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("bus: nats url is required")
	}
	nc, err := nats.Connect(url,
		nats.Name("foodviz"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("bus: connect: %w", err)
	}
	return New(nc, subject), nil
}

// New wraps an existing connection.
func New(nc Conn, subject string) *Client {
	subject = strings.Trim(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = "foodviz.conversions"
	}
	return &Client{nc: nc, subject: subject}
}

// Close drains pending messages and waits for the connection to close, so
// events published just before exit are not lost.
func (c *Client) Close() {
	if c == nil || c.nc == nil {
		return
	}
	if err := c.nc.Drain(); err != nil {
		return
	}
	deadline := time.Now().Add(drainTimeout)
	for !c.nc.IsClosed() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

// PublishJSON marshals v and publishes it on subject.
func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("bus: encode: %w", err)
	}
	if err := c.nc.Publish(subject, b); err != nil {
		return fmt.Errorf("bus: publish %s: %w", subject, err)
	}
	return nil
}

// SubjectFor returns the subject a conversion event is published on, e.g.
// foodviz.conversions.succeeded.
func (c *Client) SubjectFor(evt domain.ConversionEvent) string {
	return c.subject + "." + string(evt.To)
}

// PublishConversion implements conversion.Publisher.
func (c *Client) PublishConversion(ctx context.Context, evt domain.ConversionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.PublishJSON(c.SubjectFor(evt), evt)
}

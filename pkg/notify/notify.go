// Package notify delivers staff and student messages over external channels.
package notify

import (
	"context"
	"errors"
)

// ErrNoAddress is returned when the recipient has no address for a channel.
var ErrNoAddress = errors.New("recipient has no address for channel")

// Message is a single outbound notification.
type Message struct {
	// To is the channel specific address: email, E.164 phone number or
	// recipient ID for push.
	To       string
	Subject  string
	Body     string
	Priority string
	Metadata map[string]string
}

// Sender delivers messages over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

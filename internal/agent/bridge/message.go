package bridge

import (
	"context"
	"errors"
)

type Kind string

const (
	KindHello             Kind = "HELLO"
	KindGetToken          Kind = "GET_TOKEN"
	KindToken             Kind = "TOKEN"
	KindRequestPermission Kind = "REQUEST_PERMISSION"
	KindPermission        Kind = "PERMISSION"
	KindFocus             Kind = "FOCUS"
	KindNavigate          Kind = "NAVIGATE"
	KindSkipWaiting       Kind = "SKIP_WAITING"
	KindSync              Kind = "SYNC"
)

// Message is the single envelope exchanged in both directions. A reply
// carries the request's ID in ReplyTo.
type Message struct {
	Kind    Kind   `json:"kind"`
	ID      string `json:"id,omitempty"`
	ReplyTo string `json:"replyTo,omitempty"`
	Token   string `json:"token,omitempty"`
	URL     string `json:"url,omitempty"`
	Granted bool   `json:"granted,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Reply builds the answer to m.
func (m Message) Reply(kind Kind) Message {
	return Message{Kind: kind, ReplyTo: m.ID}
}

var ErrClosed = errors.New("port closed")

// Port delivers messages to one foreground context.
type Port interface {
	Send(ctx context.Context, m Message) error
	Close() error
}

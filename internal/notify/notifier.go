// Package notify delivers rendered signal messages to an external channel.
// Delivery failures never propagate: they degrade to a zero handle and the
// lifecycle proceeds without threading.
package notify

import (
	"context"
	"log"
)

// Handle identifies a delivered message so later results can reply to it.
// Zero means delivery failed or the gateway is not configured.
type Handle int

// Notifier is the notification gateway interface.
type Notifier interface {
	// Send delivers text and returns its handle (0 on failure).
	Send(ctx context.Context, text string) Handle
	// SendReply delivers text threaded under replyTo. A zero replyTo sends
	// unthreaded. Returns the new message's handle (0 on failure).
	SendReply(ctx context.Context, text string, replyTo Handle) Handle
}

// LogNotifier logs messages instead of sending them (development runs).
// Handles are sequential so gale threading still behaves locally.
type LogNotifier struct {
	next Handle
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, text string) Handle {
	n.next++
	log.Printf("[notify] #%d %s", n.next, text)
	return n.next
}

func (n *LogNotifier) SendReply(ctx context.Context, text string, replyTo Handle) Handle {
	n.next++
	log.Printf("[notify] #%d (reply to #%d) %s", n.next, replyTo, text)
	return n.next
}

package event

import "context"

// Publisher sends events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Notifier publishes toasts for one session and entity. It satisfies the
// action executor's notifier contract.
type Notifier struct {
	pub     Publisher
	session string
	entity  string
}

// NewNotifier creates a Notifier. A nil Publisher drops every message.
func NewNotifier(pub Publisher, session, entityName string) *Notifier {
	return &Notifier{pub: pub, session: session, entity: entityName}
}

func (n *Notifier) Success(ctx context.Context, message string) {
	n.publish(ctx, LevelSuccess, message)
}

func (n *Notifier) Error(ctx context.Context, message string) {
	n.publish(ctx, LevelError, message)
}

func (n *Notifier) publish(ctx context.Context, level, message string) {
	if n == nil || n.pub == nil {
		return
	}
	n.pub.Publish(ctx, NewToast(n.session, n.entity, level, message))
}

package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/thetankguide/featuretank/pkg/email"
)

// Notifications fires submitter emails in the background. Failures are
// logged and never reach the caller.
type Notifications struct {
	notifier email.Notifier
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewNotifications(notifier email.Notifier, log *zap.Logger) *Notifications {
	return &Notifications{notifier: notifier, log: log.Named("notifications")}
}

func (n *Notifications) send(kind, submissionID string, fn func(ctx context.Context, notifier email.Notifier) error) {
	if n == nil || n.notifier == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := fn(context.Background(), n.notifier); err != nil {
			n.log.Warn("notification failed",
				zap.String("kind", kind),
				zap.String("submission_id", submissionID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every notification started so far has finished.
func (n *Notifications) Wait() {
	n.wg.Wait()
}

package notifier

import (
	"context"

	"github.com/kyzma-platform/kyzmainvest-bot/service"

	log "github.com/sirupsen/logrus"
)

// LogNotifier writes notifications to the structured log. It stands in for a
// chat transport during development and in headless deployments; operator
// messages are additionally tagged so they can be filtered.
type LogNotifier struct {
	operatorID int64
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(operatorID int64) service.Notifier {
	return &LogNotifier{operatorID: operatorID}
}

// Notify delivers a message to a user. Delivery failures never propagate.
func (n *LogNotifier) Notify(ctx context.Context, userID int64, text string) {
	log.WithFields(log.Fields{
		"userID": userID,
	}).Info(text)
}

// NotifyOperator delivers a message to the operator account
func (n *LogNotifier) NotifyOperator(ctx context.Context, text string) {
	log.WithFields(log.Fields{
		"userID":   n.operatorID,
		"operator": true,
	}).Warn(text)
}

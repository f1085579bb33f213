package telegram

import (
	"fmt"
	"strings"

	"discount_reminder/internal/app"
	domainTelegram "discount_reminder/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// RunAlerter posts a short report to the admin chat when a reminder run
// needs attention. Clean runs stay silent.
type RunAlerter struct {
	client      domainTelegram.Client
	adminChatID int64
	logger      *logrus.Entry
}

func NewRunAlerter(client domainTelegram.Client, adminChatID int64, logger *logrus.Entry) *RunAlerter {
	return &RunAlerter{client: client, adminChatID: adminChatID, logger: logger}
}

// NeedsAttention reports whether a run outcome is worth an operator alert.
func NeedsAttention(summary *app.RunSummary, runErr error) bool {
	if runErr != nil {
		return true
	}
	if summary == nil {
		return false
	}
	return !summary.ConfigValid || summary.Failed > 0 || summary.MarkFailed > 0
}

// Notify sends the alert if needed. Delivery failures are only logged.
func (a *RunAlerter) Notify(summary *app.RunSummary, runErr error) {
	if !NeedsAttention(summary, runErr) {
		return
	}
	text := FormatRunAlert(summary, runErr)
	if err := a.client.SendMessage(a.adminChatID, text); err != nil {
		a.logger.WithError(err).WithField("admin_chat_id", a.adminChatID).Error("Failed to send run alert to Telegram")
		return
	}
	a.logger.WithField("admin_chat_id", a.adminChatID).Debug("Run alert sent")
}

// FormatRunAlert renders the alert text.
func FormatRunAlert(summary *app.RunSummary, runErr error) string {
	var b strings.Builder
	b.WriteString("Discount reminder run needs attention")
	if summary != nil {
		fmt.Fprintf(&b, " (run %s)", summary.RunID)
	}
	b.WriteString("\n")

	if summary != nil && !summary.ConfigValid {
		fmt.Fprintf(&b, "Configuration invalid: %v\nNo reminders were sent.\n", summary.ConfigError)
	}
	if runErr != nil {
		fmt.Fprintf(&b, "Run error: %v\n", runErr)
	}
	if summary != nil && summary.ConfigValid {
		fmt.Fprintf(&b, "Scanned: %d, due: %d, sent: %d, failed: %d, claimed elsewhere: %d, not marked: %d",
			summary.Scanned, summary.Candidates, summary.Sent, summary.Failed, summary.SkippedClaimed, summary.MarkFailed)
	}
	return strings.TrimRight(b.String(), "\n")
}

package infrastructure

import (
	"fmt"
	"os/exec"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService handles sending desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	switch n.config.Method {
	case "osascript":
		return n.sendOSAScript(title, message)
	case "notify-send":
		return n.sendNotifySend(title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

// sendOSAScript sends notification using macOS osascript
func (n *NotificationService) sendOSAScript(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	cmd := exec.Command("osascript", "-e", script)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "osascript"),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))

	return nil
}

// sendNotifySend sends notification using Linux notify-send
func (n *NotificationService) sendNotifySend(title, message string) error {
	cmd := exec.Command("notify-send", title, message)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "notify-send"),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))

	return nil
}

// NotifyRunQueued sends notification when a run is queued
func (n *NotificationService) NotifyRunQueued(url string, kind domain.RefKind) {
	title := "Run Queued"
	message := fmt.Sprintf("Added to queue: %s (%s)", truncateString(url, 30), kind)
	n.Send(title, message)
}

// NotifyRunStarted sends notification when a run starts
func (n *NotificationService) NotifyRunStarted(url string, kind domain.RefKind) {
	title := "Run Started"
	message := fmt.Sprintf("Processing: %s (%s)", truncateString(url, 30), kind)
	n.Send(title, message)
}

// NotifyRunCompleted sends notification when a run completes
func (n *NotificationService) NotifyRunCompleted(url string, stats domain.RunStats) {
	title := "Run Completed"
	message := fmt.Sprintf("Done: %s (%d fetched, %d skipped)",
		truncateString(url, 30), stats.Successful, stats.Skipped)
	n.Send(title, message)
}

// NotifyRunFailed sends notification when a run fails
func (n *NotificationService) NotifyRunFailed(url string, err error) {
	title := "Run Failed"
	message := fmt.Sprintf("Failed: %s", truncateString(url, 30))
	n.Send(title, message)
}

// NotifyQueueEmpty sends notification when the queue drains
func (n *NotificationService) NotifyQueueEmpty() {
	title := "Queue Empty"
	message := "All runs completed"
	n.Send(title, message)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

package services

import "go.uber.org/zap"

// Notifier shows a blocking message to the visitor (window.alert in a browser).
type Notifier interface {
	Notify(message string)
}

// LogNotifier is the headless stand-in: every alert becomes a log line.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(message string) {
	n.logger.Info("alert", zap.String("message", message))
}

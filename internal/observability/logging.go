package observability

import (
	"github.com/shiftwise/auth-api/internal/logging"
	"go.uber.org/zap"
)

// Logger returns the global logger instance
func Logger() *zap.Logger {
	return logging.Logger
}

// MaskPhone masks a phone number for logs and user-facing messages,
// keeping the country code visible and the subscriber tail hidden.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return phone
	}
	return phone[:6] + "****" + phone[len(phone)-2:]
}

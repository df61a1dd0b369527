// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/auth"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventInjectionPattern is logged when libinjection matches user-supplied text.
	// The text is still stored; all SQL is parameterised.
	EventInjectionPattern SecurityEventType = "sql_injection_pattern"
	// EventAccessDenied is logged when a caller touches a workflow they do not own.
	EventAccessDenied SecurityEventType = "access_denied"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  SecurityEventType `json:"event_type"`
	WorkflowID *uuid.UUID        `json:"workflow_id,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	Details    any               `json:"details"`
	Severity   string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a detected injection pattern.
type InjectionDetails struct {
	Operation   string `json:"operation"`
	Field       string `json:"field"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor under the "security_audit" logger name.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionPattern records user input that matched a SQL injection pattern.
// Logged at WARN: the input is harmless to parameterised SQL but worth a look.
func (a *SecurityAuditor) LogInjectionPattern(ctx context.Context, operation string, result *InjectionCheckResult) {
	userID := auth.GetUserIDFromContext(ctx)
	clientIP := ClientIPFromContext(ctx)

	details := InjectionDetails{
		Operation:   operation,
		Field:       result.Field,
		Value:       logging.TruncateQuery(result.Value),
		Fingerprint: result.Fingerprint,
	}

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventInjectionPattern,
		UserID:    userID,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  "warning",
	}

	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("SQL injection pattern in user input",
		zap.String("event_json", string(eventJSON)),
		zap.String("operation", operation),
		zap.String("field", result.Field),
		zap.String("fingerprint", result.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "warning"),
	)
}

// LogAccessDenied records an attempt to operate on another user's workflow.
func (a *SecurityAuditor) LogAccessDenied(ctx context.Context, operation string, workflowID uuid.UUID) {
	userID := auth.GetUserIDFromContext(ctx)
	clientIP := ClientIPFromContext(ctx)

	event := SecurityEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  EventAccessDenied,
		WorkflowID: &workflowID,
		UserID:     userID,
		ClientIP:   clientIP,
		Details: map[string]string{
			"operation": operation,
		},
		Severity: "critical",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Error("Workflow access denied",
		zap.String("event_json", string(eventJSON)),
		zap.String("operation", operation),
		zap.String("workflow_id", workflowID.String()),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "critical"),
	)
}

package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventType represents the type of audit event
type EventType string

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	EventTypeApplicationStatus EventType = "application_status"
	EventTypeApplicationDelete EventType = "application_delete"
	EventTypeDocumentVerify    EventType = "document_verify"
	EventTypeDocumentDelete    EventType = "document_delete"
	EventTypeBiometricDelete   EventType = "biometric_delete"
	EventTypeAuth              EventType = "auth"
	EventTypeMFA               EventType = "mfa"

	SeverityInfo    EventSeverity = "info"
	SeverityWarning EventSeverity = "warning"
)

// AuditLog represents an audit log entry in the database
type AuditLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID      *uuid.UUID `gorm:"type:uuid;index"`
	TargetID    *uuid.UUID `gorm:"type:uuid;index"`
	EventType   string     `gorm:"index"`
	Severity    string
	Description string
	IPAddress   string
	UserAgent   string
	Metadata    string    // JSON string of additional data
	CreatedAt   time.Time `gorm:"index"`
	Success     bool      `gorm:"index"`
}

// Event is a single auditable action
type Event struct {
	Type        EventType
	Severity    EventSeverity
	Description string
	ActorID     uuid.UUID
	TargetID    uuid.UUID
	Success     bool
	Metadata    map[string]interface{}
}

// Recorder receives audit events. Implementations never fail the caller.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

type requestInfoKey struct{}

type requestInfo struct {
	ip        string
	userAgent string
}

// WithRequestInfo attaches the client address and user agent to ctx
func WithRequestInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{ip: ip, userAgent: userAgent})
}

// ClientIP returns the client address attached by WithRequestInfo
func ClientIP(ctx context.Context) string {
	info, _ := ctx.Value(requestInfoKey{}).(requestInfo)
	return info.ip
}

// Logger is the audit logger
type Logger struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

// NewLogger creates a new audit logger
func NewLogger(db *gorm.DB, log logrus.FieldLogger) *Logger {
	return &Logger{
		db:  db,
		log: log,
		now: time.Now,
	}
}

// Record writes event to audit_logs. Failures are logged and swallowed.
func (l *Logger) Record(ctx context.Context, event Event) {
	if err := l.write(ctx, event); err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"target_id":  event.TargetID,
		}).Warn("failed to write audit log")
	}
}

func (l *Logger) write(ctx context.Context, event Event) error {
	var metadataJSON string
	if event.Metadata != nil {
		metadataBytes, err := json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
		metadataJSON = string(metadataBytes)
	}

	severity := event.Severity
	if severity == "" {
		severity = SeverityInfo
	}

	entry := AuditLog{
		ID:          uuid.New(),
		UserID:      optionalID(event.ActorID),
		TargetID:    optionalID(event.TargetID),
		EventType:   string(event.Type),
		Severity:    string(severity),
		Description: event.Description,
		Metadata:    metadataJSON,
		CreatedAt:   l.now(),
		Success:     event.Success,
	}
	if info, ok := ctx.Value(requestInfoKey{}).(requestInfo); ok {
		entry.IPAddress = info.ip
		entry.UserAgent = info.userAgent
	}

	return l.db.WithContext(ctx).Create(&entry).Error
}

// GetTargetLogs returns the audit trail of a single entity, newest first
func (l *Logger) GetTargetLogs(ctx context.Context, targetID uuid.UUID, limit int) ([]AuditLog, error) {
	var logs []AuditLog
	err := l.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Nop discards events
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

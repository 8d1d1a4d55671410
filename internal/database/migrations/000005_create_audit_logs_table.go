package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createAuditLogsTableMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_audit_logs_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS audit_logs (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID,
					target_id UUID,
					event_type VARCHAR(50),
					severity VARCHAR(20),
					description TEXT,
					ip_address VARCHAR(45),
					user_agent TEXT,
					metadata TEXT,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					success BOOLEAN
				);

				CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_target_id ON audit_logs(target_id);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_event_type ON audit_logs(event_type);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS audit_logs").Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createAuditLogsTableMigration())
}

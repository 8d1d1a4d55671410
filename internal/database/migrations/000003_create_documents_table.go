package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createDocumentsTableMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_documents_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS documents (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES users(id),
					application_id UUID NOT NULL REFERENCES applications(id),
					document_type VARCHAR(40) NOT NULL,
					file_name VARCHAR(255) NOT NULL,
					original_name VARCHAR(255) NOT NULL,
					mime_type VARCHAR(100) NOT NULL,
					size BIGINT NOT NULL,
					path TEXT NOT NULL,
					upload_date TIMESTAMP WITH TIME ZONE NOT NULL,
					verification_date TIMESTAMP WITH TIME ZONE,
					verified_by UUID REFERENCES users(id),
					status VARCHAR(30) NOT NULL DEFAULT 'pending_verification',
					rejection_reason TEXT,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_documents_user_application ON documents(user_id, application_id);
				CREATE INDEX IF NOT EXISTS idx_documents_application_upload ON documents(application_id, upload_date);
				CREATE INDEX IF NOT EXISTS idx_documents_document_type ON documents(document_type);
				CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
				CREATE INDEX IF NOT EXISTS idx_documents_deleted_at ON documents(deleted_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS documents").Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createDocumentsTableMigration())
}

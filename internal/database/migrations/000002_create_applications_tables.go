package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createApplicationsTablesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_applications_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS applications (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					application_type VARCHAR(40) NOT NULL,
					applicant_id UUID NOT NULL REFERENCES users(id),
					personal_first_name VARCHAR(100) NOT NULL,
					personal_last_name VARCHAR(100) NOT NULL,
					personal_other_names VARCHAR(255),
					personal_date_of_birth TIMESTAMP WITH TIME ZONE NOT NULL,
					personal_place_of_birth VARCHAR(255) NOT NULL,
					personal_gender VARCHAR(10) NOT NULL,
					personal_nationality VARCHAR(100) DEFAULT 'Lesotho',
					personal_marital_status VARCHAR(20),
					contact_address_street VARCHAR(255),
					contact_address_city VARCHAR(100),
					contact_address_district VARCHAR(50),
					contact_address_postal_code VARCHAR(20),
					contact_phone_number VARCHAR(30),
					contact_email_address VARCHAR(255),
					application_status VARCHAR(40) NOT NULL DEFAULT 'draft',
					documents JSONB NOT NULL DEFAULT '[]',
					appointment_date TIMESTAMP WITH TIME ZONE,
					officer_notes TEXT,
					biometrics_captured BOOLEAN DEFAULT FALSE,
					rejection_reason TEXT,
					document_number VARCHAR(40),
					issue_date TIMESTAMP WITH TIME ZONE,
					expiry_date TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_applications_applicant_id ON applications(applicant_id);
				CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(application_status);
				CREATE INDEX IF NOT EXISTS idx_applications_type ON applications(application_type);
				CREATE INDEX IF NOT EXISTS idx_applications_created_at ON applications(created_at DESC);
				CREATE INDEX IF NOT EXISTS idx_applications_deleted_at ON applications(deleted_at);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_document_number
					ON applications(document_number) WHERE document_number IS NOT NULL AND document_number <> '';
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS application_status_history (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
					sequence INTEGER NOT NULL,
					status VARCHAR(40) NOT NULL,
					changed_by UUID NOT NULL,
					timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
					notes TEXT,
					UNIQUE(application_id, sequence)
				);

				CREATE INDEX IF NOT EXISTS idx_application_status_history_application_id
					ON application_status_history(application_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS application_status_history").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS applications").Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createApplicationsTablesMigration())
}

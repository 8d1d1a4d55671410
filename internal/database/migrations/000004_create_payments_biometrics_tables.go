package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPaymentsBiometricsTablesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_payments_biometrics_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS payments (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES users(id),
					application_id UUID NOT NULL REFERENCES applications(id),
					amount DECIMAL(12,2) NOT NULL,
					currency VARCHAR(3) NOT NULL,
					payment_method VARCHAR(30) NOT NULL,
					payment_type VARCHAR(30) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					transaction_id VARCHAR(100),
					receipt_number VARCHAR(50),
					payment_date TIMESTAMP WITH TIME ZONE NOT NULL,
					processing_date TIMESTAMP WITH TIME ZONE,
					description TEXT,
					failure_reason TEXT,
					metadata JSONB,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_transaction_id ON payments(transaction_id) WHERE transaction_id IS NOT NULL;
				CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_receipt_number ON payments(receipt_number) WHERE receipt_number IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments(user_id);
				CREATE INDEX IF NOT EXISTS idx_payments_application_id ON payments(application_id);
				CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);
				CREATE INDEX IF NOT EXISTS idx_payments_payment_date ON payments(payment_date);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS biometrics (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES users(id),
					application_id UUID REFERENCES applications(id),
					captured_by UUID NOT NULL REFERENCES users(id),
					biometric_data JSONB NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_biometrics_user_id ON biometrics(user_id);
				CREATE INDEX IF NOT EXISTS idx_biometrics_application_id ON biometrics(application_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS biometrics").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS payments").Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createPaymentsBiometricsTablesMigration())
}

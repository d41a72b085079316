package storage

// (user_id, instrument_id) is unique table-wide: a deactivated row is reactivated
// by the next save instead of a second row being inserted.
var dialects = map[string]dialect{
	"duckdb": {
		name:      "duckdb",
		sequences: true,
		schema: []string{
			`CREATE SEQUENCE IF NOT EXISTS instruments_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS instruments (
				id BIGINT PRIMARY KEY,
				symbol VARCHAR NOT NULL UNIQUE,
				name VARCHAR NOT NULL,
				base_currency VARCHAR NOT NULL,
				quote_currency VARCHAR NOT NULL,
				is_active BOOLEAN NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE SEQUENCE IF NOT EXISTS user_configurations_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS user_configurations (
				id BIGINT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				instrument_id BIGINT NOT NULL,
				target_price DOUBLE,
				operation_type VARCHAR NOT NULL,
				is_active BOOLEAN NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP,
				UNIQUE (user_id, instrument_id)
			)`,
			`CREATE SEQUENCE IF NOT EXISTS notifications_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS notifications (
				id BIGINT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				type VARCHAR NOT NULL,
				title VARCHAR NOT NULL,
				message VARCHAR NOT NULL,
				is_read BOOLEAN NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
		},
	},
	"mysql": {
		name: "mysql",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS instruments (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				symbol VARCHAR(20) NOT NULL UNIQUE,
				name VARCHAR(100) NOT NULL,
				base_currency VARCHAR(10) NOT NULL,
				quote_currency VARCHAR(10) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at DATETIME(6) NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS user_configurations (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				instrument_id BIGINT NOT NULL,
				target_price DOUBLE NULL,
				operation_type VARCHAR(4) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NULL,
				UNIQUE KEY uq_user_instrument (user_id, instrument_id),
				KEY idx_active_target (is_active, target_price)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS notifications (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				type VARCHAR(10) NOT NULL,
				title VARCHAR(255) NOT NULL,
				message TEXT NOT NULL,
				is_read BOOLEAN NOT NULL DEFAULT FALSE,
				created_at DATETIME(6) NOT NULL,
				KEY idx_user_read (user_id, is_read)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		},
	},
}

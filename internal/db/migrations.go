package db

// Migrate creates the schema. All statements are idempotent so migration
// runs unconditionally at every boot.
func (d *DB) Migrate() error {
	return d.WithLock(func() error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				session_type TEXT NOT NULL CHECK(session_type IN ('full', 'quick')),
				status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'ended')),
				started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				ended_at DATETIME
			)`,
			`CREATE TABLE IF NOT EXISTS session_messages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id INTEGER NOT NULL,
				role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
				content TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS guest_passes (
				code TEXT PRIMARY KEY,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				expires_at DATETIME NOT NULL,
				max_uses INTEGER NOT NULL DEFAULT 0,
				uses INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS profiles (
				user_id TEXT PRIMARY KEY,
				preferred_name TEXT,
				role TEXT NOT NULL DEFAULT 'user',
				has_completed_onboarding INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS subscriptions (
				user_id TEXT PRIMARY KEY,
				status TEXT NOT NULL,
				current_period_end DATETIME,
				stripe_customer_id TEXT,
				stripe_subscription_id TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_session_messages_session ON session_messages(session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		}

		for _, stmt := range stmts {
			if _, err := d.db.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

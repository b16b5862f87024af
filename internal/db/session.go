package db

import (
	"database/sql"
	"time"

	"coaching-chat/internal/models"
)

// CreateSession inserts a new active session row and returns it.
func (d *DB) CreateSession(userID string, sessionType models.SessionMode) (*models.SessionRecord, error) {
	return WithLockResult(d, func() (*models.SessionRecord, error) {
		result, err := d.db.Exec(
			`INSERT INTO sessions (user_id, session_type, status) VALUES (?, ?, 'active')`,
			userID, string(sessionType),
		)
		if err != nil {
			return nil, err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}

		return &models.SessionRecord{
			ID:          id,
			UserID:      userID,
			SessionType: sessionType,
			Status:      models.StatusActive,
			StartedAt:   time.Now(),
		}, nil
	})
}

// GetSession retrieves a session row by id.
func (d *DB) GetSession(id int64) (*models.SessionRecord, error) {
	return WithLockResult(d, func() (*models.SessionRecord, error) {
		row := d.db.QueryRow(
			`SELECT id, user_id, session_type, status, started_at, ended_at FROM sessions WHERE id = ?`,
			id,
		)

		var rec models.SessionRecord
		var sessionType, status string
		var endedAt sql.NullTime
		if err := row.Scan(&rec.ID, &rec.UserID, &sessionType, &status, &rec.StartedAt, &endedAt); err != nil {
			return nil, err
		}
		rec.SessionType = models.SessionMode(sessionType)
		rec.Status = models.SessionStatus(status)
		if endedAt.Valid {
			t := endedAt.Time
			rec.EndedAt = &t
		}
		return &rec, nil
	})
}

// EndSession marks a session ended. Ending an already-ended session is
// harmless; the terminal timestamp is only written once.
func (d *DB) EndSession(id int64) error {
	return d.WithLock(func() error {
		result, err := d.db.Exec(
			`UPDATE sessions SET status = 'ended', ended_at = COALESCE(ended_at, CURRENT_TIMESTAMP) WHERE id = ?`,
			id,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// AppendMessage stores one conversation turn.
func (d *DB) AppendMessage(sessionID int64, role models.Role, content string) (*models.Message, error) {
	return WithLockResult(d, func() (*models.Message, error) {
		result, err := d.db.Exec(
			`INSERT INTO session_messages (session_id, role, content) VALUES (?, ?, ?)`,
			sessionID, string(role), content,
		)
		if err != nil {
			return nil, err
		}

		if _, err := result.LastInsertId(); err != nil {
			return nil, err
		}

		return &models.Message{
			Role:      role,
			Content:   content,
			CreatedAt: time.Now(),
		}, nil
	})
}

// GetMessages retrieves a session's full message history in order.
func (d *DB) GetMessages(sessionID int64) ([]models.Message, error) {
	return WithLockResult(d, func() ([]models.Message, error) {
		rows, err := d.db.Query(
			`SELECT role, content, created_at FROM session_messages WHERE session_id = ? ORDER BY id ASC`,
			sessionID,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var messages []models.Message
		for rows.Next() {
			var msg models.Message
			var role string
			if err := rows.Scan(&role, &msg.Content, &msg.CreatedAt); err != nil {
				return nil, err
			}
			msg.Role = models.Role(role)
			messages = append(messages, msg)
		}

		return messages, rows.Err()
	})
}

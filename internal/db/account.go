package db

import (
	"database/sql"

	"coaching-chat/internal/models"
)

// GetProfile retrieves a user's profile, or nil if none exists yet.
func (d *DB) GetProfile(userID string) (*models.Profile, error) {
	return WithLockResult(d, func() (*models.Profile, error) {
		row := d.db.QueryRow(
			`SELECT user_id, preferred_name, role, has_completed_onboarding FROM profiles WHERE user_id = ?`,
			userID,
		)

		var p models.Profile
		var preferredName sql.NullString
		var completed int
		err := row.Scan(&p.UserID, &preferredName, &p.Role, &completed)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if preferredName.Valid {
			p.PreferredName = preferredName.String
		}
		p.HasCompletedOnboarding = completed != 0
		return &p, nil
	})
}

// UpsertProfile writes a user's profile.
func (d *DB) UpsertProfile(p models.Profile) error {
	return d.WithLock(func() error {
		completed := 0
		if p.HasCompletedOnboarding {
			completed = 1
		}
		_, err := d.db.Exec(
			`INSERT INTO profiles (user_id, preferred_name, role, has_completed_onboarding)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				preferred_name = excluded.preferred_name,
				role = excluded.role,
				has_completed_onboarding = excluded.has_completed_onboarding`,
			p.UserID, p.PreferredName, p.Role, completed,
		)
		return err
	})
}

// GetSubscription retrieves a user's subscription, or nil if none exists.
// Rows are written by the billing webhook pipeline, which lives outside this
// service; here they are read-only facts.
func (d *DB) GetSubscription(userID string) (*models.Subscription, error) {
	return WithLockResult(d, func() (*models.Subscription, error) {
		row := d.db.QueryRow(
			`SELECT user_id, status, current_period_end, stripe_customer_id, stripe_subscription_id
			FROM subscriptions WHERE user_id = ?`,
			userID,
		)

		var s models.Subscription
		var periodEnd sql.NullTime
		var customerID, subscriptionID sql.NullString
		err := row.Scan(&s.UserID, &s.Status, &periodEnd, &customerID, &subscriptionID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if periodEnd.Valid {
			s.CurrentPeriodEnd = periodEnd.Time
		}
		if customerID.Valid {
			s.StripeCustomerID = customerID.String
		}
		if subscriptionID.Valid {
			s.StripeSubscriptionID = subscriptionID.String
		}
		return &s, nil
	})
}

// UpsertSubscription writes a subscription row (used by seeding and tests).
func (d *DB) UpsertSubscription(s models.Subscription) error {
	return d.WithLock(func() error {
		_, err := d.db.Exec(
			`INSERT INTO subscriptions (user_id, status, current_period_end, stripe_customer_id, stripe_subscription_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				status = excluded.status,
				current_period_end = excluded.current_period_end,
				stripe_customer_id = excluded.stripe_customer_id,
				stripe_subscription_id = excluded.stripe_subscription_id`,
			s.UserID, s.Status, s.CurrentPeriodEnd, s.StripeCustomerID, s.StripeSubscriptionID,
		)
		return err
	})
}

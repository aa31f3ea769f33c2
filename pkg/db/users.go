package db

import (
	"context"
)

const restoreUserQuery = `INSERT INTO users (user_id, username, first_name, is_subscribed, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE
SET username = excluded.username, first_name = excluded.first_name, is_subscribed = excluded.is_subscribed`

// EnsureUser creates the user if absent. Existing display fields are left
// untouched.
func (s *Store) EnsureUser(ctx context.Context, userID int64, username, firstName *string) error {
	err := s.provider.WithTx(ctx, func(q Queryer) error {
		_, err := s.exec(ctx, q, s.dialect.InsertUserIfAbsent(), userID, username, firstName, s.timestamp())
		return err
	})
	return s.wrap("ensure user", err)
}

// SetSubscription updates the broadcast flag. Unknown users are ignored.
func (s *Store) SetSubscription(ctx context.Context, userID int64, subscribed bool) error {
	err := s.provider.WithTx(ctx, func(q Queryer) error {
		_, err := s.exec(ctx, q, `UPDATE users SET is_subscribed = ? WHERE user_id = ?`, subscribed, userID)
		return err
	})
	return s.wrap("set subscription", err)
}

func (s *Store) ListSubscribed(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.selectRows(ctx, q, &ids,
			`SELECT user_id FROM users WHERE is_subscribed = `+s.dialect.Bool(true)+` ORDER BY user_id`)
	})
	if err != nil {
		return nil, s.wrap("list subscribed", err)
	}
	return ids, nil
}

// ListAllUsers reads every user. Databases created before the subscription
// flag existed report everyone as unsubscribed.
func (s *Store) ListAllUsers(ctx context.Context) ([]User, error) {
	subscribed := "is_subscribed"
	if !s.provider.gorm.WithContext(ctx).Migrator().HasColumn("users", "is_subscribed") {
		subscribed = s.dialect.Bool(false) + " AS is_subscribed"
	}

	var users []User
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.selectRows(ctx, q, &users,
			`SELECT user_id, username, first_name, `+subscribed+`, created_at FROM users ORDER BY user_id`)
	})
	if err != nil {
		return nil, s.wrap("list users", err)
	}
	return users, nil
}

// RestoreUser copies a user from another database, overwriting display
// fields and the subscription flag of an existing row.
func (s *Store) RestoreUser(ctx context.Context, u User) error {
	createdAt := u.CreatedAt.UTC()
	if u.CreatedAt.IsZero() {
		createdAt = s.timestamp()
	}
	err := s.provider.WithTx(ctx, func(q Queryer) error {
		_, err := s.exec(ctx, q, restoreUserQuery, u.UserID, u.Username, u.FirstName, u.IsSubscribed, createdAt)
		return err
	})
	return s.wrap("restore user", err)
}

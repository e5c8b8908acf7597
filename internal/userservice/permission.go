package userservice

import (
	"context"
	"slices"
)

func (p Permissions) Include(permission Permission) bool {
	return slices.Contains(p, permission)
}

func (m *UserModel) addPermissions(ctx context.Context, q dbtx, id int, permissions ...Permission) error {
	for _, p := range permissions {
		_, err := q.ExecContext(ctx, `
			INSERT INTO user_permissions (user_id, permission)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, id, p)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *UserModel) getPermissions(ctx context.Context, id int) (Permissions, error) {
	query := `
		SELECT permission
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY permission`

	rows, err := m.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions Permissions
	for rows.Next() {
		var permission Permission
		if err := rows.Scan(&permission); err != nil {
			return nil, err
		}

		permissions = append(permissions, permission)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return permissions, nil
}

package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/sushihentaime/blogdesk/internal/common"
)

var (
	ErrAuthenticationFailure = errors.New("invalid authentication credentials")
	ErrInactiveAccount       = errors.New("user account is not activated")
)

func NewUserService(db *sql.DB, mb common.MessageProducer) *UserService {
	return &UserService{
		m:  newUserModel(db),
		mb: mb,
	}
}

// withTx runs fn in a transaction and rolls back when fn fails.
func (s *UserService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return common.StoreError(err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return common.StoreError(tx.Commit())
}

// RegisterUser creates an inactive account and publishes a user.created
// event carrying the activation token.
func (s *UserService) RegisterUser(ctx context.Context, username, email, password string) (*User, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := &User{Username: username, Email: email}
	if err := u.Password.set(password); err != nil {
		return nil, err
	}

	var token *Token
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.m.insertUser(ctx, tx, u); err != nil {
			return err
		}

		var err error
		token, err = s.m.createToken(ctx, tx, u.ID, ActivationTokenTime, TokenScopeActivate)
		return err
	})
	if err != nil {
		return nil, err
	}

	data := struct {
		Email string
		Token string
	}{
		Email: u.Email,
		Token: token.Plain,
	}

	msg, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	err = s.mb.Publish(ctx, msg, common.UserCreatedKey, common.UserExchange)
	if err != nil {
		return nil, err
	}

	return u, nil
}

// ActivateUser activates the account owning an activation token and
// consumes the token.
func (s *UserService) ActivateUser(ctx context.Context, token string) (*User, error) {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u, err := s.m.getUserForToken(ctx, TokenScopeActivate, token)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.m.activateUser(ctx, tx, u); err != nil {
			return err
		}

		return s.m.deleteTokens(ctx, tx, u.ID, TokenScopeActivate)
	})
	if err != nil {
		return nil, err
	}

	return u, nil
}

// CreateAdmin creates an activated account holding PermissionWritePosts. No
// activation mail is sent.
func (s *UserService) CreateAdmin(ctx context.Context, username, email, password string) (*User, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := &User{Username: username, Email: email, Activated: true}
	if err := u.Password.set(password); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.m.insertUser(ctx, tx, u); err != nil {
			return err
		}

		return s.m.addPermissions(ctx, tx, u.ID, PermissionWritePosts)
	})
	if err != nil {
		return nil, err
	}

	u.Permissions = Permissions{PermissionWritePosts}

	return u, nil
}

// GrantPermission adds permission to an existing account. Granting a held
// permission is a no-op.
func (s *UserService) GrantPermission(ctx context.Context, username string, permission Permission) error {
	v := common.NewValidator()
	validateUsername(v, username)
	v.Check(permission != "", "permission", "must be provided")
	if !v.Valid() {
		return v.ValidationError()
	}

	u, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	return common.StoreError(s.m.addPermissions(ctx, s.m.db, u.ID, permission))
}

// LoginUser checks the credentials and issues an authentication token.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*Token, error) {
	v := common.NewValidator()
	v.Check(username != "", "username", "must be provided")
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := u.Password.matches(password)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrAuthenticationFailure
	}

	if !u.Activated {
		return nil, ErrInactiveAccount
	}

	return s.m.createToken(ctx, s.m.db, u.ID, AccessTokenTime, TokenScopeAuthentication)
}

// GetUserForToken resolves an authentication token to its user.
func (s *UserService) GetUserForToken(ctx context.Context, token string) (*User, error) {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.m.getUserForToken(ctx, TokenScopeAuthentication, token)
}

// LogoutUser revokes every authentication token of the user.
func (s *UserService) LogoutUser(ctx context.Context, userID int) error {
	v := common.NewValidator()
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteTokens(ctx, s.m.db, userID, TokenScopeAuthentication)
}

func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

func (u *User) IsActivated() bool {
	return u.Activated
}

func (u *User) HasPermission(permission Permission) bool {
	return u.Permissions.Include(permission)
}

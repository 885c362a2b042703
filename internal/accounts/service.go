package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	pkgAuth "github.com/angelmondragon/pharmacy-backend/pkg/auth"
	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service covers sign-up, sign-in and account administration.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AccountDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	Me(ctx context.Context, actor authz.Principal) (*AccountDTO, error)

	List(ctx context.Context, actor authz.Principal, role *enums.Role) ([]AccountDTO, error)
	ListCustomers(ctx context.Context, actor authz.Principal) ([]AccountDTO, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*AccountDTO, error)
	Create(ctx context.Context, actor authz.Principal, input CreateInput) (*AccountDTO, error)
	Update(ctx context.Context, actor authz.Principal, id uuid.UUID, input UpdateInput) (*AccountDTO, error)
	Suspend(ctx context.Context, actor authz.Principal, id uuid.UUID) (*AccountDTO, error)
}

type sessionManager interface {
	Open(ctx context.Context, accountID uuid.UUID) (string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build the accounts service.
type ServiceParams struct {
	Repo           Repository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type service struct {
	repo     Repository
	sessions sessionManager
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	now      func() time.Time
}

// NewService constructs the accounts service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("accounts repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		repo:     params.Repo,
		sessions: params.SessionManager,
		jwtCfg:   params.JWTConfig,
		pwCfg:    params.PasswordConfig,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*AccountDTO, error) {
	account, err := s.create(ctx, input, enums.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return FromModel(account), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	account, err := s.authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if security.NeedsRehash(account.PasswordHash, s.pwCfg) {
		// the plaintext is only available here, so stale hashes are upgraded on sign-in
		hash, err := security.HashPassword(req.Password, s.pwCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rehash password")
		}
		err = s.repo.Update(ctx, account.ID, map[string]any{"password_hash": hash, "last_login_at": now})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
		}
		account.PasswordHash = hash
	} else if err := s.repo.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	account.LastLoginAt = &now

	accessID, err := s.sessions.Open(ctx, account.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session")
	}
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		JTI:       accessID,
	})
	if err != nil {
		_ = s.sessions.Revoke(ctx, accessID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(s.jwtCfg.AccessTTL()),
		Account:     FromModel(account),
	}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Authenticate loads the account behind a live session. Missing and
// suspended accounts are both unauthenticated.
func (s *service) Authenticate(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session no longer valid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if !account.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account suspended")
	}
	return account, nil
}

func (s *service) Me(ctx context.Context, actor authz.Principal) (*AccountDTO, error) {
	account, err := s.Authenticate(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	return FromModel(account), nil
}

func (s *service) List(ctx context.Context, actor authz.Principal, role *enums.Role) ([]AccountDTO, error) {
	if err := actor.Require(authz.AccountsManage); err != nil {
		return nil, err
	}
	return s.list(ctx, role)
}

func (s *service) ListCustomers(ctx context.Context, actor authz.Principal) ([]AccountDTO, error) {
	if err := actor.Require(authz.CustomersRead); err != nil {
		return nil, err
	}
	role := enums.RoleCustomer
	return s.list(ctx, &role)
}

func (s *service) list(ctx context.Context, role *enums.Role) ([]AccountDTO, error) {
	rows, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accounts")
	}
	out := make([]AccountDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*AccountDTO, error) {
	if err := actor.Require(authz.AccountsManage); err != nil {
		return nil, err
	}
	account, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(account), nil
}

func (s *service) Create(ctx context.Context, actor authz.Principal, input CreateInput) (*AccountDTO, error) {
	if err := actor.Require(authz.AccountsManage); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be one of admin, pharmacist, customer")
	}
	account, err := s.create(ctx, input.RegisterInput, input.Role)
	if err != nil {
		return nil, err
	}
	return FromModel(account), nil
}

func (s *service) Update(ctx context.Context, actor authz.Principal, id uuid.UUID, input UpdateInput) (*AccountDTO, error) {
	if err := actor.Require(authz.AccountsManage); err != nil {
		return nil, err
	}
	target, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Role == enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin accounts cannot be modified")
	}

	updates := map[string]any{}
	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
		}
		updates["full_name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be one of admin, pharmacist, customer")
		}
		updates["role"] = *input.Role
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be active or suspended")
		}
		updates["status"] = *input.Status
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account")
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Suspend(ctx context.Context, actor authz.Principal, id uuid.UUID) (*AccountDTO, error) {
	status := enums.AccountStatusSuspended
	return s.Update(ctx, actor, id, UpdateInput{Status: &status})
}

func (s *service) create(ctx context.Context, input RegisterInput, role enums.Role) (*models.Account, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if err := security.CheckStrength(input.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	account := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Phone:        trimmed(input.Phone),
		Address:      trimmed(input.Address),
		Role:         role,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return account, nil
}

func (s *service) authenticate(ctx context.Context, identifier, password string) (*models.Account, error) {
	input := strings.TrimSpace(identifier)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	account, err := s.repo.FindByIdentifier(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup account")
	}

	valid, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !account.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return account, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	return email, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

package accounts

import (
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
)

// AccountDTO is the transport shape that omits credentials.
type AccountDTO struct {
	ID          uuid.UUID           `json:"id"`
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	FullName    string              `json:"fullName"`
	Phone       *string             `json:"phone,omitempty"`
	Address     *string             `json:"address,omitempty"`
	Role        enums.Role          `json:"role"`
	Status      enums.AccountStatus `json:"status"`
	LastLoginAt *time.Time          `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// FromModel converts a stored account into its public shape.
func FromModel(a *models.Account) *AccountDTO {
	if a == nil {
		return nil
	}
	return &AccountDTO{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FullName:    a.FullName,
		Phone:       a.Phone,
		Address:     a.Address,
		Role:        a.Role,
		Status:      a.Status,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// RegisterInput is a self-service customer sign-up.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    *string
	Address  *string
}

// CreateInput is an admin-created account of any role.
type CreateInput struct {
	RegisterInput
	Role enums.Role
}

// UpdateInput patches an account. Nil fields are left untouched.
type UpdateInput struct {
	Email    *string
	FullName *string
	Phone    *string
	Address  *string
	Role     *enums.Role
	Status   *enums.AccountStatus
}

// LoginRequest accepts a username or an email as the identifier.
type LoginRequest struct {
	Identifier string
	Password   string
}

// LoginResponse carries the signed access token and the account it belongs to.
type LoginResponse struct {
	AccessToken string      `json:"accessToken"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	Account     *AccountDTO `json:"account"`
}

package user

import "time"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Level     string    `json:"level,omitempty"`
	Role      string    `json:"role"`
	Token     string    `json:"token,omitempty"` // some backend responses embed the token here
	CreatedAt time.Time `json:"createdAt"`
}

type Admin struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginRequest struct {
	Phone    string `json:"phone" validate:"required,e164"`
	Password string `json:"password" validate:"required,min=6"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Phone    string `json:"phone" validate:"required,e164"`
	Password string `json:"password" validate:"required,min=6"`
	Level    string `json:"level" validate:"omitempty,max=40"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// partial update, nil means leave unchanged
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=80"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Level *string `json:"level,omitempty" validate:"omitempty,max=40"`
}

// admin-side user management

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Phone    string `json:"phone" validate:"required,e164"`
	Password string `json:"password" validate:"required,min=6"`
	Level    string `json:"level" validate:"omitempty,max=40"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=80"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,e164"`
	Level *string `json:"level,omitempty" validate:"omitempty,max=40"`
	Role  *string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

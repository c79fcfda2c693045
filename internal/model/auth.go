package model

// Auth request types. Form tags let the HTML pages bind the same structs.
type SignUpRequest struct {
	Name     string `json:"name" form:"name" binding:"required,min=1,max=255"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=72"`
}

type SignInRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

type EmailRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" form:"token" binding:"required"`
	NewPassword string `json:"new_password" form:"new_password" binding:"required,min=8,max=72"`
}

// AuthResult is returned by sign-up and sign-in. Token is the bearer value
// handed to the client; only its hash is stored.
type AuthResult struct {
	Token   string   `json:"token"`
	Session *Session `json:"session"`
	User    *User    `json:"user"`
}

package user

import "time"

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterInput is the registration form. Password2 must repeat Password1.
type RegisterInput struct {
	Username  string `json:"username" form:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password1 string `json:"password1" form:"password1" validate:"required,min=8"`
	Password2 string `json:"password2" form:"password2" validate:"required,eqfield=Password1"`
}

// Session is a signed token handed to the browser as a cookie.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Claims are the identity fields carried by a session token.
type Claims struct {
	UserID   int
	Username string
	Email    string
}

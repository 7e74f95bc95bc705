package model

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// User represents the signed-in user as described by an accepted id token
type User struct {
	UserName string        `json:"user_name"`
	Profile  jwt.MapClaims `json:"profile"`
}

// Claim returns a string claim from the profile, or "" when absent or not a string
func (u *User) Claim(name string) string {
	if u == nil || u.Profile == nil {
		return ""
	}
	s, _ := u.Profile[name].(string)
	return s
}

// UPN returns the user principal name claim
func (u *User) UPN() string {
	return u.Claim("upn")
}

// Domain returns the part of the UPN after the last '@', or "" when there is none
func (u *User) Domain() string {
	upn := u.UPN()
	i := strings.LastIndex(upn, "@")
	if i < 0 {
		return ""
	}
	return upn[i+1:]
}

// UserResult is delivered to GetUser handlers: exactly one of User or Err is set
type UserResult struct {
	User *User
	Err  error
}

// UserHandler receives the outcome of a user lookup
type UserHandler func(UserResult)

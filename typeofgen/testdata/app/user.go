package app

import "github.com/broady/typeof"

// User is a stored account.
//
//typeof:Table("users")
type User struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty"`

	//typeof:Bad(
	Age int `json:"age"`

	password string
}

var UserInfo = typeof.Of[User]()

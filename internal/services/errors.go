package services

import "errors"

// ErrUserExists is returned when registration collides with an existing
// email or username. Both the fast-path check and the database uniqueness
// constraint surface as this error.
var ErrUserExists = errors.New("user already exists")

// ErrInvalidCredentials is returned for a failed login. Unknown email and
// wrong password are deliberately indistinguishable so the API does not
// leak which emails are registered.
var ErrInvalidCredentials = errors.New("invalid credentials")

package models

import "github.com/pkg/errors"

var (
	ErrUnrecognized = errors.New("unrecognized file format")
	ErrNotSupported = errors.New("not yet supported")
	ErrMalformed    = errors.New("malformed file (evil or obfuscated file?)")
	ErrUnresolved   = errors.New("binary model is unresolved")
	ErrBadConfig    = errors.New("bad configuration")
)

package diagram

import "errors"

var (
	ErrAssetMissing  = errors.New("diagram asset missing")
	ErrAssetDecode   = errors.New("diagram asset undecodable")
	ErrUnknownPlayer = errors.New("movement references unknown player")
	ErrInvalidStyle  = errors.New("invalid diagram style")
)

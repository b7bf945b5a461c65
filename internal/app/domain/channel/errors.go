package channel

import "errors"

var (
	ErrNickEmpty   = errors.New("bad nick")
	ErrNickTooLong = errors.New("nick too long")
	ErrNickInvalid = errors.New("nick contains invalid characters")
	ErrNickInUse   = errors.New("nick in use")
	ErrClosed      = errors.New("channel closed")
)

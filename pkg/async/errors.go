package async

import "errors"

var (
	ErrTimeout   = errors.New("async: operation timed out")
	ErrNoFutures = errors.New("async: no futures provided")
	ErrRejected  = errors.New("async: future rejected without error")
)

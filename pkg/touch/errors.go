package touch

import "errors"

// ErrUnknownNotification indicates Dispatch received a notification kind it cannot route.
var ErrUnknownNotification = errors.New("unknown touch notification kind")

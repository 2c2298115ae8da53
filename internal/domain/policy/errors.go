package policy

import "errors"

var ErrInvalidShiftTime = errors.New("shift time must be in HH:MM format")

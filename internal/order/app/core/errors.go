package core

import "errors"

var ErrParseCmd = errors.New("cannot parse arguments")

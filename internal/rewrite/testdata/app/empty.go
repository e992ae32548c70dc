package app

import "github.com/broady/typeof"

var Untyped = typeof.Of()

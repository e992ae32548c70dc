package app

import "github.com/broady/typeof"

type Either = typeof.Or[Foo, BarBaz]

var EitherInfo = typeof.Of[Either]()

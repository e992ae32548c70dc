package app

import . "github.com/broady/typeof"

var DotInfo = Of[Foo]()

package app

import (
	"github.com/broady/typeof"
	ti "github.com/broady/typeof/typeinfo"
)

var Named ti.Type = typeof.Of[BarBaz]()

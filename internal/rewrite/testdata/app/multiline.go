package app

import "github.com/broady/typeof"

var Multi = typeof.Of[
	BarBaz,
]()

func After() int { return len(Multi.Properties) }

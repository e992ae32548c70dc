//go:build extra

package tagged

import "github.com/broady/typeof"

var ExtraInfo = typeof.Of[Point]()

package tagged

import "github.com/broady/typeof"

type Point struct {
	X, Y int
}

var PointInfo = typeof.Of[Point]()

package app

import (
	"fmt"

	"github.com/broady/typeof"
)

var FooInfo = typeof.Of[Foo]()

func Both() string {
	return fmt.Sprint(typeof.Of[typeof.And[Foo, BarBaz]]())
}

package clash

import "github.com/broady/typeof"

var typeinfo = "shadowed"

type Foo struct {
	Foo string
}

var Info = typeof.Of[Foo]()

func Name() string { return typeinfo }

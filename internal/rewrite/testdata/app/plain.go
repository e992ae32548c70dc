package app

// Foo has a single field.
type Foo struct {
	Foo string
}

type BarBaz struct {
	Bar func()
	Baz int64
}

// Package shapes contains types for the source resolver tests.
package shapes

import (
	"math/big"
	"time"

	"github.com/broady/typeof"
)

// Foo has a single member.
type Foo struct {
	Foo string
}

// FooBar has a read-only and an optional member.
type FooBar struct {
	Foo string `typeof:"readonly"`
	Bar *int   `json:"bar,omitempty"`
}

// BarBaz shares Bar with FooBar.
type BarBaz struct {
	Bar func(x int) int
	Baz *big.Int
}

// Both is the intersection of FooBar and BarBaz.
type Both = typeof.And[FooBar, BarBaz]

// Either is the union of FooBar and BarBaz.
type Either = typeof.Or[FooBar, BarBaz]

// AnyFoo collapses.
type AnyFoo = typeof.And[Foo, any]

//typeof:Table("users")
//typeof:Cached
type User struct {
	//typeof:Column("user_name", 64)
	Name    string `validate:"required,max=64"`
	Email   string `json:"email,omitempty" validate:"email"`
	Age     int    //typeof:Min(0)
	Home    Address
	Tags    []string
	Meta    map[string]any
	Extra   any
	Created time.Time `json:"-"`
	secret  string
	Invalid string //typeof:Bad(
}

// Address is nested in User.
type Address struct {
	City string `json:"city"`
}

// Base is embedded.
type Base struct {
	ID      int64 `typeof:"readonly"`
	Version int
}

// Audit is embedded next to Base.
type Audit struct {
	Version int
	By      string
}

// Record promotes fields from Base and Audit; Version is ambiguous.
type Record struct {
	Base
	*Audit
	Name string
	ID   string
}

// Node is recursive.
type Node struct {
	Value int
	Next  *Node
}

// Shape is an interface.
type Shape interface {
	//typeof:Unit("cm2")
	Area() float64
	Perimeter() float64
}

// Page is generic.
type Page[T any] struct {
	Items []T
	Next  string
}

// Anything is a named empty interface.
type Anything interface{}

// Misc covers the remaining categories.
type Misc struct {
	Ch     chan int
	Flag   bool
	Anon   struct{ X int }
	Ptr    **string
	Bytes  []byte
	Arr    [4]int
	Fn     func()
	Big    big.Int
	Shaped Shape
	Alias  Both
}

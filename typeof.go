// Package typeof provides compile-time type descriptors.
//
// Calls to Of are replaced with a typeinfo.Type literal by the typeof tool
// before the program is compiled:
//
//	type User struct {
//		//typeof:Column("email")
//		Email string `json:"email,omitempty"`
//		ID    int64  `typeof:"readonly"`
//	}
//
//	var userType = typeof.Of[User]()
//
// Build with "typeof build" (or "typeof test", "typeof vet") instead of the go
// command. The tool rewrites each file that calls Of and hands the rewritten
// copies to the go command through -overlay, so the source tree is never modified.
//
// Intersections and unions of types are written with the And and Or markers:
//
//	typeof.Of[typeof.And[Named, Timestamped]]() // members of both
//	typeof.Of[typeof.Or[Cat, Dog]]()            // members common to both
package typeof

import "github.com/broady/typeof/typeinfo"

const (
	// PackagePath is the import path of this package.
	PackagePath = "github.com/broady/typeof"

	// FuncName is the name of the function whose calls are rewritten.
	FuncName = "Of"

	// SentinelFile is the base name of the file declaring FuncName.
	SentinelFile = "typeof.go"
)

// Of returns the descriptor of T.
//
// Of has no implementation. Every call is replaced at build time; a call that
// reaches run time panics.
func Of[T any]() typeinfo.Type {
	panic(`typeof: Of[T] called without rewriting; build with "typeof build"`)
}

// And is the intersection of A and B. Its descriptor has the members of both.
// And nests: And[A, And[B, C]].
type And[A, B any] struct{}

// Or is the union of A and B. Its descriptor has only the members present in
// both. Or nests: Or[A, Or[B, C]].
type Or[A, B any] struct{}

package describe

import (
	"github.com/broady/typeof/internal/typegraph"
	"github.com/broady/typeof/typeinfo"
)

// Modifiers reports the read-only and optional markers of d. A nil
// declaration has neither.
func Modifiers(d *typegraph.Declaration) typeinfo.Modifiers {
	if d == nil {
		return typeinfo.Modifiers{}
	}
	return typeinfo.Modifiers{
		Readonly: d.HasModifier(typegraph.ReadonlyKeyword),
		Optional: d.Question,
	}
}

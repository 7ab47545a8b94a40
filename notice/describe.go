package notice

import (
	"fmt"
	"strings"

	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
)

// Describe renders a one-line, human readable summary of n.
func Describe(n Notice) string {
	switch v := n.(type) {
	case nil:
		return "<nil>"
	case *ContentsChanged:
		return "ContentsChanged"
	case *EditTargetChanged:
		return "EditTargetChanged"
	case *ObjectsChanged:
		var b strings.Builder
		fmt.Fprintf(&b, "ObjectsChanged resynced=%s info=%s",
			joinPaths(v.resynced), joinPaths(v.infoOnly))
		for _, p := range v.infoOnly {
			if fields := v.ChangedFields(p); len(fields) > 0 {
				fmt.Fprintf(&b, " %s{%s}", p, strings.Join(fields, ","))
			}
		}
		return b.String()
	case *LayerMutingChanged:
		return fmt.Sprintf("LayerMutingChanged muted=[%s] unmuted=[%s]",
			strings.Join(v.muted, ","), strings.Join(v.unmuted, ","))
	case *HierarchyChanged:
		return fmt.Sprintf("HierarchyChanged added=%s removed=%s modified=%s",
			joinPaths(v.AddedPaths()), joinPaths(v.RemovedPaths()), joinPaths(v.ModifiedPaths()))
	default:
		return v.TypeID()
	}
}

func joinPaths(paths []scenepath.Path) string {
	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = p.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

package groupdist

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags a table with the domain of its group labels.
type Kind int

const (
	// Ordinal groups are integer timepoints relative to the transplant.
	Ordinal Kind = iota + 1
	// Nominal groups are category names, e.g. "control".
	Nominal
)

func (k Kind) String() string {
	switch k {
	case Ordinal:
		return "Ordinal"
	case Nominal:
		return "Nominal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// SemanticType is the artifact type marker for tables of this kind.
func (k Kind) SemanticType() string { return "GroupDist[" + k.String() + "]" }

// ParseKind accepts "ordinal", "nominal" or a full semantic type marker.
func ParseKind(s string) (Kind, error) {
	v := strings.TrimSpace(s)
	if strings.HasPrefix(v, "GroupDist[") && strings.HasSuffix(v, "]") {
		v = v[len("GroupDist[") : len(v)-1]
	}
	switch strings.ToLower(v) {
	case "ordinal":
		return Ordinal, nil
	case "nominal":
		return Nominal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Label is a group label tagged with its kind.
type Label struct {
	kind Kind
	ord  int64
	name string
}

// OrdinalGroup labels an integer timepoint.
func OrdinalGroup(t int64) Label { return Label{kind: Ordinal, ord: t} }

// NominalGroup labels a category.
func NominalGroup(name string) Label { return Label{kind: Nominal, name: name} }

// Kind returns the label's tag.
func (l Label) Kind() Kind { return l.kind }

func (l Label) String() string {
	if l.kind == Ordinal {
		return strconv.FormatInt(l.ord, 10)
	}
	return l.name
}

// less orders ordinal labels numerically and nominal labels lexically.
func (l Label) less(o Label) bool {
	if l.kind != o.kind {
		return l.kind < o.kind
	}
	if l.kind == Ordinal {
		return l.ord < o.ord
	}
	return l.name < o.name
}

func parseLabel(k Kind, s string) (Label, error) {
	switch k {
	case Ordinal:
		t, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Label{}, fmt.Errorf("group %q is not an integer timepoint", s)
		}
		return OrdinalGroup(t), nil
	case Nominal:
		if strings.TrimSpace(s) == "" {
			return Label{}, fmt.Errorf("empty nominal group")
		}
		return NominalGroup(s), nil
	default:
		return Label{}, fmt.Errorf("%w: %v", ErrUnknownKind, k)
	}
}

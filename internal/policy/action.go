package policy

import "fmt"

// Code is a raw policy-table entry.
type Code = uint8

const (
	CodeHit            Code = 0
	CodeStand          Code = 1
	CodeDouble         Code = 2
	CodeStandAlias     Code = 3
	CodeSplitOrHit     Code = 30
	CodeSplitOrStand   Code = 31
	CodeSplitOrDouble  Code = 32
	splitCodeThreshold Code = 30
)

// ValidCode reports whether c is one of the recognised policy codes.
func ValidCode(c Code) bool {
	switch c {
	case CodeHit, CodeStand, CodeDouble, CodeStandAlias,
		CodeSplitOrHit, CodeSplitOrStand, CodeSplitOrDouble:
		return true
	}
	return false
}

// Action is a player decision.
type Action uint8

const (
	Hit Action = iota
	Stand
	Double
	Split
)

func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	case Double:
		return "double"
	case Split:
		return "split"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Decode turns a raw code into an action. Codes 30..32 mean split when the
// hand is a pair and fall back to hit/stand/double otherwise.
func Decode(code Code, pair bool) Action {
	if code >= splitCodeThreshold {
		if pair {
			return Split
		}
		switch code {
		case CodeSplitOrStand:
			return Stand
		case CodeSplitOrDouble:
			return Double
		default:
			return Hit
		}
	}
	switch code {
	case CodeDouble:
		return Double
	case CodeStand, CodeStandAlias:
		return Stand
	default:
		return Hit
	}
}

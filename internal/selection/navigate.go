package selection

// Area is the list a focus belongs to.
type Area int

const (
	AreaNone Area = iota
	AreaHistory
	AreaFooter
)

func (a Area) String() string {
	switch a {
	case AreaHistory:
		return "history"
	case AreaFooter:
		return "footer"
	default:
		return "none"
	}
}

// Focus is the cursor: one history item, one footer action, or nothing.
type Focus struct {
	Area Area
	ID   string
}

// IsZero reports whether nothing is focused.
func (f Focus) IsZero() bool { return f.Area == AreaNone }

// Direction is a keyboard navigation move.
type Direction int

const (
	First Direction = iota
	Last
	Next
	Previous
)

func (d Direction) String() string {
	switch d {
	case First:
		return "first"
	case Last:
		return "last"
	case Next:
		return "next"
	case Previous:
		return "previous"
	default:
		return "unknown"
	}
}

// Step computes where the cursor goes from cur when moving in dir over the
// visible history IDs followed by the visible footer IDs. ok is false when
// there is nowhere to go; the cursor should then stay put.
//
// Forward moves spill from the end of history into the footer and stop at
// the end of the footer. Backward moves spill from the start of the footer
// into the end of history and stop at the start of history.
func Step(cur Focus, dir Direction, history, footer []string) (next Focus, ok bool) {
	switch dir {
	case First:
		if len(history) > 0 {
			return historyAt(history, 0), true
		}
		if len(footer) > 0 {
			return footerAt(footer, 0), true
		}

	case Next:
		switch cur.Area {
		case AreaHistory:
			i := indexOf(history, cur.ID)
			if i < 0 {
				break
			}
			if i+1 < len(history) {
				return historyAt(history, i+1), true
			}
			if len(footer) > 0 {
				return footerAt(footer, 0), true
			}
		case AreaFooter:
			if i := indexOf(footer, cur.ID); i >= 0 && i+1 < len(footer) {
				return footerAt(footer, i+1), true
			}
		default:
			if len(footer) > 0 {
				return footerAt(footer, 0), true
			}
		}

	case Previous:
		switch cur.Area {
		case AreaHistory:
			if i := indexOf(history, cur.ID); i > 0 {
				return historyAt(history, i-1), true
			}
		case AreaFooter:
			i := indexOf(footer, cur.ID)
			if i > 0 {
				return footerAt(footer, i-1), true
			}
			if i == 0 && len(history) > 0 {
				return historyAt(history, len(history)-1), true
			}
		}

	case Last:
		switch cur.Area {
		case AreaHistory:
			i := indexOf(history, cur.ID)
			if i >= 0 && i == len(history)-1 && len(footer) > 0 {
				return footerAt(footer, 0), true
			}
			if len(history) > 0 {
				return historyAt(history, len(history)-1), true
			}
		default:
			if len(footer) > 0 {
				return footerAt(footer, len(footer)-1), true
			}
		}
	}
	return cur, false
}

func historyAt(ids []string, i int) Focus { return Focus{Area: AreaHistory, ID: ids[i]} }
func footerAt(ids []string, i int) Focus  { return Focus{Area: AreaFooter, ID: ids[i]} }

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

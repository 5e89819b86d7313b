package topic

// LinkResult is the outcome of linking one ordered pair. For the to-one and
// to-many primitives From is the root and To the target, whatever the edge
// direction; for chains it is the edge direction.
type LinkResult struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Found bool   `json:"found"`
}

// LinkReport collects the per-pair results of one link call, in call order.
type LinkReport []LinkResult

// Found returns the pairs that produced an edge.
func (r LinkReport) Found() LinkReport {
	return r.filter(true)
}

// Missing returns the pairs skipped because an endpoint did not exist.
func (r LinkReport) Missing() LinkReport {
	return r.filter(false)
}

// AllFound reports whether every pair was linked.
func (r LinkReport) AllFound() bool {
	for _, res := range r {
		if !res.Found {
			return false
		}
	}
	return true
}

// Counts returns the number of linked and skipped pairs.
func (r LinkReport) Counts() (found, missing int) {
	for _, res := range r {
		if res.Found {
			found++
		} else {
			missing++
		}
	}
	return found, missing
}

func (r LinkReport) filter(found bool) LinkReport {
	out := make(LinkReport, 0, len(r))
	for _, res := range r {
		if res.Found == found {
			out = append(out, res)
		}
	}
	return out
}

// DuplicateName is a name carried by more than one node.
type DuplicateName struct {
	Name        string `json:"name"`
	Occurrences int64  `json:"occurrences"`
}

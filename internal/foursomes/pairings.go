package foursomes

// Pairings is a symmetric "has shared a cart with" relation keyed by player
// id. The zero value is empty and ready to read; Add requires a non-nil map.
type Pairings map[string]map[string]struct{}

// Add records that a and b shared a cart.
func (p Pairings) Add(a, b string) {
	if a == b {
		return
	}
	p.link(a, b)
	p.link(b, a)
}

func (p Pairings) link(from, to string) {
	set, ok := p[from]
	if !ok {
		set = make(map[string]struct{})
		p[from] = set
	}
	set[to] = struct{}{}
}

// Has reports whether a and b have shared a cart.
func (p Pairings) Has(a, b string) bool {
	_, ok := p[a][b]
	return ok
}

// Clone returns an independent, non-nil copy.
func (p Pairings) Clone() Pairings {
	out := make(Pairings, len(p))
	for a, set := range p {
		for b := range set {
			out.link(a, b)
		}
	}
	return out
}

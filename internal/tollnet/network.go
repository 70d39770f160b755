// Package tollnet holds the toll network reference: the static table of known
// toll gates, their order along the corridor, spacing and posted limits.
package tollnet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Veraticus/tollgate-risk/internal/model"
)

// Validation errors.
var (
	ErrDuplicateGate  = errors.New("duplicate toll gate")
	ErrDuplicateOrder = errors.New("duplicate route order")
	ErrInvalidGate    = errors.New("invalid toll gate")
)

// minPartialKey is the shortest fragment accepted for a partial name match.
const minPartialKey = 5

// Network is an immutable, indexed view over a toll gate table.
type Network struct {
	byKey   map[string]int
	byOrder map[int]int
	gates   []model.TollGateInfo
	keys    []gateKeyEntry
}

type gateKeyEntry struct {
	key  string
	gate int
}

// New indexes the gates. Names must be unique and route orders must be
// unique so adjacency is a total order along the corridor.
func New(gates []model.TollGateInfo) (*Network, error) {
	n := &Network{
		byKey:   make(map[string]int, len(gates)),
		byOrder: make(map[int]int, len(gates)),
		gates:   make([]model.TollGateInfo, len(gates)),
	}
	copy(n.gates, gates)
	sort.SliceStable(n.gates, func(i, j int) bool {
		return n.gates[i].RouteOrder < n.gates[j].RouteOrder
	})

	for i, g := range n.gates {
		if strings.TrimSpace(g.Name) == "" {
			return nil, fmt.Errorf("%w: gate at route order %d has no name", ErrInvalidGate, g.RouteOrder)
		}
		if g.SpeedLimitKmh <= 0 || g.DistanceToNextKm < 0 {
			return nil, fmt.Errorf("%w: %s has a non-positive limit or negative distance", ErrInvalidGate, g.Name)
		}
		if _, dup := n.byOrder[g.RouteOrder]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateOrder, g.RouteOrder)
		}
		n.byOrder[g.RouteOrder] = i

		names := append([]string{g.Name}, g.Aliases...)
		for _, name := range names {
			k := gateKey(name)
			if k == "" {
				continue
			}
			if other, dup := n.byKey[k]; dup && other != i {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateGate, name)
			}
			n.byKey[k] = i
			n.keys = append(n.keys, gateKeyEntry{key: k, gate: i})
		}
	}

	// Longest keys first so containment prefers the most specific gate.
	sort.SliceStable(n.keys, func(i, j int) bool {
		return len(n.keys[i].key) > len(n.keys[j].key)
	})

	return n, nil
}

// Gates returns the table ordered by route order.
func (n *Network) Gates() []model.TollGateInfo {
	out := make([]model.TollGateInfo, len(n.gates))
	copy(out, n.gates)
	return out
}

// Lookup returns the gate with the given canonical name.
func (n *Network) Lookup(name string) (model.TollGateInfo, bool) {
	i, ok := n.byKey[gateKey(name)]
	if !ok || n.gates[i].Name != name {
		return model.TollGateInfo{}, false
	}
	return n.gates[i], true
}

// Resolve maps free-form gate text onto a canonical gate name, or
// model.UnknownGate when nothing matches unambiguously.
func (n *Network) Resolve(name string) string {
	k := gateKey(name)
	if k == "" {
		return model.UnknownGate
	}
	if i, ok := n.byKey[k]; ok {
		return n.gates[i].Name
	}

	// "Salik - Al Barsha Gate" style labels wrap the gate name.
	for _, e := range n.keys {
		if strings.Contains(k, e.key) {
			return n.gates[e.gate].Name
		}
	}

	// "Garhoud" style short forms abbreviate it; only accept a unique hit.
	if len(k) >= minPartialKey {
		found := -1
		for _, e := range n.keys {
			if !strings.Contains(e.key, k) {
				continue
			}
			if found >= 0 && found != e.gate {
				return model.UnknownGate
			}
			found = e.gate
		}
		if found >= 0 {
			return n.gates[found].Name
		}
	}

	return model.UnknownGate
}

// FindIn spots a gate name anywhere inside a line of free text.
func (n *Network) FindIn(line string) (string, bool) {
	k := gateKey(line)
	for _, e := range n.keys {
		if strings.Contains(k, e.key) {
			return n.gates[e.gate].Name, true
		}
	}
	return "", false
}

// Kind returns the road character of a gate, or "" for unknown gates.
func (n *Network) Kind(name string) model.GateKind {
	g, ok := n.Lookup(name)
	if !ok {
		return ""
	}
	return g.Kind
}

// Adjacent reports whether two gates are consecutive along the corridor.
// The distance is the spacing between them and the limit is the stricter of
// their posted limits.
func (n *Network) Adjacent(a, b string) (distanceKm, limitKmh float64, ok bool) {
	ga, okA := n.Lookup(a)
	gb, okB := n.Lookup(b)
	if !okA || !okB {
		return 0, 0, false
	}

	lower, upper := ga, gb
	if lower.RouteOrder > upper.RouteOrder {
		lower, upper = upper, lower
	}
	if upper.RouteOrder-lower.RouteOrder != 1 {
		return 0, 0, false
	}

	return lower.DistanceToNextKm, min(ga.SpeedLimitKmh, gb.SpeedLimitKmh), true
}

// gateKey lowercases and keeps only letters and digits.
func gateKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

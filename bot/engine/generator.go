package engine

import (
	"math/rand/v2"
	"net/netip"
	"strconv"
	"strings"
)

// Item is one unit of work: an address to submit and whether it was generated as malicious-looking.
type Item struct {
	Address   string
	Malicious bool
}

// AddressSource produces work items for a traffic mode.
type AddressSource interface {
	Generate(mode string, ipv4Ratio float64) (Item, error)
}

// Rand is the subset of math/rand/v2 the generator draws from.
type Rand interface {
	Float64() float64
	IntN(n int) int
	Uint64() uint64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Uint64() uint64   { return rand.Uint64() }

// Pattern renders one malicious-looking address.
type Pattern func(r Rand) string

// Patterns holds the malicious address patterns per family. One pattern is picked uniformly per address.
type Patterns struct {
	IPv4 []Pattern
	IPv6 []Pattern
}

// DefaultPatterns returns the private-range and documentation-prefix patterns.
func DefaultPatterns() Patterns {
	return Patterns{
		IPv4: []Pattern{
			PrivateTenPattern,
			PrivateHomePattern,
			DistinctOctetsPattern,
		},
		IPv6: []Pattern{
			DocumentationV6Pattern,
		},
	}
}

// PrivateTenPattern renders 10.a.b.c.
func PrivateTenPattern(r Rand) string {
	return dottedQuad(10, r.IntN(256), r.IntN(256), r.IntN(256))
}

// PrivateHomePattern renders 192.168.[0..10].d.
func PrivateHomePattern(r Rand) string {
	return dottedQuad(192, 168, r.IntN(11), r.IntN(256))
}

// DistinctOctetsPattern renders four pairwise distinct random octets.
func DistinctOctetsPattern(r Rand) string {
	var octets [4]int

	seen := make(map[int]struct{}, 4)

	for i := 0; i < len(octets); {
		o := r.IntN(256)
		if _, dup := seen[o]; dup {
			continue
		}

		seen[o] = struct{}{}
		octets[i] = o
		i++
	}

	return dottedQuad(octets[0], octets[1], octets[2], octets[3])
}

// DocumentationV6Pattern renders 2001:db8::<0..9999>:<0..9999>.
func DocumentationV6Pattern(r Rand) string {
	return "2001:db8::" + strconv.Itoa(r.IntN(10000)) + ":" + strconv.Itoa(r.IntN(10000))
}

// Generator is the default AddressSource.
type Generator struct {
	modes    ModeTable
	patterns Patterns
	rnd      Rand
}

// NewGenerator returns a Generator over the given mode table using the math/rand/v2 global source.
func NewGenerator(modes ModeTable) *Generator {
	return &Generator{
		modes:    modes,
		patterns: DefaultPatterns(),
		rnd:      globalRand{},
	}
}

// WithPatterns replaces the malicious address patterns. Families with no pattern fall back to the defaults.
func (g *Generator) WithPatterns(p Patterns) *Generator {
	def := DefaultPatterns()

	if len(p.IPv4) == 0 {
		p.IPv4 = def.IPv4
	}

	if len(p.IPv6) == 0 {
		p.IPv6 = def.IPv6
	}

	g.patterns = p

	return g
}

// WithRand makes the generator draw from r. A *rand.Rand is not safe for concurrent use, so the generator must then
// be owned by a single goroutine.
func (g *Generator) WithRand(r *rand.Rand) *Generator {
	if r != nil {
		g.rnd = r
	}

	return g
}

// Generate implements AddressSource.
func (g *Generator) Generate(mode string, ipv4Ratio float64) (Item, error) {
	p, err := g.modes.Probability(mode)
	if err != nil {
		return Item{}, err
	}

	malicious := g.rnd.Float64() < p
	v4 := g.rnd.Float64() < ipv4Ratio

	var addr string

	switch {
	case malicious && v4:
		addr = g.pick(g.patterns.IPv4)
	case malicious:
		addr = g.pick(g.patterns.IPv6)
	case v4:
		addr = dottedQuad(g.rnd.IntN(256), g.rnd.IntN(256), g.rnd.IntN(256), g.rnd.IntN(256))
	default:
		addr = g.randomV6()
	}

	return Item{Address: addr, Malicious: malicious}, nil
}

func (g *Generator) pick(patterns []Pattern) string {
	return patterns[g.rnd.IntN(len(patterns))](g.rnd)
}

func (g *Generator) randomV6() string {
	var b [16]byte

	hi, lo := g.rnd.Uint64(), g.rnd.Uint64()
	for i := range 8 {
		b[i] = byte(hi >> (56 - 8*i))
		b[8+i] = byte(lo >> (56 - 8*i))
	}

	return netip.AddrFrom16(b).String()
}

func dottedQuad(a, b, c, d int) string {
	var sb strings.Builder

	sb.Grow(15)
	sb.WriteString(strconv.Itoa(a))
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(b))
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(c))
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(d))

	return sb.String()
}

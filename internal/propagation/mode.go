package propagation

import "strings"

// Mode is a bitmask of motion-update algorithms active for a particle.
//
// Each bit selects one elementary translational or rotational propagator.
// A particle may carry several bits at once (for example a virtual site that
// is dragged by the lattice fluid), but only the combinations enumerated in
// validCombinations are accepted at configuration time.
//
// Mode values are pure data: validity of a mask never depends on particle
// identity or on simulation state.
type Mode uint16

const (
	None                    Mode = 0
	TransSystemDefault      Mode = 1 << 0
	TransLangevin           Mode = 1 << 1
	TransVSRelative         Mode = 1 << 2
	TransLBMomentumExchange Mode = 1 << 3
	TransLBTracer           Mode = 1 << 4
	TransBrownian           Mode = 1 << 5
	TransStokesian          Mode = 1 << 6
	RotLangevin             Mode = 1 << 7
	RotVSRelative           Mode = 1 << 8
	RotBrownian             Mode = 1 << 9
	TransLangevinNPT        Mode = 1 << 10
)

// validCombinations is the closed set of legal multi-bit masks.
//
// The table is the single source of truth for the compatibility matrix:
// matching translation+rotation pairs of the same family, virtual-site
// translation paired with Langevin or virtual-site rotation (and the
// symmetric case), and lattice-fluid momentum exchange on a virtual site,
// optionally with a rotation bit.
var validCombinations = map[Mode]struct{}{
	TransLangevin | RotLangevin:                               {},
	TransVSRelative | RotVSRelative:                           {},
	TransBrownian | RotBrownian:                               {},
	TransVSRelative | RotLangevin:                             {},
	TransLangevin | RotVSRelative:                             {},
	TransLBMomentumExchange | TransVSRelative:                 {},
	TransLBMomentumExchange | TransVSRelative | RotLangevin:   {},
	TransLBMomentumExchange | TransVSRelative | RotVSRelative: {},
}

// IsValidCombination reports whether a propagation mask is legal.
//
// The zero mask and every single-bit mask are always legal; multi-bit masks
// must appear in the combination table. Pure and total: no side effects,
// defined for every possible mask value.
func IsValidCombination(m Mode) bool {
	if m == None {
		return true
	}
	if m&(m-1) == 0 {
		// exactly one trans or rot bit
		return true
	}
	_, ok := validCombinations[m]
	return ok
}

// Has reports whether every bit of q is set in m.
func (m Mode) Has(q Mode) bool {
	return m&q == q
}

var modeNames = []struct {
	bit  Mode
	name string
}{
	{TransSystemDefault, "trans_system_default"},
	{TransLangevin, "trans_langevin"},
	{TransVSRelative, "trans_vs_relative"},
	{TransLBMomentumExchange, "trans_lb_momentum_exchange"},
	{TransLBTracer, "trans_lb_tracer"},
	{TransBrownian, "trans_brownian"},
	{TransStokesian, "trans_stokesian"},
	{RotLangevin, "rot_langevin"},
	{RotVSRelative, "rot_vs_relative"},
	{RotBrownian, "rot_brownian"},
	{TransLangevinNPT, "trans_langevin_npt"},
}

// String renders the mask as a "|"-joined list of bit names, or "none".
func (m Mode) String() string {
	if m == None {
		return "none"
	}
	var parts []string
	for _, e := range modeNames {
		if m&e.bit != 0 {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "invalid"
	}
	return strings.Join(parts, "|")
}

// Parse maps a bit name (as produced by String) back to its Mode bit.
// Used by the configuration loader; unknown names return (None, false).
func Parse(name string) (Mode, bool) {
	for _, e := range modeNames {
		if e.name == name {
			return e.bit, true
		}
	}
	return None, false
}

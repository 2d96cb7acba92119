package propagation

import "fmt"

// Scheme selects the top-level integration method for the whole system.
//
// Particles that carry TransSystemDefault in their propagation mask follow
// the default mask resolved from the active scheme (see DefaultFor).
type Scheme int

const (
	SteepestDescent Scheme = iota
	VelocityVerlet         // NVT velocity-Verlet
	NPTIsotropic
	BrownianDynamics
	StokesianDynamics
)

var schemeNames = map[Scheme]string{
	SteepestDescent:   "steepest_descent",
	VelocityVerlet:    "velocity_verlet",
	NPTIsotropic:      "npt_isotropic",
	BrownianDynamics:  "brownian",
	StokesianDynamics: "stokesian",
}

func (s Scheme) String() string {
	if name, ok := schemeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// ParseScheme maps a configuration string to a Scheme.
func ParseScheme(name string) (Scheme, error) {
	for s, n := range schemeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown integration scheme %q", name)
}

// DefaultFor resolves the implicit per-particle propagation mask for the
// active scheme. Rotational bits are only included when the feature set has
// rotational degrees of freedom enabled.
//
// Steepest descent has no propagator of its own and resolves to the
// velocity-Verlet default mask.
//
// Resolution is deterministic and idempotent: the result depends only on
// (scheme, rotation), never on particle state.
func DefaultFor(scheme Scheme, rotation bool) (Mode, error) {
	switch scheme {
	case SteepestDescent:
		fallthrough
	case VelocityVerlet:
		m := TransLangevin
		if rotation {
			m |= RotLangevin
		}
		return m, nil
	case NPTIsotropic:
		m := TransLangevinNPT
		if rotation {
			m |= RotLangevin
		}
		return m, nil
	case BrownianDynamics:
		m := TransBrownian
		if rotation {
			m |= RotBrownian
		}
		return m, nil
	case StokesianDynamics:
		return TransStokesian, nil
	default:
		return None, fmt.Errorf("unknown integration scheme %d", int(scheme))
	}
}

package sim

// Features is the compile-time feature set of the reference implementation,
// carried as runtime configuration. Resolvers and the step scheduler consult
// it instead of build tags so one binary can exercise every path.
type Features struct {
	Rotation        bool
	NPT             bool
	Stokesian       bool
	VirtualSites    bool
	BondConstraints bool
	Collision       bool
}

// AllFeatures enables everything. Used by tests and the CLI default.
func AllFeatures() Features {
	return Features{
		Rotation:        true,
		NPT:             true,
		Stokesian:       true,
		VirtualSites:    true,
		BondConstraints: true,
		Collision:       true,
	}
}

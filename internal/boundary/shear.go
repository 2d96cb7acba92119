// Package boundary implements the sheared-boundary protocol: a
// time-dependent boundary condition that shifts particle images crossing
// the box according to a shear offset function of simulation time.
package boundary

import (
	"math"

	"github.com/softmatterlab/mdsim/internal/sim"
)

// Protocol computes the shear state for a given simulation time.
type Protocol interface {
	PosOffset(t float64) float64
	ShearVelocity(t float64) float64
}

// Off is the inactive protocol.
type Off struct{}

func (Off) PosOffset(float64) float64 { return 0 }
func (Off) ShearVelocity(float64) float64 { return 0 }

// LinearShear shears the boundary at constant velocity.
type LinearShear struct {
	InitialOffset float64
	Velocity      float64
	TimeZero      float64
}

func (p LinearShear) PosOffset(t float64) float64 {
	return p.InitialOffset + (t-p.TimeZero)*p.Velocity
}

func (p LinearShear) ShearVelocity(float64) float64 { return p.Velocity }

// OscillatoryShear shears the boundary sinusoidally.
type OscillatoryShear struct {
	Amplitude float64
	Omega     float64
	TimeZero  float64
}

func (p OscillatoryShear) PosOffset(t float64) float64 {
	return p.Amplitude * math.Sin(p.Omega*(t-p.TimeZero))
}

func (p OscillatoryShear) ShearVelocity(t float64) float64 {
	return p.Amplitude * p.Omega * math.Cos(p.Omega*(t-p.TimeZero))
}

// ShearedBox carries the box geometry plus the currently active shear
// protocol and its parameters evaluated at the last UpdateParams call.
//
// The zero protocol (nil) means a plain periodic box; every kernel is then
// a no-op.
type ShearedBox struct {
	BoxL      [3]float64
	ShearDir  int // direction the image shift is applied in
	NormalDir int // direction whose boundary is sheared

	protocol      Protocol
	posOffset     float64
	shearVelocity float64
}

// Active reports whether a shear protocol is installed.
func (b *ShearedBox) Active() bool {
	if b == nil || b.protocol == nil {
		return false
	}
	_, off := b.protocol.(Off)
	return !off
}

// SetProtocol installs a shear protocol and evaluates it at time t.
func (b *ShearedBox) SetProtocol(p Protocol, t float64) {
	b.protocol = p
	b.UpdateParams(t)
}

// UnsetProtocol returns the box to plain periodic boundaries.
func (b *ShearedBox) UnsetProtocol() {
	b.protocol = nil
	b.posOffset = 0
	b.shearVelocity = 0
}

// UpdateParams re-evaluates the shear offset and velocity for the current
// simulation time. Called at the top of every step and after the loop.
func (b *ShearedBox) UpdateParams(t float64) {
	if !b.Active() {
		return
	}
	b.posOffset = b.protocol.PosOffset(t)
	b.shearVelocity = b.protocol.ShearVelocity(t)
}

// PosOffset returns the shear offset at the last UpdateParams call.
func (b *ShearedBox) PosOffset() float64 { return b.posOffset }

// ShearVelocity returns the shear velocity at the last UpdateParams call.
func (b *ShearedBox) ShearVelocity() float64 { return b.shearVelocity }

// Push folds a particle that crossed the sheared boundary back into the
// box, applying the image shift to its position and the shear velocity to
// its momentum.
func (b *ShearedBox) Push(p *sim.Particle) {
	if !b.Active() {
		return
	}
	n, s := b.NormalDir, b.ShearDir
	for p.Pos[n] >= b.BoxL[n] {
		p.Pos[n] -= b.BoxL[n]
		p.Pos[s] -= b.posOffset
		p.Vel[s] -= b.shearVelocity
		p.LEOffset -= b.posOffset
	}
	for p.Pos[n] < 0 {
		p.Pos[n] += b.BoxL[n]
		p.Pos[s] += b.posOffset
		p.Vel[s] += b.shearVelocity
		p.LEOffset += b.posOffset
	}
	// keep the shear coordinate inside the box
	if b.BoxL[s] > 0 {
		p.Pos[s] -= math.Floor(p.Pos[s]/b.BoxL[s]) * b.BoxL[s]
	}
}

// UpdateOffset advances the particle's accumulated shear offset by half a
// step of boundary motion. Runs after velocity finalization.
func (b *ShearedBox) UpdateOffset(p *sim.Particle, dt float64) {
	if !b.Active() {
		return
	}
	p.LEOffset -= 0.5 * b.shearVelocity * dt
}

// VerletListOffset is the extra travel the shear has induced since the
// spatial index was last rebuilt. It widens the effective skin check.
func (b *ShearedBox) VerletListOffset(offsetAtLastRebuild float64) float64 {
	if !b.Active() {
		return 0
	}
	return math.Abs(b.posOffset - offsetAtLastRebuild)
}

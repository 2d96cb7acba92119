package boundary

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/softmatterlab/mdsim/internal/sim"
)

func TestLinearShear_Offset(t *testing.T) {
	p := LinearShear{InitialOffset: 1.0, Velocity: 0.5}
	assert.Equal(t, 1.0, p.PosOffset(0))
	assert.Equal(t, 2.0, p.PosOffset(2))
	assert.Equal(t, 0.5, p.ShearVelocity(17))
}

func TestOscillatoryShear_Offset(t *testing.T) {
	p := OscillatoryShear{Amplitude: 2.0, Omega: math.Pi}
	assert.InDelta(t, 0.0, p.PosOffset(0), 1e-12)
	assert.InDelta(t, 2.0, p.PosOffset(0.5), 1e-12)
	assert.InDelta(t, 2.0*math.Pi, p.ShearVelocity(0), 1e-12)
}

func TestShearedBox_InactiveKernelsNoOp(t *testing.T) {
	b := &ShearedBox{BoxL: [3]float64{10, 10, 10}}
	assert.False(t, b.Active())

	p := sim.Particle{Pos: [3]float64{1, 12, 1}}
	before := p
	b.Push(&p)
	b.UpdateOffset(&p, 0.01)
	assert.Equal(t, before, p, "inactive box must not touch particles")
	assert.Zero(t, b.VerletListOffset(3.0))
}

func TestShearedBox_PushFoldsImage(t *testing.T) {
	b := &ShearedBox{
		BoxL:      [3]float64{10, 10, 10},
		ShearDir:  0,
		NormalDir: 1,
	}
	b.SetProtocol(LinearShear{Velocity: 1.0}, 2.0) // offset = 2
	assert.True(t, b.Active())

	p := sim.Particle{Pos: [3]float64{5, 11, 0}, Vel: [3]float64{0, 0, 0}}
	b.Push(&p)
	assert.InDelta(t, 1.0, p.Pos[1], 1e-12, "normal coordinate wraps")
	assert.InDelta(t, 3.0, p.Pos[0], 1e-12, "shear coordinate shifts")
	assert.InDelta(t, -1.0, p.Vel[0], 1e-12, "shear velocity applied")
	assert.InDelta(t, -2.0, p.LEOffset, 1e-12)
}

func TestShearedBox_VerletListOffset(t *testing.T) {
	b := &ShearedBox{BoxL: [3]float64{10, 10, 10}, NormalDir: 1}
	b.SetProtocol(LinearShear{Velocity: 0.5}, 4.0) // offset = 2
	assert.InDelta(t, 1.5, b.VerletListOffset(0.5), 1e-12)
}

func TestShearedBox_UnsetProtocol(t *testing.T) {
	b := &ShearedBox{BoxL: [3]float64{10, 10, 10}}
	b.SetProtocol(LinearShear{Velocity: 1}, 1)
	b.UnsetProtocol()
	assert.False(t, b.Active())
	assert.Zero(t, b.PosOffset())
}

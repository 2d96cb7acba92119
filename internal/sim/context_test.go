package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softmatterlab/mdsim/internal/propagation"
)

func TestNewContext_Defaults(t *testing.T) {
	ctx := NewContext(AllFeatures())

	assert.Equal(t, propagation.VelocityVerlet, ctx.Scheme())
	assert.Equal(t, propagation.TransLangevin|propagation.RotLangevin,
		ctx.DefaultPropagation())
	assert.Negative(t, ctx.TimeStep(), "time step should start unset")
	assert.True(t, ctx.RecalcForces(), "first run must compute forces")

	_, set := ctx.Skin()
	assert.False(t, set)
}

func TestContext_SetTimeStep(t *testing.T) {
	ctx := NewContext(AllFeatures())

	require.NoError(t, ctx.SetTimeStep(0.01))
	assert.Equal(t, 0.01, ctx.TimeStep())

	err := ctx.SetTimeStep(0)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "time_step", cfgErr.Field)

	assert.Error(t, ctx.SetTimeStep(-1))
}

func TestContext_SetScheme_RecomputesDefault(t *testing.T) {
	ctx := NewContext(AllFeatures())
	ctx.SetRecalcForces(false)

	require.NoError(t, ctx.SetScheme(propagation.BrownianDynamics))
	assert.Equal(t, propagation.TransBrownian|propagation.RotBrownian,
		ctx.DefaultPropagation())
	assert.True(t, ctx.RecalcForces(), "scheme change invalidates forces")
}

func TestContext_SetScheme_NoRotation(t *testing.T) {
	f := AllFeatures()
	f.Rotation = false
	ctx := NewContext(f)

	require.NoError(t, ctx.SetScheme(propagation.NPTIsotropic))
	assert.Equal(t, propagation.TransLangevinNPT, ctx.DefaultPropagation())
}

func TestContext_SetTime_InvalidatesForces(t *testing.T) {
	ctx := NewContext(AllFeatures())
	ctx.SetRecalcForces(false)

	ctx.SetTime(12.5)
	assert.Equal(t, 12.5, ctx.Time())
	assert.True(t, ctx.RecalcForces())

	ctx.AdvanceTime(0.5)
	assert.Equal(t, 13.0, ctx.Time())
}

func TestContext_SetSkin(t *testing.T) {
	ctx := NewContext(AllFeatures())

	require.NoError(t, ctx.SetSkin(0.4))
	skin, set := ctx.Skin()
	assert.Equal(t, 0.4, skin)
	assert.True(t, set)

	assert.Error(t, ctx.SetSkin(-0.1))
}

func TestParticle_SetPropagation(t *testing.T) {
	var p Particle

	require.NoError(t, p.SetPropagation(
		propagation.TransLangevin|propagation.RotLangevin))

	err := p.SetPropagation(propagation.TransLangevin | propagation.RotBrownian)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	// rejected combinations must not change the mask
	assert.Equal(t, propagation.TransLangevin|propagation.RotLangevin,
		p.Propagation)
}

func TestParticle_RelateTo(t *testing.T) {
	target := Particle{ID: 7}
	vs := Particle{ID: 9}

	vs.RelateTo(&target)
	assert.True(t, vs.Propagation.Has(propagation.TransVSRelative))
	assert.Equal(t, 7, vs.VSRelativeTo)
}

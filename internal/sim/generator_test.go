package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contributor"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
	"github.com/lmendia/DevHouseTycoon/internal/platform/tuning"
)

func TestGeneratedContractStaysInTunedRanges(t *testing.T) {
	tun := tuning.Default()
	gen := NewContractGenerator(NewRand(42), tun)

	for i := 0; i < 200; i++ {
		c := gen.Generate()

		require.NotEmpty(t, c.ID)
		require.NotEmpty(t, c.Client)
		assert.Equal(t, 1, c.CurrentSprint)

		assert.GreaterOrEqual(t, len(c.FullBacklog), tun.StoryCountMin)
		assert.LessOrEqual(t, len(c.FullBacklog), tun.StoryCountMax)
		assert.GreaterOrEqual(t, c.TotalSprints, tun.SprintsMin)
		assert.LessOrEqual(t, c.TotalSprints, tun.SprintsMax)
		assert.GreaterOrEqual(t, c.BasePayout, float64(tun.PayoutMin))
		assert.LessOrEqual(t, c.BasePayout, float64(tun.PayoutMax))

		for _, s := range c.FullBacklog {
			assert.Equal(t, work.KindStory, s.Kind)
			assert.Equal(t, work.StatusBacklog, s.Status)
			assert.GreaterOrEqual(t, s.PointsRequired, float64(tun.StoryPointsMin))
			assert.LessOrEqual(t, s.PointsRequired, float64(tun.StoryPointsMax))
		}
	}
}

func TestGeneratedStoryTitlesAvoidRepeats(t *testing.T) {
	gen := NewContractGenerator(NewRand(7), tuning.Default())

	for i := 0; i < 50; i++ {
		c := gen.Generate()
		seen := make(map[string]bool)
		for _, s := range c.FullBacklog {
			assert.False(t, seen[s.Title], "duplicate title %q in one contract", s.Title)
			seen[s.Title] = true
		}
	}
}

func TestGenerationIsDeterministicPerSeed(t *testing.T) {
	tun := tuning.Default()
	a := NewContractGenerator(NewRand(99), tun).Generate()
	b := NewContractGenerator(NewRand(99), tun).Generate()

	require.Equal(t, len(a.FullBacklog), len(b.FullBacklog))
	assert.Equal(t, a.Client, b.Client)
	assert.Equal(t, a.BasePayout, b.BasePayout)
	assert.Equal(t, a.TotalSprints, b.TotalSprints)
	for i := range a.FullBacklog {
		assert.Equal(t, a.FullBacklog[i].Title, b.FullBacklog[i].Title)
		assert.Equal(t, a.FullBacklog[i].PointsRequired, b.FullBacklog[i].PointsRequired)
	}
}

func TestBlockerGenerationStartsBlocking(t *testing.T) {
	gen := NewContractGenerator(NewRand(1), tuning.Default())
	b := gen.NewBlocker()

	require.Equal(t, work.KindBlocker, b.Kind)
	assert.True(t, b.IsActiveBlocker())
	assert.Zero(t, b.PointsRequired)
}

func TestCandidateBatchShapeAndUniqueness(t *testing.T) {
	gen := NewCandidateGenerator(NewRand(5))
	roster := []*contributor.Contributor{
		{ID: "C001", Name: "Sam", Archetype: contributor.ArchetypeGeneralist, Velocity: 1.0},
	}

	for i := 0; i < 100; i++ {
		batch := gen.Generate(roster)
		require.Len(t, batch, 3)

		names := make(map[string]bool)
		for _, cand := range batch {
			prof, ok := contributor.Profiles[cand.Archetype]
			require.True(t, ok, "unknown archetype %s", cand.Archetype)

			assert.GreaterOrEqual(t, cand.Velocity, prof.VelocityMin)
			assert.Less(t, cand.Velocity, prof.VelocityMax)
			assert.GreaterOrEqual(t, cand.HireCost, prof.HireCostMin)
			assert.Less(t, cand.HireCost, prof.HireCostMax)
			assert.Equal(t, prof.Passive, cand.Passive)

			assert.NotEqual(t, "Sam", cand.Name, "candidate name must not collide with the roster")
			assert.False(t, names[cand.Name], "duplicate name %q in one batch", cand.Name)
			names[cand.Name] = true
		}
	}
}

func TestCandidateNamesFallBackWhenPoolExhausted(t *testing.T) {
	gen := NewCandidateGenerator(NewRand(3))

	// Exhaust every name pool by hiring everyone.
	var roster []*contributor.Contributor
	for _, a := range contributor.Archetypes {
		for _, n := range contributor.Profiles[a].Names {
			roster = append(roster, &contributor.Contributor{ID: n, Name: n, Archetype: a})
		}
	}

	batch := gen.Generate(roster)
	require.Len(t, batch, 3)
	names := make(map[string]bool)
	for _, cand := range batch {
		assert.False(t, names[cand.Name], "duplicate fallback name %q", cand.Name)
		names[cand.Name] = true
	}
}

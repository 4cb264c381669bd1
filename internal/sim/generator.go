package sim

import (
	"fmt"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/contributor"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
	"github.com/lmendia/DevHouseTycoon/internal/events"
	"github.com/lmendia/DevHouseTycoon/internal/platform/tuning"
)

// storyTitles is the template pool for generated stories. Drawn without
// replacement per contract, falling back to replacement once exhausted.
var storyTitles = []string{
	"Implement login flow",
	"Redesign onboarding screens",
	"Migrate billing to new provider",
	"Add dark mode",
	"Build analytics dashboard",
	"Optimize cold-start time",
	"Localize for three markets",
	"Ship export to CSV",
	"Integrate push notifications",
	"Refactor settings storage",
	"Add two-factor auth",
	"Build admin moderation tools",
	"Polish empty states",
	"Instrument crash reporting",
	"Upgrade the payment SDK",
	"Write the public API docs",
	"Add offline support",
	"Rework search ranking",
	"Automate release pipeline",
	"Accessibility audit fixes",
}

// blockerTitles name the disruptive incidents the tick processor spawns.
var blockerTitles = []string{
	"Production outage",
	"Flaky CI pipeline",
	"Security disclosure triage",
	"Key dependency broke upstream",
	"Client demands a status call",
	"Staging database corrupted",
	"App store rejection",
	"Licensing review",
}

// clientNames flavor the generated contracts.
var clientNames = []string{
	"Norwind Logistics", "Papaya Health", "Bitfall Games", "Cormorant Bank",
	"Hexley Media", "Tundra Analytics", "Olivo Foods", "Quartz Mobility",
}

// ContractGenerator produces contracts and disruptive items from fixed
// template tables. Pure function of the injected Rand; no dependency on
// simulation state.
type ContractGenerator struct {
	rng Rand
	tun tuning.Tuning
}

// NewContractGenerator creates a generator over the given random source.
func NewContractGenerator(rng Rand, tun tuning.Tuning) *ContractGenerator {
	return &ContractGenerator{rng: rng, tun: tun}
}

// Generate draws a fresh contract. Every field is independently drawn; no
// field depends on another.
func (g *ContractGenerator) Generate() *contract.Contract {
	storyCount := between(g.rng, g.tun.StoryCountMin, g.tun.StoryCountMax)

	// Titles are drawn without replacement from the template pool; once the
	// pool runs dry we accept repeats rather than failing the draw.
	remaining := make([]string, len(storyTitles))
	copy(remaining, storyTitles)

	backlog := make([]*work.Item, 0, storyCount)
	for i := 0; i < storyCount; i++ {
		var title string
		if len(remaining) > 0 {
			idx := g.rng.Intn(len(remaining))
			title = remaining[idx]
			remaining = append(remaining[:idx], remaining[idx+1:]...)
		} else {
			title = storyTitles[g.rng.Intn(len(storyTitles))]
		}
		points := between(g.rng, g.tun.StoryPointsMin, g.tun.StoryPointsMax)
		backlog = append(backlog, work.NewStory(events.NewEventID(), title, float64(points)))
	}

	return &contract.Contract{
		ID:            events.NewEventID(),
		Client:        clientNames[g.rng.Intn(len(clientNames))],
		FullBacklog:   backlog,
		BasePayout:    float64(between(g.rng, g.tun.PayoutMin, g.tun.PayoutMax)),
		TotalSprints:  between(g.rng, g.tun.SprintsMin, g.tun.SprintsMax),
		CurrentSprint: 1,
	}
}

// NewBlocker materializes a disruptive item. It starts IN_PROGRESS: it is
// blocking from the moment it appears.
func (g *ContractGenerator) NewBlocker() *work.Item {
	title := blockerTitles[g.rng.Intn(len(blockerTitles))]
	return work.NewBlocker(events.NewEventID(), title)
}

// candidateBatchSize is how many hire offers a roll produces.
const candidateBatchSize = 3

// duplicateRetryCap bounds the best-effort archetype de-duplication within
// a batch. After this many failed draws a duplicate is accepted rather
// than looping forever.
const duplicateRetryCap = 10

// CandidateGenerator produces hire offers from the weighted archetype pool.
type CandidateGenerator struct {
	rng Rand
}

// NewCandidateGenerator creates a generator over the given random source.
func NewCandidateGenerator(rng Rand) *CandidateGenerator {
	return &CandidateGenerator{rng: rng}
}

// Generate returns exactly candidateBatchSize candidates. Archetypes are
// drawn from the weighted pool avoiding in-batch duplicates where possible;
// names are unique against the existing roster and the batch, falling back
// to a repeat once an archetype's name pool is exhausted.
func (g *CandidateGenerator) Generate(roster []*contributor.Contributor) []contributor.Candidate {
	taken := make(map[string]bool)
	for _, c := range roster {
		taken[c.Name] = true
	}

	batch := make([]contributor.Candidate, 0, candidateBatchSize)
	usedArchetypes := make(map[contributor.Archetype]bool)

	for i := 0; i < candidateBatchSize; i++ {
		arch := g.drawArchetype(usedArchetypes)
		usedArchetypes[arch] = true
		prof := contributor.Profiles[arch]

		name := g.drawName(prof.Names, taken)
		taken[name] = true

		batch = append(batch, contributor.Candidate{
			Contributor: contributor.Contributor{
				ID:        events.NewEventID(),
				Name:      name,
				Archetype: arch,
				Velocity:  betweenF(g.rng, prof.VelocityMin, prof.VelocityMax),
				Passive:   prof.Passive,
			},
			HireCost: betweenF(g.rng, prof.HireCostMin, prof.HireCostMax),
		})
	}
	return batch
}

// drawArchetype picks from the weighted pool, retrying up to
// duplicateRetryCap times to avoid an archetype already in the batch.
func (g *CandidateGenerator) drawArchetype(used map[contributor.Archetype]bool) contributor.Archetype {
	var totalWeight int
	for _, a := range contributor.Archetypes {
		totalWeight += contributor.Profiles[a].Weight
	}

	var pick contributor.Archetype
	for attempt := 0; attempt <= duplicateRetryCap; attempt++ {
		roll := g.rng.Intn(totalWeight)
		for _, a := range contributor.Archetypes {
			roll -= contributor.Profiles[a].Weight
			if roll < 0 {
				pick = a
				break
			}
		}
		if !used[pick] {
			return pick
		}
	}
	return pick // accept the duplicate
}

// drawName picks an unused name from the pool, falling back to a numbered
// repeat when the pool is exhausted.
func (g *CandidateGenerator) drawName(pool []string, taken map[string]bool) string {
	free := make([]string, 0, len(pool))
	for _, n := range pool {
		if !taken[n] {
			free = append(free, n)
		}
	}
	if len(free) > 0 {
		return free[g.rng.Intn(len(free))]
	}
	base := pool[g.rng.Intn(len(pool))]
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s %d", base, i)
		if !taken[name] {
			return name
		}
	}
}

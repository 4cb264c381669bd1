// Package contributor defines the developer entities that make up the studio roster.
// This package is PURE and must NOT import any infrastructure packages.
package contributor

// Archetype represents the class of a developer.
type Archetype string

const (
	ArchetypeGeneralist  Archetype = "Generalist"  // Solid all-rounder, the common hire
	ArchetypeFrontend    Archetype = "Frontend"    // Pixel pusher
	ArchetypeBackend     Archetype = "Backend"     // Plumbing and databases
	ArchetypeFirefighter Archetype = "Firefighter" // Calms incidents before they ignite
	ArchetypeTeamLead    Archetype = "TeamLead"    // Lifts everyone around them
	ArchetypeTenXer      Archetype = "TenXer"      // Rare, expensive, very fast
)

// Archetypes lists every archetype in a stable order for weighted draws.
var Archetypes = []Archetype{
	ArchetypeGeneralist,
	ArchetypeFrontend,
	ArchetypeBackend,
	ArchetypeFirefighter,
	ArchetypeTeamLead,
	ArchetypeTenXer,
}

// EffectKind identifies a passive effect carried by a contributor.
// A contributor has at most one passive effect.
type EffectKind string

const (
	EffectNone EffectKind = ""
	// EffectBlockerWard multiplicatively reduces the per-tick disruption
	// probability by Amount (0.25 = 25% fewer blockers).
	EffectBlockerWard EffectKind = "BLOCKER_WARD"
	// EffectRally adds Amount flat points-per-tick to the team's aggregate velocity.
	EffectRally EffectKind = "RALLY"
)

// PassiveEffect is an always-on modifier attached to an archetype.
type PassiveEffect struct {
	Kind   EffectKind `json:"kind"`
	Amount float64    `json:"amount"`
}

// Contributor represents a hired developer on the active roster.
type Contributor struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Archetype Archetype     `json:"archetype"`
	Velocity  float64       `json:"velocity"` // points per tick
	Passive   PassiveEffect `json:"passive"`
}

// Candidate is a generated hire offer. Promoted to the roster by a hire action.
type Candidate struct {
	Contributor
	HireCost float64 `json:"hire_cost"`
}

// Profile provides the generation metadata for an archetype.
type Profile struct {
	Weight      int     // Relative draw weight; higher = more common
	VelocityMin float64 // Uniform range for rolled velocity
	VelocityMax float64
	HireCostMin float64
	HireCostMax float64
	Passive     PassiveEffect
	Names       []string // Name pool, consumed best-effort without repeats
}

// Profiles contains all known archetypes and their generation properties.
var Profiles = map[Archetype]Profile{
	ArchetypeGeneralist: {
		Weight:      30,
		VelocityMin: 0.8, VelocityMax: 1.4,
		HireCostMin: 300, HireCostMax: 550,
		Names: []string{"Sam", "Alex", "Dana", "Robin", "Julen", "Mara"},
	},
	ArchetypeFrontend: {
		Weight:      20,
		VelocityMin: 0.9, VelocityMax: 1.5,
		HireCostMin: 350, HireCostMax: 600,
		Names: []string{"Iris", "Noa", "Pau", "Vera", "Kim"},
	},
	ArchetypeBackend: {
		Weight:      20,
		VelocityMin: 0.9, VelocityMax: 1.5,
		HireCostMin: 350, HireCostMax: 600,
		Names: []string{"Igor", "Berta", "Olmo", "Tess", "Ray"},
	},
	ArchetypeFirefighter: {
		Weight:      15,
		VelocityMin: 0.6, VelocityMax: 1.0,
		HireCostMin: 400, HireCostMax: 700,
		Passive:     PassiveEffect{Kind: EffectBlockerWard, Amount: 0.25},
		Names:       []string{"Ash", "Blas", "Ember", "Rocio"},
	},
	ArchetypeTeamLead: {
		Weight:      10,
		VelocityMin: 0.5, VelocityMax: 0.9,
		HireCostMin: 500, HireCostMax: 850,
		Passive:     PassiveEffect{Kind: EffectRally, Amount: 0.4},
		Names:       []string{"Marta", "Leo", "Greta", "Oscar"},
	},
	ArchetypeTenXer: {
		Weight:      5,
		VelocityMin: 2.0, VelocityMax: 3.0,
		HireCostMin: 900, HireCostMax: 1500,
		Names:       []string{"Zed", "Nova", "Qiu"},
	},
}

// TeamVelocity returns the aggregate points-per-tick of the roster,
// including flat RALLY bonuses.
func TeamVelocity(roster []*Contributor) float64 {
	var sum float64
	for _, c := range roster {
		sum += c.Velocity
		if c.Passive.Kind == EffectRally {
			sum += c.Passive.Amount
		}
	}
	return sum
}

// DisruptionReduction returns the summed BLOCKER_WARD reduction across the
// roster. Callers clamp the resulting probability at zero.
func DisruptionReduction(roster []*Contributor) float64 {
	var sum float64
	for _, c := range roster {
		if c.Passive.Kind == EffectBlockerWard {
			sum += c.Passive.Amount
		}
	}
	return sum
}

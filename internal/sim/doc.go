// Package sim contains the simulation core of the studio-management game.
// This is the heartbeat of "DevHouse Tycoon".
//
// ARCHITECTURAL RULE: all randomness flows through an injected Rand, all
// wall-clock time through the Clock's injected now source, and all shared
// state through the Board/Roster accessor interfaces. Nothing in this
// package reaches for ambient globals, so independent simulations can run
// side by side and tests can replay exact sequences.
package sim

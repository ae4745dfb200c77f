package main

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/fatih/color"
	"github.com/jason-s-yu/liarspoker/internal/game"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/jason-s-yu/liarspoker/internal/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestSimulatePlaysToAWinner(t *testing.T) {
	for _, mode := range []string{models.ModeStandard, models.ModeQuick, models.ModeTournament} {
		t.Run(mode, func(t *testing.T) {
			var out bytes.Buffer
			res, err := simulate(options{Players: 4, Mode: mode, Seed: 42, Challenge: 0.4, MaxTurns: 5000}, &out)
			require.NoError(t, err)

			assert.Regexp(t, `^Bot[1-4]$`, res.Winner)
			assert.GreaterOrEqual(t, res.Rounds, 3, "three players have to be knocked out")
			assert.Contains(t, out.String(), "Game started")
			assert.Contains(t, out.String(), "Game over! "+res.Winner+" wins the game!")
		})
	}
}

func TestSimulateIsDeterministicForASeed(t *testing.T) {
	opts := options{Players: 3, Mode: models.ModeQuick, Seed: 7, Challenge: 0.5, MaxTurns: 5000}
	first, err := simulate(opts, &bytes.Buffer{})
	require.NoError(t, err)
	second, err := simulate(opts, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSimulateQuietPrintsNothing(t *testing.T) {
	var out bytes.Buffer
	_, err := simulate(options{Players: 2, Mode: models.ModeStandard, Seed: 1, Challenge: 0.5, MaxTurns: 5000, Quiet: true}, &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestSimulateRejectsBadTables(t *testing.T) {
	_, err := simulate(options{Players: 4, Mode: "blitz", Seed: 1, MaxTurns: 10}, &bytes.Buffer{})
	assert.ErrorIs(t, err, models.ErrInvalidGameMode)

	_, err = simulate(options{Players: 1, Mode: models.ModeStandard, Seed: 1, MaxTurns: 10}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSimulateStopsAtTurnLimit(t *testing.T) {
	_, err := simulate(options{Players: 4, Mode: models.ModeStandard, Seed: 3, Challenge: 0, MaxTurns: 2}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errStalled)
}

func TestBotOpensLowAndAlwaysBeatsTheTable(t *testing.T) {
	b := newBot(rand.New(rand.NewSource(1)), 0)

	first, ok := b.next(nil)
	require.True(t, ok)
	assert.Equal(t, poker.HighCard, first.Type)

	current := first
	for i := 0; i < 50; i++ {
		d, ok := b.next(&current)
		require.True(t, ok)
		require.NoError(t, poker.Validate(d, &current))
		current = d
	}
}

func TestBotCallsWhenNothingBeatsTheTable(t *testing.T) {
	b := newBot(rand.New(rand.NewSource(1)), 0)
	all := claims()
	top := all[len(all)-1]
	require.Equal(t, poker.RoyalFlush, top.Type)

	_, ok := b.next(&top)
	assert.False(t, ok)
	assert.True(t, b.calls(&top))

	low := all[0]
	assert.False(t, b.calls(&low), "a bot that never bluff-calls passes when it can still bid")
}

func TestSimulateStateStaysConsistentAcrossSeeds(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		players := 2 + int(seed%7)
		_, err := simulate(options{Players: players, Mode: models.ModeQuick, Seed: seed, Challenge: 0.3, MaxTurns: 5000, Quiet: true}, &bytes.Buffer{})
		require.NoError(t, err, "seed %d with %d players", seed, players)
	}
}

func TestCheckStateFlagsDrift(t *testing.T) {
	st := game.PublicState{
		Phase:            game.PhaseDeclaration,
		Players:          []game.PlayerState{{InGame: true}, {InGame: false}, {InGame: true}},
		RemainingPlayers: 2,
	}
	assert.NoError(t, checkState(st))

	st.RemainingPlayers = 3
	assert.ErrorIs(t, checkState(st), errCorrupt)

	st.Players[2].InGame = false
	st.RemainingPlayers = 1
	assert.ErrorIs(t, checkState(st), errCorrupt, "one player left but the game is still running")

	st.Phase = game.PhaseGameOver
	assert.NoError(t, checkState(st))
}

// cmd/simulate/main.go plays a table of bots through the room registry and
// prints the session log as it happens. Useful for eyeballing rule changes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/game"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/sirupsen/logrus"
)

type options struct {
	Players   int
	Mode      string
	Seed      int64
	Challenge float64
	MaxTurns  int
	Quiet     bool
}

type result struct {
	Winner string
	Rounds int
	Turns  int
}

var (
	errStalled = errors.New("no winner before the turn limit")
	errCorrupt = errors.New("inconsistent game state")
)

func main() {
	var opts options
	flag.IntVar(&opts.Players, "players", 4, "number of bots (2-8)")
	flag.StringVar(&opts.Mode, "mode", models.ModeStandard, "game mode: standard, quick or tournament")
	flag.Int64Var(&opts.Seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Float64Var(&opts.Challenge, "challenge", 0.35, "chance a bot calls a bluff")
	flag.IntVar(&opts.MaxTurns, "max-turns", 5000, "give up after this many actions")
	flag.BoolVar(&opts.Quiet, "quiet", false, "only print the result")
	noColor := flag.Bool("no-color", false, "disable coloured output")
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	res, err := simulate(opts, os.Stdout)
	if err != nil {
		color.New(color.FgHiRed).Fprintf(os.Stderr, "simulation failed (seed %d): %v\n", opts.Seed, err)
		os.Exit(1)
	}
	color.New(color.FgHiGreen, color.Bold).Printf("%s won after %d rounds and %d actions (seed %d)\n",
		res.Winner, res.Rounds, res.Turns, opts.Seed)
}

// simulate runs one full game and writes the log to out.
func simulate(opts options, out io.Writer) (result, error) {
	rng := rand.New(rand.NewSource(opts.Seed))
	quietLogger := logrus.New()
	quietLogger.SetOutput(io.Discard)

	reg := lobby.NewRegistry(lobby.Options{
		Logger: quietLogger,
		Rand:   rand.New(rand.NewSource(rng.Int63())),
	})

	ids := make([]uuid.UUID, opts.Players)
	names := make(map[uuid.UUID]string, opts.Players)
	for i := range ids {
		ids[i] = uuid.New()
		names[ids[i]] = fmt.Sprintf("Bot%d", i+1)
	}
	if len(ids) == 0 {
		return result{}, lobby.ErrNotEnoughPlayers
	}
	room, err := reg.CreateRoom(ids[0], names[ids[0]], models.RoomSettings{MaxPlayers: opts.Players, GameMode: opts.Mode})
	if err != nil {
		return result{}, err
	}
	for _, id := range ids[1:] {
		if _, err := reg.JoinRoom(room.Code, id, names[id]); err != nil {
			return result{}, err
		}
	}

	st, err := reg.StartGame(room.Code, ids[0])
	if err != nil {
		return result{}, err
	}

	p := newPrinter(out, opts.Quiet)
	p.print(st.Log)

	b := newBot(rng, opts.Challenge)
	turns := 0
	for st.Phase != game.PhaseGameOver {
		if turns >= opts.MaxTurns {
			return result{Rounds: st.RoundNumber, Turns: turns}, errStalled
		}
		turns++

		actor, action, err := choose(b, rng, st)
		if err != nil {
			return result{}, err
		}
		if st, err = reg.PerformAction(room.Code, actor, action); err != nil {
			return result{}, fmt.Errorf("%s %s: %w", names[actor], action.ActionType, err)
		}
		p.print(st.Log)
		if err := checkState(st); err != nil {
			return result{Rounds: st.RoundNumber, Turns: turns}, err
		}
	}

	res := result{Winner: "nobody", Rounds: st.RoundNumber, Turns: turns}
	if st.WinnerID != nil {
		res.Winner = names[*st.WinnerID]
	}
	return res, nil
}

// checkState catches bookkeeping drift: the remaining count must match the
// seats still in the game, and a session down to one player must be over.
func checkState(st game.PublicState) error {
	inGame := 0
	for _, pl := range st.Players {
		if pl.InGame {
			inGame++
		}
	}
	if inGame != st.RemainingPlayers {
		return fmt.Errorf("%w: round %d has %d players in game but reports %d remaining",
			errCorrupt, st.RoundNumber, inGame, st.RemainingPlayers)
	}
	if st.RemainingPlayers <= 1 && st.Phase != game.PhaseGameOver {
		return fmt.Errorf("%w: %d players remaining in phase %s", errCorrupt, st.RemainingPlayers, st.Phase)
	}
	return nil
}

// choose picks who acts next and what they do.
func choose(b *bot, rng *rand.Rand, st game.PublicState) (uuid.UUID, models.GameAction, error) {
	switch st.Phase {
	case game.PhaseDeclaration:
		d, ok := b.next(st.CurrentDeclaration)
		if !ok {
			return uuid.Nil, models.GameAction{}, fmt.Errorf("no declaration beats %v", st.CurrentDeclaration)
		}
		return st.CurrentPlayerID, models.GameAction{
			ActionType: models.ActionDeclaration,
			HandType:   string(d.Type),
			Cards:      d.Cards,
		}, nil

	case game.PhaseChallenge:
		var others []uuid.UUID
		for _, pl := range st.Players {
			if pl.InGame && pl.ID != st.CurrentPlayerID {
				others = append(others, pl.ID)
			}
		}
		if len(others) == 0 {
			return uuid.Nil, models.GameAction{}, fmt.Errorf("nobody left to respond")
		}
		responder := others[rng.Intn(len(others))]
		if b.calls(st.CurrentDeclaration) {
			return responder, models.GameAction{ActionType: models.ActionChallenge}, nil
		}
		return responder, models.GameAction{ActionType: models.ActionPass}, nil
	}
	return uuid.Nil, models.GameAction{}, fmt.Errorf("unexpected phase %s", st.Phase)
}

// printer writes log entries it has not printed yet, coloured by kind.
type printer struct {
	out     io.Writer
	quiet   bool
	lastSeq int

	round, challenge, loss, win func(a ...interface{}) string
}

func newPrinter(out io.Writer, quiet bool) *printer {
	return &printer{
		out:       out,
		quiet:     quiet,
		round:     color.New(color.FgHiCyan).SprintFunc(),
		challenge: color.New(color.FgHiYellow).SprintFunc(),
		loss:      color.New(color.FgHiRed).SprintFunc(),
		win:       color.New(color.FgHiGreen, color.Bold).SprintFunc(),
	}
}

func (p *printer) print(entries []game.LogEntry) {
	for _, e := range entries {
		if e.Seq <= p.lastSeq {
			continue
		}
		p.lastSeq = e.Seq
		if p.quiet {
			continue
		}
		fmt.Fprintln(p.out, p.paint(e.Message))
	}
}

func (p *printer) paint(msg string) string {
	switch {
	case strings.HasPrefix(msg, "Game over"):
		return p.win(msg)
	case strings.HasPrefix(msg, "Round"):
		return p.round(msg)
	case strings.Contains(msg, "challenge"), strings.Contains(msg, "Challenge"):
		return p.challenge(msg)
	case strings.Contains(msg, "eliminated"), strings.Contains(msg, "loses"):
		return p.loss(msg)
	}
	return msg
}

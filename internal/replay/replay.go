// Package replay carries the champion reel produced by training and a
// headless player that reproduces each champion's evaluated episode.
package replay

import (
	"context"
	"fmt"
	"math/rand"

	"ophion/internal/nn"
	"ophion/internal/scape"
)

// Champion is one generation's best chromosome, the score it earned, and
// the episode seed it was evaluated under.
type Champion struct {
	Generation int
	Score      float64
	Seed       int64
	Genes      []float64
}

// Reel is the ordered champion sequence handed to the replay collaborator,
// one entry per generation, plus the network shape needed to rebuild them.
// It lives in memory only.
type Reel struct {
	Spec      nn.Spec
	Champions []Champion
}

// Append stores the champion with its own copy of the genes.
func (r *Reel) Append(c Champion) {
	c.Genes = append([]float64(nil), c.Genes...)
	r.Champions = append(r.Champions, c)
}

func (r *Reel) Len() int { return len(r.Champions) }

// EpisodePlayer runs one episode with a caller-supplied network. The snake
// scape satisfies it with the same loop used for training evaluation.
type EpisodePlayer interface {
	PlayEpisode(ctx context.Context, net *nn.Network, rng *rand.Rand, obs scape.Observer) (scape.Fitness, scape.Trace, error)
}

// Result is one replayed champion's outcome. Trained and Replayed must
// agree; any difference means the simulation or sensor semantics drifted
// from the ones training scored with.
type Result struct {
	Generation int
	Trained    float64
	Replayed   float64
	Trace      scape.Trace
}

func (r Result) Matches() bool { return r.Trained == r.Replayed }

// Player steps through a reel on a single reusable network, swapping each
// champion's weights into place without reallocating.
type Player struct {
	reel Reel
	ep   EpisodePlayer
	net  *nn.Network
}

func NewPlayer(reel Reel, ep EpisodePlayer) (*Player, error) {
	if ep == nil {
		return nil, fmt.Errorf("episode player is required")
	}
	net, err := nn.New(reel.Spec)
	if err != nil {
		return nil, err
	}
	want := reel.Spec.WeightCount()
	for i, c := range reel.Champions {
		if len(c.Genes) != want {
			return nil, fmt.Errorf("champion %d gene count: got=%d want=%d", i, len(c.Genes), want)
		}
	}
	return &Player{reel: reel, ep: ep, net: net}, nil
}

func (p *Player) Len() int { return p.reel.Len() }

// Play replays champion i under its recorded seed. The observer may be nil
// for headless playback.
func (p *Player) Play(ctx context.Context, i int, obs scape.Observer) (Result, error) {
	if i < 0 || i >= p.reel.Len() {
		return Result{}, fmt.Errorf("champion index %d out of range [0, %d)", i, p.reel.Len())
	}
	c := p.reel.Champions[i]
	if err := p.net.UpdateWeights(c.Genes); err != nil {
		return Result{}, err
	}
	fitness, trace, err := p.ep.PlayEpisode(ctx, p.net, rand.New(rand.NewSource(c.Seed)), obs)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Generation: c.Generation,
		Trained:    c.Score,
		Replayed:   float64(fitness),
		Trace:      trace,
	}, nil
}

// PlayAll replays every champion in reel order.
func (p *Player) PlayAll(ctx context.Context, obs scape.Observer) ([]Result, error) {
	results := make([]Result, 0, p.reel.Len())
	for i := 0; i < p.reel.Len(); i++ {
		res, err := p.Play(ctx, i, obs)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

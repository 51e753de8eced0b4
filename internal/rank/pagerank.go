package rank

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/citeseek/citeseek/internal/corpus"
)

// Vector maps each document id to its authority score. The raw vector sums
// to 1 up to floating-point error.
type Vector map[corpus.DocID]float64

// Result is the outcome of a power-iteration run. Hitting the iteration
// budget without converging is not an error: the vector is still the best
// available estimate, and Iterations plus Delta let the caller judge its
// quality.
type Result struct {
	Ranks      Vector
	Iterations int
	Delta      float64
	Converged  bool
}

// Options for Compute.
type Options struct {
	Damping   float64
	MaxIter   int
	Tolerance float64
}

// massTolerance bounds the relative drift of the total probability mass that
// is tolerated per iteration before a warning is logged.
const massTolerance = 1e-9

// Compute runs damped power iteration until the L1 delta between successive
// rank vectors drops below the tolerance or the iteration budget runs out.
// Probability mass sitting on dangling nodes is redistributed uniformly each
// iteration so the vector keeps summing to 1.
func Compute(g *Graph, opts Options) (Result, error) {
	if opts.Damping <= 0 || opts.Damping >= 1 {
		return Result{}, fmt.Errorf("damping factor %v out of (0,1)", opts.Damping)
	}
	if opts.MaxIter <= 0 {
		return Result{}, fmt.Errorf("max iterations must be positive, got %d", opts.MaxIter)
	}
	if opts.Tolerance <= 0 {
		return Result{}, fmt.Errorf("tolerance must be positive, got %v", opts.Tolerance)
	}

	logger := slog.Default().With("component", "rank-engine")
	start := time.Now()

	nodes := g.Nodes()
	n := len(nodes)
	if n == 0 {
		return Result{Ranks: Vector{}, Converged: true}, nil
	}

	d := opts.Damping
	rank := make(Vector, n)
	for _, id := range nodes {
		rank[id] = 1.0 / float64(n)
	}

	iteration := 0
	delta := math.Inf(1)
	for iteration < opts.MaxIter && delta > opts.Tolerance {
		iteration++

		// Random-jump base for every node.
		newRank := make(Vector, n)
		for _, id := range nodes {
			newRank[id] = (1 - d) / float64(n)
		}

		// Dangling nodes hold mass but have nowhere to push it;
		// spread it uniformly or the vector leaks probability.
		danglingMass := 0.0
		for _, id := range nodes {
			if g.OutDegree(id) == 0 {
				danglingMass += rank[id]
			}
		}
		danglingShare := d * danglingMass / float64(n)

		for _, id := range nodes {
			degree := g.OutDegree(id)
			if degree == 0 {
				continue
			}
			share := d * rank[id] / float64(degree)
			g.EachTarget(id, func(target corpus.DocID) {
				newRank[target] += share
			})
		}
		for _, id := range nodes {
			newRank[id] += danglingShare
		}

		delta = 0
		mass := 0.0
		for _, id := range nodes {
			delta += math.Abs(newRank[id] - rank[id])
			mass += newRank[id]
		}
		if math.Abs(mass-1) > massTolerance*float64(n) {
			logger.Warn("probability mass drift", "iteration", iteration, "mass", mass)
		}
		rank = newRank
	}

	converged := delta <= opts.Tolerance
	logger.Info("power iteration finished",
		"nodes", n,
		"iterations", iteration,
		"delta", delta,
		"converged", converged,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return Result{
		Ranks:      rank,
		Iterations: iteration,
		Delta:      delta,
		Converged:  converged,
	}, nil
}

// Normalized min-max rescales the vector to [0,1]. When every raw score is
// equal, all entries map to 1.0 instead of dividing by zero.
func (v Vector) Normalized() Vector {
	if len(v) == 0 {
		return Vector{}
	}
	vMin := math.Inf(1)
	vMax := math.Inf(-1)
	for _, score := range v {
		vMin = math.Min(vMin, score)
		vMax = math.Max(vMax, score)
	}
	out := make(Vector, len(v))
	if vMax-vMin <= 0 {
		for id := range v {
			out[id] = 1.0
		}
		return out
	}
	for id, score := range v {
		out[id] = (score - vMin) / (vMax - vMin)
	}
	return out
}

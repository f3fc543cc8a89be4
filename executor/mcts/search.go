package mcts

import (
	"context"
	"fmt"
	"time"

	"lukechampine.com/frand"

	"github.com/brensch/colosseum/game"
	"github.com/brensch/colosseum/rules"
)

const (
	DefaultExploration = 0.1
	DefaultTrapPenalty = 20
)

// Config holds MCTS configuration.
type Config struct {
	// Exploration is the UCT constant used while searching. The final
	// choice at the root always uses 0.
	Exploration float64
	// TrapPenalty is added to the Losses of a new child whose move stopped
	// on a cell with three barriers. Zero disables it.
	TrapPenalty int
	// Workers > 1 runs that many independent trees (root parallelism).
	Workers int
	// Iterations caps the number of playouts per tree; 0 means the
	// deadline alone ends the search.
	Iterations int
	// Seed makes searches reproducible; 0 draws fresh entropy per search.
	Seed uint64
}

// DefaultConfig returns the tuned single-threaded settings.
func DefaultConfig() Config {
	return Config{
		Exploration: DefaultExploration,
		TrapPenalty: DefaultTrapPenalty,
		Workers:     1,
	}
}

// Option overrides one of the engine's strategies.
type Option func(*Engine)

// WithSelection replaces the UCT tree policy.
func WithSelection(p SelectionPolicy) Option {
	return func(e *Engine) { e.selection = p }
}

// WithRollout replaces the uniform random playout policy.
func WithRollout(p RolloutPolicy) Option {
	return func(e *Engine) { e.rollout = p }
}

// WithPrior replaces the trap penalty applied at expansion.
func WithPrior(p ExpansionPrior) Option {
	return func(e *Engine) { e.prior = p }
}

// Engine runs anytime MCTS searches. It holds no per-search state, so one
// Engine may serve concurrent Decide calls.
type Engine struct {
	cfg       Config
	selection SelectionPolicy
	rollout   RolloutPolicy
	prior     ExpansionPrior
}

// New creates an engine. Start from DefaultConfig; zero Exploration and
// TrapPenalty are honoured as given.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	e := &Engine{
		cfg:       cfg,
		selection: UCT{C: cfg.Exploration},
		rollout:   UniformRollout{},
		prior:     TrapPenalty{Amount: cfg.TrapPenalty},
	}
	if cfg.TrapPenalty == 0 {
		e.prior = NoPrior{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// ChildSummary describes one root child after a search.
type ChildSummary struct {
	Move    game.Move `json:"-"`
	To      string    `json:"to"`
	Dir     string    `json:"dir"`
	Visits  int       `json:"n"`
	Tally   Tally     `json:"tally"`
	WinRate float64   `json:"win_rate"`
}

// Stats reports what a search did.
type Stats struct {
	Iterations int            `json:"iterations"`
	RootVisits int            `json:"root_visits"`
	TreeSize   int            `json:"tree_size"`
	MaxDepth   int            `json:"max_depth"`
	Workers    int            `json:"workers"`
	Elapsed    time.Duration  `json:"elapsed"`
	Children   []ChildSummary `json:"children"`
}

// Result is the outcome of a search: the chosen move and the statistics
// that led to it.
type Result struct {
	Move  game.Move
	Tally Tally
	Stats Stats
}

// Decide returns the best move found for the player at me within budget.
//
// At least one expansion and playout always run, so a zero budget still
// yields a legal move. The deadline is checked between iterations only.
// Cancelling ctx ends the search early like the deadline does.
func (e *Engine) Decide(ctx context.Context, b *game.Board, me, adv game.Position, maxStep int, budget time.Duration) (game.Move, error) {
	res, err := e.Search(ctx, b, me, adv, maxStep, budget)
	if err != nil {
		return game.Move{}, err
	}
	return res.Move, nil
}

// Search is Decide that also returns search statistics.
func (e *Engine) Search(ctx context.Context, b *game.Board, me, adv game.Position, maxStep int, budget time.Duration) (Result, error) {
	if err := validate(b, me, adv, maxStep); err != nil {
		return Result{}, err
	}
	if len(rules.Enumerate(b, me, adv, maxStep)) == 0 {
		return Result{}, fmt.Errorf("%w: player at %s is enclosed", game.ErrNoLegalMove, me)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	deadline := start.Add(budget)

	if e.cfg.Workers > 1 {
		return e.searchParallel(ctx, b, me, adv, maxStep, deadline, start)
	}

	t := newTree(b, me, adv, maxStep, e.newRNG(0))
	st := e.run(ctx, t, deadline)
	children := t.rootChildren()
	best, err := pickBest(children)
	if err != nil {
		return Result{}, err
	}
	st.Workers = 1
	st.Elapsed = time.Since(start)
	st.Children = children
	return Result{Move: children[best].Move, Tally: children[best].Tally, Stats: st}, nil
}

func validate(b *game.Board, me, adv game.Position, maxStep int) error {
	if b == nil {
		return fmt.Errorf("%w: nil board", game.ErrInvalidState)
	}
	if !b.InBounds(me) || !b.InBounds(adv) {
		return fmt.Errorf("%w: positions %s and %s must be on a %dx%d board", game.ErrInvalidState, me, adv, b.Size(), b.Size())
	}
	if me == adv {
		return fmt.Errorf("%w: both players at %s", game.ErrInvalidState, me)
	}
	if maxStep < 0 {
		return fmt.Errorf("%w: negative step budget %d", game.ErrInvalidState, maxStep)
	}
	return nil
}

// newRNG returns the random stream for worker i.
func (e *Engine) newRNG(worker int) *frand.RNG {
	if e.cfg.Seed == 0 {
		return frand.New()
	}
	return game.NewRNG(e.cfg.Seed + uint64(worker)*0x9e3779b97f4a7c15)
}

// run is the anytime loop over one tree. The first iteration always runs so
// the root has at least one child before the clock is consulted.
func (e *Engine) run(ctx context.Context, t *tree, deadline time.Time) Stats {
	var st Stats
	for {
		if st.Iterations > 0 {
			if e.cfg.Iterations > 0 && st.Iterations >= e.cfg.Iterations {
				break
			}
			if !time.Now().Before(deadline) {
				break
			}
			select {
			case <-ctx.Done():
				return e.finish(t, st)
			default:
			}
		}

		leaf := e.selectOrExpand(t)
		outcome := e.simulate(t, leaf)
		t.backpropagate(leaf, outcome)

		st.Iterations++
		if d := int(t.nodes[leaf].depth); d > st.MaxDepth {
			st.MaxDepth = d
		}
	}
	return e.finish(t, st)
}

func (e *Engine) finish(t *tree, st Stats) Stats {
	st.RootVisits = t.nodes[0].visits
	st.TreeSize = len(t.nodes)
	return st
}

// selectOrExpand walks down from the root. A node with untried moves gets
// one of them expanded and the new child is returned; otherwise the walk
// continues into the best-scoring child. Terminal nodes and dead branches
// (no moves, no children) are returned as they are.
func (e *Engine) selectOrExpand(t *tree) int32 {
	idx := int32(0)
	for {
		n := &t.nodes[idx]
		if n.terminal {
			return idx
		}
		if !n.fullyExpanded() {
			return e.expand(t, idx)
		}
		if len(n.children) == 0 {
			return idx
		}
		idx = e.bestChild(t, idx)
	}
}

func (e *Engine) bestChild(t *tree, idx int32) int32 {
	n := &t.nodes[idx]
	parent := t.stats(idx)
	best := n.children[0]
	bestScore := e.selection.Score(parent, t.stats(best), n.rootToMove)
	for _, c := range n.children[1:] {
		if s := e.selection.Score(parent, t.stats(c), n.rootToMove); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

// expand pops one untried move of node idx and adds the resulting child.
// Roles swap: the child's mover is the parent's other player, and the
// player who just moved now stands on the move's destination.
func (e *Engine) expand(t *tree, idx int32) int32 {
	p := &t.nodes[idx]
	m := p.untried[len(p.untried)-1]
	p.untried = p.untried[:len(p.untried)-1]

	nb, err := rules.Apply(p.board, m)
	if err != nil {
		panic(fmt.Sprintf("mcts: enumerated move %s is not applicable: %v", m, err))
	}
	moverWasRoot := p.rootToMove
	nextMover := p.other
	depth := p.depth + 1

	child := t.addNode(nb, nextMover, m.To, !moverWasRoot, idx, m, depth)
	// addNode may have grown the arena; refresh pointers.
	t.nodes[idx].children = append(t.nodes[idx].children, child)

	if k := e.prior.Penalty(nb, m); k > 0 {
		t.nodes[child].tally.Losses += k
	}
	return child
}

// simulate plays uniformly random moves from node idx until the evaluator
// reports a result, checking after every ply. The result is from the root
// player's perspective.
func (e *Engine) simulate(t *tree, idx int32) game.Outcome {
	n := &t.nodes[idx]
	if n.terminal {
		return n.outcome
	}

	b := n.board
	mover, other := n.mover, n.other
	rootToMove := n.rootToMove
	moves := make([]game.Move, 0, 64)

	for {
		moves = rules.AppendMoves(moves[:0], b, mover, other, t.maxStep)
		if len(moves) == 0 {
			// Dead branch: the player to move is walled in and loses.
			if rootToMove {
				return game.OpponentWin
			}
			return game.MyWin
		}

		m := e.rollout.Choose(t.rng, b, mover, other, moves)
		nb, err := rules.Apply(b, m)
		if err != nil {
			panic(fmt.Sprintf("mcts: rollout move %s is not applicable: %v", m, err))
		}
		b = nb
		mover, other = other, m.To
		rootToMove = !rootToMove

		me, adv := mover, other
		if !rootToMove {
			me, adv = other, mover
		}
		if res := rules.Evaluate(b, me, adv); res.Ended {
			return res.Outcome
		}
	}
}

func (t *tree) backpropagate(idx int32, o game.Outcome) {
	for idx != noParent {
		n := &t.nodes[idx]
		n.visits++
		n.tally.Add(o, 1)
		idx = n.parent
	}
}

func (t *tree) rootChildren() []ChildSummary {
	root := &t.nodes[0]
	out := make([]ChildSummary, 0, len(root.children))
	for _, c := range root.children {
		n := &t.nodes[c]
		out = append(out, newChildSummary(n.move, n.visits, n.tally))
	}
	return out
}

func newChildSummary(m game.Move, visits int, tally Tally) ChildSummary {
	return ChildSummary{
		Move:    m,
		To:      m.To.String(),
		Dir:     m.Dir.String(),
		Visits:  visits,
		Tally:   tally,
		WinRate: tally.WinRate(),
	}
}

// pickBest returns the index of the child with the highest pure win rate.
// Ties keep the earliest child.
func pickBest(children []ChildSummary) (int, error) {
	if len(children) == 0 {
		// Cannot happen: the first iteration always expands the root.
		return 0, fmt.Errorf("%w: search finished without expanding the root", game.ErrNoLegalMove)
	}
	best := 0
	for i := 1; i < len(children); i++ {
		if children[i].Tally.WinRate() > children[best].Tally.WinRate() {
			best = i
		}
	}
	return best, nil
}

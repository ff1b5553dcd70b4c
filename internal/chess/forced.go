package chess

import (
	"math"
	"sort"
)

// ForcedStatus is the outcome of one forced-move finder.
type ForcedStatus int

const (
	NotForced ForcedStatus = iota
	ForcedUnmet
	ForcedSatisfied
)

type forcedResult struct {
	Status     ForcedStatus
	Priority   int
	Candidates []Step
}

type forcedFinder struct {
	priority int
	find     func(b *Board, sq, origin, dest Point) (ForcedStatus, []Step)
}

const (
	priorityEnPassant     = math.MaxInt
	priorityMinorPawnHunt = 1
)

var (
	enPassantFinder = forcedFinder{priority: priorityEnPassant, find: findEnPassant}
	minorPawnFinder = forcedFinder{priority: priorityMinorPawnHunt, find: findMinorPawnCapture}
)

func findersFor(kind PieceKind) []forcedFinder {
	switch {
	case kind.IsPawnType():
		return []forcedFinder{enPassantFinder}
	case kind.IsBishopType():
		return []forcedFinder{minorPawnFinder}
	}
	return nil
}

func classify(origin, dest Point, candidates []Step) (ForcedStatus, []Step) {
	if len(candidates) == 0 {
		return NotForced, nil
	}
	for _, c := range candidates {
		if c.From == origin && c.To == dest {
			return ForcedSatisfied, candidates
		}
	}
	return ForcedUnmet, candidates
}

func findEnPassant(b *Board, sq, origin, dest Point) (ForcedStatus, []Step) {
	pc, _ := b.Get(sq)
	to, _, ok := enPassantTarget(b, sq, pc)
	if !ok {
		return NotForced, nil
	}
	return classify(origin, dest, []Step{{From: sq, To: to}})
}

func findMinorPawnCapture(b *Board, sq, origin, dest Point) (ForcedStatus, []Step) {
	pc, _ := b.Get(sq)
	var candidates []Step
	for _, d := range diagonal {
		for p := sq.Add(d); !b.IsOutOfBound(p); p = p.Add(d) {
			occ, ok := b.Get(p)
			if !ok {
				continue
			}
			if occ.Kind == MinorPawn && occ.Color != pc.Color {
				candidates = append(candidates, Step{From: sq, To: p})
			}
			break
		}
	}
	return classify(origin, dest, candidates)
}

// ForcedMoves runs every finder for the mover's pieces against the
// submitted move and folds the results.
func ForcedMoves(b *Board, mover Color, origin, dest Point) error {
	var results []forcedResult
	for _, sq := range b.Squares() {
		pc, _ := b.Get(sq)
		if pc.Color != mover {
			continue
		}
		for _, f := range findersFor(pc.Kind) {
			status, candidates := f.find(b, sq, origin, dest)
			if status == NotForced {
				continue
			}
			results = append(results, forcedResult{Status: status, Priority: f.priority, Candidates: candidates})
		}
	}
	if err := foldForced(results); err != nil {
		return err
	}
	return nil
}

// foldForced rejects when the highest outstanding priority exceeds the
// highest satisfied one.
func foldForced(results []forcedResult) *ForcedMoveError {
	maxForced, maxSatisfied := math.MinInt, math.MinInt
	for _, r := range results {
		if r.Status == NotForced {
			continue
		}
		maxForced = max(maxForced, r.Priority)
		if r.Status == ForcedSatisfied {
			maxSatisfied = max(maxSatisfied, r.Priority)
		}
	}
	if maxForced <= maxSatisfied {
		return nil
	}
	var candidates []Step
	for _, r := range results {
		if r.Status == ForcedUnmet && r.Priority == maxForced {
			candidates = append(candidates, r.Candidates...)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].From != candidates[j].From {
			return candidates[i].From.Less(candidates[j].From)
		}
		return candidates[i].To.Less(candidates[j].To)
	})
	return &ForcedMoveError{Priority: maxForced, Candidates: candidates}
}

// internal/rules/batch.go
package rules

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

/*
 * Batch evaluation.
 *
 * Helpers for many subjects against one matcher, one subject against many
 * matchers, and the full subjects x matchers matrix. In the boolean helpers
 * an evaluation error counts as "no match"; use RunDetailed or
 * ParallelRunDetailed to see errors.
 *
 * Parallel variants fan out over an errgroup bounded by workers (GOMAXPROCS
 * when workers <= 0). Outputs are index-aligned with inputs. Cancelling ctx
 * stops scheduling new work; evaluations already running finish, and the
 * context error is returned.
 */

// MatchPair identifies a (subject, matcher) combination that matched.
type MatchPair struct {
	Subject int
	Matcher int
}

// Matches reports whether subject matches e, treating errors as no match.
func Matches(e Evaluator, subject any) bool {
	ok, err := e.Run(subject)
	return err == nil && ok
}

// Filter returns the subjects that match e, in input order.
func Filter[S any](e Evaluator, subjects []S) []S {
	var out []S
	for _, s := range subjects {
		if Matches(e, s) {
			out = append(out, s)
		}
	}
	return out
}

// MatchesAll returns one result per subject.
func MatchesAll[S any](e Evaluator, subjects []S) []bool {
	out := make([]bool, len(subjects))
	for i, s := range subjects {
		out[i] = Matches(e, s)
	}
	return out
}

// Matching returns the matchers that match subject.
func Matching[E Evaluator](subject any, matchers []E) []E {
	var out []E
	for _, m := range matchers {
		if Matches(m, subject) {
			out = append(out, m)
		}
	}
	return out
}

// MatchingIndices returns the indices of matchers that match subject.
func MatchingIndices[E Evaluator](subject any, matchers []E) []int {
	var out []int
	for i, m := range matchers {
		if Matches(m, subject) {
			out = append(out, i)
		}
	}
	return out
}

// CountMatching counts the matchers that match subject.
func CountMatching[E Evaluator](subject any, matchers []E) int {
	n := 0
	for _, m := range matchers {
		if Matches(m, subject) {
			n++
		}
	}
	return n
}

// AnyMatches reports whether at least one matcher matches subject.
func AnyMatches[E Evaluator](subject any, matchers []E) bool {
	for _, m := range matchers {
		if Matches(m, subject) {
			return true
		}
	}
	return false
}

// AllMatch reports whether every matcher matches subject. True for no matchers.
func AllMatch[E Evaluator](subject any, matchers []E) bool {
	for _, m := range matchers {
		if !Matches(m, subject) {
			return false
		}
	}
	return true
}

// EvaluateMatrix returns every matching (subject, matcher) pair, ordered by
// subject then matcher.
func EvaluateMatrix[S any, E Evaluator](subjects []S, matchers []E) []MatchPair {
	var out []MatchPair
	for si, s := range subjects {
		for mi, m := range matchers {
			if Matches(m, s) {
				out = append(out, MatchPair{Subject: si, Matcher: mi})
			}
		}
	}
	return out
}

// EvaluateMatrixFull returns results[subject][matcher].
func EvaluateMatrixFull[S any, E Evaluator](subjects []S, matchers []E) [][]bool {
	out := make([][]bool, len(subjects))
	for si, s := range subjects {
		row := make([]bool, len(matchers))
		for mi, m := range matchers {
			row[mi] = Matches(m, s)
		}
		out[si] = row
	}
	return out
}

// FirstMatching returns, for each subject with at least one match, the first
// matcher that matched.
func FirstMatching[S any, E Evaluator](subjects []S, matchers []E) []MatchPair {
	var out []MatchPair
	for si, s := range subjects {
		for mi, m := range matchers {
			if Matches(m, s) {
				out = append(out, MatchPair{Subject: si, Matcher: mi})
				break
			}
		}
	}
	return out
}

// fanOut runs fn(i) for i in [0, n) on at most workers goroutines.
func fanOut(ctx context.Context, n, workers int, fn func(i int) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ParallelMatchesAll is MatchesAll across workers goroutines.
func ParallelMatchesAll[S any](ctx context.Context, e Evaluator, subjects []S, workers int) ([]bool, error) {
	out := make([]bool, len(subjects))
	err := fanOut(ctx, len(subjects), workers, func(i int) error {
		out[i] = Matches(e, subjects[i])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParallelFilter is Filter across workers goroutines. Input order is kept.
func ParallelFilter[S any](ctx context.Context, e Evaluator, subjects []S, workers int) ([]S, error) {
	hits, err := ParallelMatchesAll(ctx, e, subjects, workers)
	if err != nil {
		return nil, err
	}
	var out []S
	for i, ok := range hits {
		if ok {
			out = append(out, subjects[i])
		}
	}
	return out, nil
}

// ParallelEvaluateMatrix is EvaluateMatrix with one task per subject.
func ParallelEvaluateMatrix[S any, E Evaluator](ctx context.Context, subjects []S, matchers []E, workers int) ([]MatchPair, error) {
	rows := make([][]int, len(subjects))
	err := fanOut(ctx, len(subjects), workers, func(i int) error {
		rows[i] = MatchingIndices(subjects[i], matchers)
		return nil
	})
	if err != nil {
		return nil, err
	}
	var out []MatchPair
	for si, row := range rows {
		for _, mi := range row {
			out = append(out, MatchPair{Subject: si, Matcher: mi})
		}
	}
	return out, nil
}

// ParallelRunDetailed runs RunDetailed for every subject. The first
// structural error cancels the remaining work.
func ParallelRunDetailed[S any](ctx context.Context, e Evaluator, subjects []S, workers int) ([]MatchResult, error) {
	out := make([]MatchResult, len(subjects))
	err := fanOut(ctx, len(subjects), workers, func(i int) error {
		res, err := e.RunDetailed(subjects[i])
		if err != nil {
			return err
		}
		out[i] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

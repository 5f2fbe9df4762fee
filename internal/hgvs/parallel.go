package hgvs

import (
	"context"
	"runtime"
	"sync"
)

// WorkItem is one token queued for batch translation. Seq is the token's
// position in the input and Source is carried through untouched.
type WorkItem struct {
	Seq    int
	Token  string
	Source any
}

// WorkResult pairs a WorkItem with its translation.
type WorkResult struct {
	WorkItem
	Result Result
	Err    error
}

// ParallelTranslate translates items on a pool of workers and sends results
// in completion order; use OrderedCollect to restore input order.
// If workers is 0, runtime.NumCPU() is used. Workers stop once ctx is done,
// so producers feeding items should also watch ctx.
func (t *Translator) ParallelTranslate(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				res, err := t.Translate(item.Token)
				select {
				case results <- WorkResult{WorkItem: item, Result: res, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in Seq order, holding back
// results that arrive early. After fn returns an error the remaining
// results are drained and that error is returned.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	held := make(map[int]WorkResult)
	next := 0

	var ferr error
	for r := range results {
		if ferr != nil {
			continue
		}
		held[r.Seq] = r
		for ferr == nil {
			ready, ok := held[next]
			if !ok {
				break
			}
			delete(held, next)
			next++
			ferr = fn(ready)
		}
	}
	return ferr
}

// TranslateBatch translates tokens on a worker pool. The returned results
// and errors are index-aligned with tokens.
func (t *Translator) TranslateBatch(ctx context.Context, tokens []string, workers int) ([]Result, []error, error) {
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, token := range tokens {
			select {
			case items <- WorkItem{Seq: i, Token: token}:
			case <-ctx.Done():
				return
			}
		}
	}()

	res := make([]Result, len(tokens))
	errs := make([]error, len(tokens))
	OrderedCollect(t.ParallelTranslate(ctx, items, workers), func(r WorkResult) error {
		res[r.Seq] = r.Result
		errs[r.Seq] = r.Err
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return res, errs, nil
}

package coordinator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/IsraelGboluwaga/phosphora/internal/bible"
)

type prefetchJob struct {
	slot    slot
	pending *pendingFetch
}

// prefetchPlan holds the pending entries registered for one prefetch.
type prefetchPlan struct {
	chapters []prefetchJob
	verses   []prefetchJob
}

func (p prefetchPlan) empty() bool {
	return len(p.chapters) == 0 && len(p.verses) == 0
}

// Prefetch warms the caches for refs without touching any display state.
// Chapter references are fetched one by one on a bounded set of workers;
// verse and range references share a single bulk provider call. References
// already cached or in flight are skipped. Invalid references are skipped and
// reported in the returned error together with any fetch failure.
func (c *Coordinator) Prefetch(ctx context.Context, refs []bible.Reference) error {
	plan, err := c.plan(refs)
	if runErr := c.runPrefetch(ctx, plan); runErr != nil {
		err = errors.Join(err, runErr)
	}
	return err
}

// plan registers a pending entry for every reference that needs fetching, so
// a concurrent Resolve joins the prefetch instead of fetching again.
func (c *Coordinator) plan(refs []bible.Reference) (prefetchPlan, error) {
	var plan prefetchPlan
	var errs []error

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, raw := range refs {
		ref, err := c.prepare(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		s := slot{translation: c.translation, key: ref.Key()}
		if c.cachedLocked(s, ref) {
			continue
		}
		if _, ok := c.pending[s]; ok {
			continue
		}

		p := &pendingFetch{ref: ref, waiters: make(map[TabID]struct{})}
		c.pending[s] = p
		job := prefetchJob{slot: s, pending: p}
		if ref.IsChapter() {
			plan.chapters = append(plan.chapters, job)
		} else {
			plan.verses = append(plan.verses, job)
		}
	}
	return plan, errors.Join(errs...)
}

func (c *Coordinator) cachedLocked(s slot, ref bible.Reference) bool {
	if _, ok := c.verses[s]; ok {
		return true
	}
	ch, ok := c.chapters[chapterSlot{book: ref.Book, chapter: ref.Chapter, translation: s.translation}]
	if !ok {
		return false
	}
	if ref.IsChapter() {
		return true
	}
	_, ok = ch.Content(ref)
	return ok
}

// runPrefetch fetches a registered plan. Every registered entry is completed,
// including on failure.
func (c *Coordinator) runPrefetch(ctx context.Context, plan prefetchPlan) error {
	if plan.empty() {
		return nil
	}
	c.logger.Debug("prefetch", "chapters", len(plan.chapters), "verses", len(plan.verses))

	var g errgroup.Group
	g.SetLimit(c.workers)

	for _, job := range plan.chapters {
		g.Go(func() error {
			ref := job.pending.ref
			verses, err := c.provider.FetchChapter(ctx, ref.Book, ref.Chapter, job.slot.translation)
			c.completeChapter(job.slot, job.pending, verses, err)
			if err != nil {
				return fmt.Errorf("prefetch %s: %w", job.slot.key, err)
			}
			return nil
		})
	}

	if len(plan.verses) > 0 {
		g.Go(func() error {
			return c.fetchBatch(ctx, plan.verses)
		})
	}

	return g.Wait()
}

// fetchBatch resolves every verse job with one bulk call, distributing the
// texts back in input order.
func (c *Coordinator) fetchBatch(ctx context.Context, jobs []prefetchJob) error {
	refs := make([]bible.Reference, len(jobs))
	for i, job := range jobs {
		refs[i] = job.pending.ref
	}

	texts, err := c.provider.FetchVerses(ctx, refs, jobs[0].slot.translation)
	if err == nil && len(texts) != len(jobs) {
		err = fmt.Errorf("%w: got %d texts for %d references", ErrNoContent, len(texts), len(jobs))
	}
	if err != nil {
		for _, job := range jobs {
			c.fail(job.slot, job.pending, err)
		}
		return fmt.Errorf("prefetch batch: %w", err)
	}

	for i, job := range jobs {
		c.completeVerse(job.slot, job.pending, texts[i], nil)
	}
	return nil
}

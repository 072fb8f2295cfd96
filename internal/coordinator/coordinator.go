// Package coordinator serves verse content to tabs through layered caches and
// guarantees at most one in-flight provider fetch per cache key.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/IsraelGboluwaga/phosphora/internal/api"
	"github.com/IsraelGboluwaga/phosphora/internal/bible"
	"github.com/IsraelGboluwaga/phosphora/internal/logger"
	"github.com/IsraelGboluwaga/phosphora/internal/session"
)

// DefaultPrefetchWorkers bounds concurrent chapter fetches during a prefetch.
const DefaultPrefetchWorkers = 4

// ErrNoContent is reported when the provider answers with an empty text.
var ErrNoContent = errors.New("provider returned no content")

// Provider fetches verse text. *api.Client satisfies it.
type Provider interface {
	FetchVerse(ctx context.Context, ref bible.Reference, translation string) (string, error)
	FetchVerses(ctx context.Context, refs []bible.Reference, translation string) ([]string, error)
	FetchChapter(ctx context.Context, book string, chapter int, translation string) ([]bible.ChapterVerse, error)
}

var _ Provider = (*api.Client)(nil)

// SurfaceController enables and disables the display surface of a tab.
type SurfaceController interface {
	SetEnabled(tab TabID, enabled bool)
}

// SurfaceFunc adapts a function to SurfaceController.
type SurfaceFunc func(tab TabID, enabled bool)

func (f SurfaceFunc) SetEnabled(tab TabID, enabled bool) { f(tab, enabled) }

type slot struct {
	translation string
	key         bible.Key
}

type chapterSlot struct {
	book        string
	chapter     int
	translation string
}

// pendingFetch exists only while a fetch for its slot is outstanding.
type pendingFetch struct {
	ref     bible.Reference
	waiters map[TabID]struct{}
}

type surfaceCall struct {
	tab     TabID
	enabled bool
}

// Coordinator owns the content caches with their in-flight fetches, and the
// display state of every tab. It is safe for concurrent use.
type Coordinator struct {
	mu          sync.Mutex
	verses      map[slot]bible.VerseContent
	chapters    map[chapterSlot]bible.ChapterContent
	pending     map[slot]*pendingFetch
	display     map[TabID]DisplayState
	active      map[TabID]struct{}
	current     *TabID
	translation string

	provider Provider
	store    *session.Store
	surfaces SurfaceController
	workers  int
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStore mirrors caches and display states into store.
func WithStore(s *session.Store) Option {
	return func(c *Coordinator) { c.store = s }
}

// WithSurfaces sets the collaborator that enables tab surfaces.
func WithSurfaces(s SurfaceController) Option {
	return func(c *Coordinator) { c.surfaces = s }
}

// WithTranslation sets the initial translation.
func WithTranslation(tr string) Option {
	return func(c *Coordinator) { c.translation = tr }
}

// WithPrefetchWorkers bounds concurrent chapter fetches during prefetch.
func WithPrefetchWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a coordinator with empty caches.
func New(provider Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		verses:      make(map[slot]bible.VerseContent),
		chapters:    make(map[chapterSlot]bible.ChapterContent),
		pending:     make(map[slot]*pendingFetch),
		display:     make(map[TabID]DisplayState),
		active:      make(map[TabID]struct{}),
		translation: api.DefaultTranslation,
		provider:    provider,
		workers:     DefaultPrefetchWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = session.New(session.WithLogger(c.logger))
	}
	c.logger = logger.OrDiscard(c.logger)
	return c
}

// Store returns the session store the coordinator mirrors into.
func (c *Coordinator) Store() *session.Store {
	return c.store
}

// Translation returns the active translation.
func (c *Coordinator) Translation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.translation
}

// SetTranslation switches the translation used by later lookups. Cached
// content of other translations is kept.
func (c *Coordinator) SetTranslation(tr string) {
	if tr == "" {
		tr = api.DefaultTranslation
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.translation = tr
}

// Wait blocks until every background fetch has completed.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// prepare canonicalizes ref and applies the range fallback.
func (c *Coordinator) prepare(ref bible.Reference) (bible.Reference, error) {
	ref, err := ref.Canonicalize()
	if err != nil {
		return ref, err
	}
	if err := ref.CheckRange(); err != nil {
		c.logger.Debug("range fallback to single verse", "reference", ref.Raw, "error", err)
	}
	return ref.Normalize(), nil
}

// Resolve shows ref in tab. Cache hits are applied before Resolve returns;
// otherwise the tab goes to Loading and the result arrives asynchronously.
// Only unknown books and invalid references are returned as errors.
func (c *Coordinator) Resolve(ctx context.Context, tab TabID, ref bible.Reference) error {
	ref, err := c.prepare(ref)
	if err != nil {
		return err
	}

	c.mu.Lock()
	calls := c.activateLocked(tab)
	s := slot{translation: c.translation, key: ref.Key()}

	if state, ok := c.fromChapterLocked(s.translation, ref); ok {
		c.setStateLocked(tab, state)
	} else if vc, ok := c.verses[s]; ok {
		c.setStateLocked(tab, ShowingVerse{Content: vc})
	} else {
		c.setStateLocked(tab, Loading{Reference: ref, Translation: s.translation})
		if p, ok := c.pending[s]; ok {
			p.waiters[tab] = struct{}{}
			c.logger.Debug("joined in-flight fetch", "key", s.key, "tab", tab)
		} else {
			p := &pendingFetch{ref: ref, waiters: map[TabID]struct{}{tab: {}}}
			c.pending[s] = p
			c.wg.Add(1)
			go c.fetch(context.WithoutCancel(ctx), s, p)
		}
	}
	c.mu.Unlock()

	c.applySurfaces(calls)
	return nil
}

// fetch runs the provider call for one pending slot and completes it.
func (c *Coordinator) fetch(ctx context.Context, s slot, p *pendingFetch) {
	defer c.wg.Done()

	ref := p.ref
	if ref.IsChapter() {
		verses, err := c.provider.FetchChapter(ctx, ref.Book, ref.Chapter, s.translation)
		c.completeChapter(s, p, verses, err)
		return
	}

	text, err := c.provider.FetchVerse(ctx, ref, s.translation)
	c.completeVerse(s, p, text, err)
}

func (c *Coordinator) completeVerse(s slot, p *pendingFetch, text string, err error) {
	if err == nil && text == "" {
		err = ErrNoContent
	}
	if err != nil {
		c.fail(s, p, err)
		return
	}

	vc := bible.VerseContent{Reference: string(s.key), Text: text, Translation: s.translation}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.putVerseLocked(s, vc)
	c.finishLocked(s, p, ShowingVerse{Content: vc})
}

func (c *Coordinator) completeChapter(s slot, p *pendingFetch, verses []bible.ChapterVerse, err error) {
	if err == nil && len(verses) == 0 {
		err = ErrNoContent
	}
	if err != nil {
		c.fail(s, p, err)
		return
	}

	ch := bible.ChapterContent{
		Book:        p.ref.Book,
		Chapter:     p.ref.Chapter,
		Verses:      verses,
		Translation: s.translation,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.putChapterLocked(ch)
	if vc, ok := ch.Content(p.ref); ok {
		c.putVerseLocked(s, vc)
	}
	c.finishLocked(s, p, ShowingChapter{Content: ch})
}

func (c *Coordinator) fail(s slot, p *pendingFetch, err error) {
	c.logger.Warn("fetch failed", "key", s.key, "translation", s.translation, "error", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishLocked(s, p, Error{Reference: p.ref, Message: err.Error()})
}

// finishLocked clears the pending entry and pushes result to every waiter
// still loading this slot, translation included. Caches must already be
// populated.
func (c *Coordinator) finishLocked(s slot, p *pendingFetch, result DisplayState) {
	if c.pending[s] == p {
		delete(c.pending, s)
	}
	for tab := range p.waiters {
		loading, ok := c.display[tab].(Loading)
		if !ok || loading.Reference.Key() != s.key || loading.Translation != s.translation {
			c.logger.Debug("dropping stale result", "key", s.key, "tab", tab)
			continue
		}
		c.setStateLocked(tab, result)
	}
}

// fromChapterLocked serves ref out of a cached chapter. A verse reference also
// warms the verse cache.
func (c *Coordinator) fromChapterLocked(translation string, ref bible.Reference) (DisplayState, bool) {
	ch, ok := c.chapters[chapterSlot{book: ref.Book, chapter: ref.Chapter, translation: translation}]
	if !ok {
		return nil, false
	}
	if ref.IsChapter() {
		return ShowingChapter{Content: ch}, true
	}

	vc, ok := ch.Content(ref)
	if !ok {
		return nil, false
	}
	s := slot{translation: translation, key: ref.Key()}
	if _, cached := c.verses[s]; !cached {
		c.putVerseLocked(s, vc)
	}
	return ShowingChapter{Content: ch, HighlightStart: ref.VerseStart, HighlightEnd: ref.LastVerse()}, true
}

func (c *Coordinator) putVerseLocked(s slot, vc bible.VerseContent) {
	c.verses[s] = vc
	c.store.Set(session.VerseKey(s.key), vc)
}

func (c *Coordinator) putChapterLocked(ch bible.ChapterContent) {
	c.chapters[chapterSlot{book: ch.Book, chapter: ch.Chapter, translation: ch.Translation}] = ch
	c.store.Set(session.ChapterKey(ch.Book, ch.Chapter), ch)
}

func (c *Coordinator) setStateLocked(tab TabID, state DisplayState) {
	c.display[tab] = state
	c.store.Set(session.DisplayKey(int(tab)), state)
}

// GetCached probes the caches for ref without fetching. It returns nil on a miss.
func (c *Coordinator) GetCached(ref bible.Reference) *bible.VerseContent {
	ref, err := c.prepare(ref)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := slot{translation: c.translation, key: ref.Key()}
	if vc, ok := c.verses[s]; ok {
		return &vc
	}
	ch, ok := c.chapters[chapterSlot{book: ref.Book, chapter: ref.Chapter, translation: s.translation}]
	if !ok {
		return nil
	}
	if vc, ok := ch.Content(ref); ok {
		return &vc
	}
	return nil
}

// DisplayState returns the state of tab, Idle when it has none.
func (c *Coordinator) DisplayState(tab TabID) DisplayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.display[tab]; ok {
		return st
	}
	return Idle{}
}

// Subscribe streams the display state changes of tab. Use StateChange to
// decode the received values.
//
// A subscriber that falls behind loses changes rather than blocking the
// coordinator. Treat a received change as a signal and read the current state
// with DisplayState; the last state of a tab is always available there.
func (c *Coordinator) Subscribe(tab TabID) *session.Subscription {
	return c.store.Subscribe(session.Exactly(session.DisplayKey(int(tab))))
}

// ActivateTab marks tab as having shown a lookup.
func (c *Coordinator) ActivateTab(tab TabID) {
	c.mu.Lock()
	calls := c.activateLocked(tab)
	c.mu.Unlock()
	c.applySurfaces(calls)
}

// activateLocked enables the surface of tab on its first lookup. At most one
// surface is enabled, so the previously current tab loses its own.
func (c *Coordinator) activateLocked(tab TabID) []surfaceCall {
	if _, ok := c.active[tab]; ok {
		return nil
	}
	var calls []surfaceCall
	if c.current != nil && *c.current != tab {
		if _, ok := c.active[*c.current]; ok {
			calls = append(calls, surfaceCall{tab: *c.current, enabled: false})
		}
	}
	c.active[tab] = struct{}{}
	c.current = &tab
	c.logger.Debug("tab activated", "tab", tab)
	return append(calls, surfaceCall{tab: tab, enabled: true})
}

// TabActivated handles a switch to tab: the tab being left loses its surface,
// the tab being entered gets one, in both cases only if it has shown a lookup.
func (c *Coordinator) TabActivated(tab TabID) {
	c.mu.Lock()
	var calls []surfaceCall
	if c.current != nil && *c.current != tab {
		if _, ok := c.active[*c.current]; ok {
			calls = append(calls, surfaceCall{tab: *c.current, enabled: false})
		}
	}
	if _, ok := c.active[tab]; ok {
		calls = append(calls, surfaceCall{tab: tab, enabled: true})
	}
	c.current = &tab
	c.mu.Unlock()

	c.applySurfaces(calls)
}

// CloseTab forgets every piece of state held for tab. In-flight fetches still
// complete into the shared caches.
func (c *Coordinator) CloseTab(tab TabID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.active, tab)
	delete(c.display, tab)
	for _, p := range c.pending {
		delete(p.waiters, tab)
	}
	if c.current != nil && *c.current == tab {
		c.current = nil
	}
	c.store.Delete(session.DisplayKey(int(tab)))
	c.logger.Debug("tab closed", "tab", tab)
}

func (c *Coordinator) applySurfaces(calls []surfaceCall) {
	if c.surfaces == nil {
		return
	}
	for _, call := range calls {
		c.surfaces.SetEnabled(call.tab, call.enabled)
	}
}

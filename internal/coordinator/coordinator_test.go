package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsraelGboluwaga/phosphora/internal/bible"
	"github.com/IsraelGboluwaga/phosphora/internal/session"
)

// fakeProvider counts calls and can hold every fetch until its gate is closed.
type fakeProvider struct {
	mu           sync.Mutex
	gate         chan struct{}
	err          error
	verseCalls   int
	versesCalls  int
	chapterCalls int
	batches      [][]bible.Reference
	verseRefs    []bible.Reference
}

func (f *fakeProvider) hold() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeProvider) setGate(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
}

func (f *fakeProvider) calls() (verse, verses, chapter int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verseCalls, f.versesCalls, f.chapterCalls
}

func (f *fakeProvider) FetchVerse(_ context.Context, ref bible.Reference, tr string) (string, error) {
	f.mu.Lock()
	f.verseCalls++
	f.verseRefs = append(f.verseRefs, ref)
	err := f.err
	f.mu.Unlock()

	f.hold()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s text of %s", tr, ref.Key()), nil
}

func (f *fakeProvider) FetchVerses(_ context.Context, refs []bible.Reference, tr string) ([]string, error) {
	f.mu.Lock()
	f.versesCalls++
	f.batches = append(f.batches, refs)
	err := f.err
	f.mu.Unlock()

	f.hold()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = fmt.Sprintf("%s text of %s", tr, ref.Key())
	}
	return out, nil
}

func (f *fakeProvider) FetchChapter(_ context.Context, book string, chapter int, tr string) ([]bible.ChapterVerse, error) {
	f.mu.Lock()
	f.chapterCalls++
	err := f.err
	f.mu.Unlock()

	f.hold()
	if err != nil {
		return nil, err
	}
	verses := make([]bible.ChapterVerse, 0, 20)
	for v := 1; v <= 20; v++ {
		verses = append(verses, bible.ChapterVerse{Verse: v, Text: fmt.Sprintf("%s %s %d:%d", tr, book, chapter, v)})
	}
	return verses, nil
}

func verse(book string, chapter, start, end int) bible.Reference {
	return bible.Reference{Book: book, Chapter: chapter, VerseStart: start, VerseEnd: end}
}

func TestResolveConcurrentSameKeyFetchesOnce(t *testing.T) {
	provider := &fakeProvider{gate: make(chan struct{})}
	c := New(provider)
	ctx := context.Background()

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 3, 16, 0)))
	require.NoError(t, c.Resolve(ctx, 2, verse("John", 3, 16, 0)))

	assert.Equal(t, Loading{Reference: verse("John", 3, 16, 0), Translation: "NKJV"}, c.DisplayState(1))
	assert.Equal(t, KindLoading, c.DisplayState(2).Kind())

	close(provider.gate)
	c.Wait()

	verseCalls, _, _ := provider.calls()
	assert.Equal(t, 1, verseCalls)

	want := ShowingVerse{Content: bible.VerseContent{
		Reference:   "John 3:16",
		Text:        "NKJV text of John 3:16",
		Translation: "NKJV",
	}}
	assert.Equal(t, want, c.DisplayState(1))
	assert.Equal(t, want, c.DisplayState(2))
}

func TestResolveManyGoroutinesFetchOnce(t *testing.T) {
	provider := &fakeProvider{gate: make(chan struct{})}
	c := New(provider)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Resolve(context.Background(), TabID(i), verse("Romans", 8, 28, 0)))
		}()
	}
	wg.Wait()
	close(provider.gate)
	c.Wait()

	verseCalls, _, _ := provider.calls()
	assert.Equal(t, 1, verseCalls)
	first := c.DisplayState(0)
	assert.Equal(t, KindShowingVerse, first.Kind())
	for i := range 32 {
		assert.Equal(t, first, c.DisplayState(TabID(i)))
	}
}

func TestChapterThenRangeIssuesNoFetch(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider)
	ctx := context.Background()

	require.NoError(t, c.Resolve(ctx, 1, bible.Reference{Book: "John", Chapter: 3}))
	c.Wait()

	chapterState, ok := c.DisplayState(1).(ShowingChapter)
	require.True(t, ok)
	assert.Len(t, chapterState.Content.Verses, 20)
	assert.Zero(t, chapterState.HighlightStart)

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 3, 16, 18)))
	st, ok := c.DisplayState(1).(ShowingChapter)
	require.True(t, ok)
	assert.Equal(t, 16, st.HighlightStart)
	assert.Equal(t, 18, st.HighlightEnd)
	assert.True(t, st.Highlighted(17))
	assert.False(t, st.Highlighted(19))

	verseCalls, versesCalls, chapterCalls := provider.calls()
	assert.Equal(t, 0, verseCalls)
	assert.Equal(t, 0, versesCalls)
	assert.Equal(t, 1, chapterCalls)

	cached := c.GetCached(verse("John", 3, 16, 17))
	require.NotNil(t, cached)
	assert.Equal(t, "John 3:16-17", cached.Reference)
	assert.Equal(t, "16 NKJV John 3:16 17 NKJV John 3:17", cached.Text)
}

func TestChapterMissingVersesFallsThroughToFetch(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider)
	ctx := context.Background()

	require.NoError(t, c.Resolve(ctx, 1, bible.Reference{Book: "Psalms", Chapter: 119}))
	c.Wait()

	require.NoError(t, c.Resolve(ctx, 1, verse("Psalms", 119, 100, 0)))
	c.Wait()

	verseCalls, _, _ := provider.calls()
	assert.Equal(t, 1, verseCalls)
	assert.Equal(t, KindShowingVerse, c.DisplayState(1).Kind())
}

func TestPrefetchBatchesVerses(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider)

	err := c.Prefetch(context.Background(), []bible.Reference{
		verse("John", 3, 16, 0),
		verse("John", 3, 17, 0),
	})
	require.NoError(t, err)

	_, versesCalls, _ := provider.calls()
	assert.Equal(t, 1, versesCalls)
	require.Len(t, provider.batches, 1)
	assert.Len(t, provider.batches[0], 2)

	for _, key := range []string{"John 3:16", "John 3:17"} {
		ref, err := bible.ParseKey(key)
		require.NoError(t, err)
		vc := c.GetCached(ref)
		require.NotNil(t, vc, key)
		assert.Equal(t, key, vc.Reference)
		assert.Equal(t, "NKJV text of "+key, vc.Text)
	}

	assert.Equal(t, Idle{}, c.DisplayState(1))
	assert.Empty(t, c.Store().Keys(session.HasPrefix(session.DisplayPrefix)))
	assert.Len(t, c.Store().Keys(session.HasPrefix(session.VersePrefix)), 2)
}

func TestPrefetchChaptersIndividually(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider, WithPrefetchWorkers(2))

	err := c.Prefetch(context.Background(), []bible.Reference{
		{Book: "John", Chapter: 3},
		{Book: "Genesis", Chapter: 1},
		{Book: "John", Chapter: 3},
		verse("Jude", 1, 3, 0),
	})
	require.NoError(t, err)

	verseCalls, versesCalls, chapterCalls := provider.calls()
	assert.Equal(t, 0, verseCalls)
	assert.Equal(t, 1, versesCalls)
	assert.Equal(t, 2, chapterCalls)

	require.NoError(t, c.Prefetch(context.Background(), []bible.Reference{
		{Book: "John", Chapter: 3},
		verse("John", 3, 5, 0),
		verse("Jude", 1, 3, 0),
	}))
	_, versesCalls, chapterCalls = provider.calls()
	assert.Equal(t, 1, versesCalls)
	assert.Equal(t, 2, chapterCalls)
}

func TestPrefetchReportsInvalidReferences(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider)

	err := c.Prefetch(context.Background(), []bible.Reference{
		{Book: "Hezekiah", Chapter: 1},
		verse("John", 1, 1, 0),
	})
	assert.ErrorIs(t, err, bible.ErrUnknownBook)
	assert.NotNil(t, c.GetCached(verse("John", 1, 1, 0)))
}

func TestResolveJoinsInFlightPrefetch(t *testing.T) {
	provider := &fakeProvider{gate: make(chan struct{})}
	c := New(provider)
	ctx := context.Background()

	_, err := c.Handle(ctx, PrefetchRequest{Requests: []ReferenceFields{{Book: "John", Chapter: 3, VerseStart: 16}}})
	require.NoError(t, err)

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 3, 16, 0)))
	assert.Equal(t, KindLoading, c.DisplayState(1).Kind())

	close(provider.gate)
	c.Wait()

	verseCalls, versesCalls, _ := provider.calls()
	assert.Equal(t, 0, verseCalls)
	assert.Equal(t, 1, versesCalls)
	assert.Equal(t, KindShowingVerse, c.DisplayState(1).Kind())
}

func TestMalformedRangeFallsBackToSingleVerse(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider)

	require.NoError(t, c.Resolve(context.Background(), 1, verse("John", 3, 16, 2)))
	c.Wait()

	require.Len(t, provider.verseRefs, 1)
	assert.Zero(t, provider.verseRefs[0].VerseEnd)

	st, ok := c.DisplayState(1).(ShowingVerse)
	require.True(t, ok)
	assert.Equal(t, "John 3:16", st.Content.Reference)
}

func TestResolveCanonicalizesAliases(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider)

	require.NoError(t, c.Resolve(context.Background(), 1, verse("jn", 3, 16, 0)))
	c.Wait()
	require.NoError(t, c.Resolve(context.Background(), 2, verse("John", 3, 16, 0)))

	verseCalls, _, _ := provider.calls()
	assert.Equal(t, 1, verseCalls)
	assert.Equal(t, c.DisplayState(1), c.DisplayState(2))
}

func TestResolveRejectsUnknownBook(t *testing.T) {
	c := New(&fakeProvider{})

	err := c.Resolve(context.Background(), 1, verse("Hezekiah", 1, 1, 0))
	assert.ErrorIs(t, err, bible.ErrUnknownBook)
	assert.Equal(t, Idle{}, c.DisplayState(1))
}

func TestFetchFailureReachesEveryWaiter(t *testing.T) {
	provider := &fakeProvider{gate: make(chan struct{}), err: errors.New("connection refused")}
	c := New(provider)
	ctx := context.Background()

	require.NoError(t, c.Resolve(ctx, 1, verse("Acts", 2, 38, 0)))
	require.NoError(t, c.Resolve(ctx, 2, verse("Acts", 2, 38, 0)))
	close(provider.gate)
	c.Wait()

	want := Error{Reference: verse("Acts", 2, 38, 0), Message: "connection refused"}
	assert.Equal(t, want, c.DisplayState(1))
	assert.Equal(t, want, c.DisplayState(2))
	assert.Nil(t, c.GetCached(verse("Acts", 2, 38, 0)))

	// No retry is scheduled; a new lookup fetches again.
	provider.mu.Lock()
	provider.err = nil
	provider.mu.Unlock()
	require.NoError(t, c.Resolve(ctx, 1, verse("Acts", 2, 38, 0)))
	c.Wait()

	verseCalls, _, _ := provider.calls()
	assert.Equal(t, 2, verseCalls)
	assert.Equal(t, KindShowingVerse, c.DisplayState(1).Kind())
	assert.Equal(t, KindError, c.DisplayState(2).Kind())
}

func TestStaleResultIsDroppedForDisplay(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider)
	ctx := context.Background()

	require.NoError(t, c.Prefetch(ctx, []bible.Reference{verse("Mark", 1, 1, 0)}))

	provider.setGate(make(chan struct{}))
	require.NoError(t, c.Resolve(ctx, 1, verse("Luke", 1, 1, 0)))
	require.NoError(t, c.Resolve(ctx, 1, verse("Mark", 1, 1, 0)))
	close(provider.gate)
	c.Wait()

	st, ok := c.DisplayState(1).(ShowingVerse)
	require.True(t, ok)
	assert.Equal(t, "Mark 1:1", st.Content.Reference)
	assert.NotNil(t, c.GetCached(verse("Luke", 1, 1, 0)))
}

func TestCloseTabStartsFresh(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider)
	ctx := context.Background()

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 1, 1, 0)))
	c.Wait()
	require.Equal(t, KindShowingVerse, c.DisplayState(1).Kind())

	c.CloseTab(1)
	assert.Equal(t, Idle{}, c.DisplayState(1))
	_, ok := c.Store().Get(session.DisplayKey(1))
	assert.False(t, ok)

	provider.setGate(make(chan struct{}))
	require.NoError(t, c.Resolve(ctx, 1, verse("John", 1, 2, 0)))
	assert.Equal(t, KindLoading, c.DisplayState(1).Kind())
	close(provider.gate)
	c.Wait()
	assert.Equal(t, KindShowingVerse, c.DisplayState(1).Kind())
}

func TestClosedTabDropsInFlightResult(t *testing.T) {
	provider := &fakeProvider{gate: make(chan struct{})}
	c := New(provider)

	require.NoError(t, c.Resolve(context.Background(), 1, verse("John", 1, 1, 0)))
	c.CloseTab(1)
	close(provider.gate)
	c.Wait()

	assert.Equal(t, Idle{}, c.DisplayState(1))
	assert.NotNil(t, c.GetCached(verse("John", 1, 1, 0)))
}

func TestTranslationIsPartOfCacheSlot(t *testing.T) {
	provider := &fakeProvider{}
	c := New(provider, WithTranslation("KJV"))
	ctx := context.Background()

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 3, 16, 0)))
	c.Wait()
	require.NotNil(t, c.GetCached(verse("John", 3, 16, 0)))

	c.SetTranslation("WEB")
	assert.Equal(t, "WEB", c.Translation())
	assert.Nil(t, c.GetCached(verse("John", 3, 16, 0)))

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 3, 16, 0)))
	c.Wait()
	st, ok := c.DisplayState(1).(ShowingVerse)
	require.True(t, ok)
	assert.Equal(t, "WEB", st.Content.Translation)

	verseCalls, _, _ := provider.calls()
	assert.Equal(t, 2, verseCalls)
}

// translationGates holds each translation's fetches until its gate closes.
type translationGates struct {
	fakeProvider
	gates map[string]chan struct{}
	fail  map[string]error
}

func (g *translationGates) FetchVerse(_ context.Context, _ bible.Reference, tr string) (string, error) {
	<-g.gates[tr]
	if err := g.fail[tr]; err != nil {
		return "", err
	}
	return tr + " text", nil
}

func TestResultFromPreviousTranslationIsNotShown(t *testing.T) {
	provider := &translationGates{
		gates: map[string]chan struct{}{"NKJV": make(chan struct{}), "KJV": make(chan struct{})},
		fail:  map[string]error{"KJV": errors.New("bolls: server error")},
	}
	c := New(provider)
	ctx := context.Background()
	ref := verse("John", 3, 16, 0)

	filled := c.Store().Subscribe(session.Exactly(session.VerseKey(ref.Key())))
	defer filled.Close()

	require.NoError(t, c.Resolve(ctx, 1, ref))
	c.SetTranslation("KJV")
	require.NoError(t, c.Resolve(ctx, 1, ref))
	assert.Equal(t, Loading{Reference: ref, Translation: "KJV"}, c.DisplayState(1))

	close(provider.gates["NKJV"])
	select {
	case change := <-filled.C:
		assert.Equal(t, "NKJV", change.Value.(bible.VerseContent).Translation)
	case <-time.After(time.Second):
		t.Fatal("NKJV fetch did not complete")
	}
	assert.Equal(t, Loading{Reference: ref, Translation: "KJV"}, c.DisplayState(1))

	close(provider.gates["KJV"])
	c.Wait()

	st, ok := c.DisplayState(1).(Error)
	require.True(t, ok, "got %#v", c.DisplayState(1))
	assert.Equal(t, ref, st.Reference)
	assert.Contains(t, st.Message, "server error")
}

type surfaceRecorder struct {
	mu    sync.Mutex
	calls []surfaceCall
}

func (r *surfaceRecorder) SetEnabled(tab TabID, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, surfaceCall{tab: tab, enabled: enabled})
}

func (r *surfaceRecorder) take() []surfaceCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.calls
	r.calls = nil
	return out
}

func TestSurfaceEnablement(t *testing.T) {
	surfaces := &surfaceRecorder{}
	c := New(&fakeProvider{}, WithSurfaces(surfaces))
	ctx := context.Background()

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 1, 1, 0)))
	assert.Equal(t, []surfaceCall{{tab: 1, enabled: true}}, surfaces.take())

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 1, 2, 0)))
	assert.Empty(t, surfaces.take())

	c.TabActivated(2)
	assert.Equal(t, []surfaceCall{{tab: 1, enabled: false}}, surfaces.take())

	require.NoError(t, c.Resolve(ctx, 2, verse("John", 1, 1, 0)))
	assert.Equal(t, []surfaceCall{{tab: 2, enabled: true}}, surfaces.take())

	c.TabActivated(1)
	assert.Equal(t, []surfaceCall{{tab: 2, enabled: false}, {tab: 1, enabled: true}}, surfaces.take())

	c.CloseTab(1)
	c.TabActivated(3)
	assert.Empty(t, surfaces.take())

	c.Wait()
}

func TestFirstLookupDisablesCurrentSurface(t *testing.T) {
	surfaces := &surfaceRecorder{}
	c := New(&fakeProvider{}, WithSurfaces(surfaces))
	ctx := context.Background()

	require.NoError(t, c.Resolve(ctx, 1, verse("John", 1, 1, 0)))
	assert.Equal(t, []surfaceCall{{tab: 1, enabled: true}}, surfaces.take())

	require.NoError(t, c.Resolve(ctx, 2, verse("John", 1, 2, 0)))
	assert.Equal(t, []surfaceCall{{tab: 1, enabled: false}, {tab: 2, enabled: true}}, surfaces.take())

	c.TabActivated(1)
	assert.Equal(t, []surfaceCall{{tab: 2, enabled: false}, {tab: 1, enabled: true}}, surfaces.take())

	c.Wait()
}

func TestSubscribeStreamsDisplayChanges(t *testing.T) {
	c := New(&fakeProvider{})
	sub := c.Subscribe(1)
	defer sub.Close()

	require.NoError(t, c.Resolve(context.Background(), 1, verse("John", 1, 1, 0)))
	c.Wait()
	c.CloseTab(1)

	var kinds []Kind
	for range 3 {
		ev, ok := StateChange(<-sub.C)
		require.True(t, ok)
		assert.Equal(t, TabID(1), ev.TabID)
		kinds = append(kinds, ev.State.Kind())
	}
	assert.Equal(t, []Kind{KindLoading, KindShowingVerse, KindIdle}, kinds)
}

func TestLaggingSubscriberReadsLatestState(t *testing.T) {
	c := New(&fakeProvider{}, WithStore(session.New(session.WithBuffer(1))))
	sub := c.Subscribe(1)
	defer sub.Close()

	ctx := context.Background()
	for v := 1; v <= 3; v++ {
		require.NoError(t, c.Resolve(ctx, 1, verse("John", 1, v, 0)))
		c.Wait()
	}

	ev, ok := StateChange(<-sub.C)
	require.True(t, ok)
	assert.Equal(t, KindLoading, ev.State.Kind())
	assert.Empty(t, sub.C)

	st, ok := c.DisplayState(1).(ShowingVerse)
	require.True(t, ok)
	assert.Equal(t, "John 1:3", st.Content.Reference)
}

func TestCacheFillsAreMirrored(t *testing.T) {
	c := New(&fakeProvider{})
	require.NoError(t, c.Resolve(context.Background(), 1, bible.Reference{Book: "1 John", Chapter: 2}))
	c.Wait()

	v, ok := c.Store().Get(session.ChapterKey("1 John", 2))
	require.True(t, ok)
	assert.Equal(t, "1 John", v.(bible.ChapterContent).Book)

	_, ok = c.Store().Get(session.VerseKey("1 John 2"))
	assert.True(t, ok)
}

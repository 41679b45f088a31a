package assistant

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/module/market/model"
	"campusmarket/service/api"
	"campusmarket/storage"
)

type fakeSearcher struct {
	calls   int
	lastCtx model.SearchCriteria
	result  *api.SearchResult
	err     error
}

func (f *fakeSearcher) AISearch(ctx context.Context, query string, sctx *model.SearchCriteria) (*api.SearchResult, error) {
	f.calls++
	if sctx != nil {
		f.lastCtx = *sctx
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &api.SearchResult{}, nil
}

func bikes() *api.SearchResult {
	return &api.SearchResult{
		Items: []model.ItemSummary{
			{ID: 1, Title: "Road Bike", Price: 150, Condition: model.ConditionGood},
			{ID: 2, Title: "Kids Bike", Price: 40, Condition: model.ConditionFair},
		},
		Criteria: model.SearchCriteria{ProductNames: []string{"bike"}},
		Method:   "keyword",
	}
}

func newTestSession(t *testing.T) (*Session, *fakeSearcher, storage.Store) {
	t.Helper()
	store := storage.NewMemory()
	search := &fakeSearcher{}
	s := NewSession(store, search, nil, 0)
	s.Init()
	return s, search, store
}

func TestInitSeedsWelcome(t *testing.T) {
	s, _, store := newTestSession(t)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, RoleAssistant, entries[0].Role)
	assert.Equal(t, WelcomeText, entries[0].Content)
	assert.NotEmpty(t, entries[0].ID)

	var persisted []Entry
	ok, err := storage.GetJSON(store, storage.KeyTranscript, &persisted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, persisted, 1)
}

func TestInitLoadsPersistedTranscript(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, storage.SetJSON(store, storage.KeyTranscript, []Entry{
		{ID: "w", Role: RoleAssistant, Content: WelcomeText},
		{ID: "u", Role: RoleUser, Content: "bikes"},
	}))
	require.NoError(t, storage.SetJSON(store, storage.KeySearchContext,
		model.SearchCriteria{ProductNames: []string{"bike"}}))

	s := NewSession(store, &fakeSearcher{}, nil, 0)
	s.Init()

	entries := s.Entries()
	require.Len(t, entries, 2, "persisted transcript wins over the welcome seed")
	assert.Equal(t, "bikes", entries[1].Content)
	assert.Equal(t, []string{"bike"}, s.Context().ProductNames)
}

func TestDuplicateInitIgnored(t *testing.T) {
	s, search, _ := newTestSession(t)
	search.result = bikes()
	_, err := s.Submit(context.Background(), "bikes")
	require.NoError(t, err)
	before := len(s.Entries())

	s.Init()
	assert.Len(t, s.Entries(), before, "second init must not reseed")
}

func TestSubmitSearchTurn(t *testing.T) {
	s, search, _ := newTestSession(t)
	search.result = bikes()

	reply, err := s.Submit(context.Background(), "bikes")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, reply.Role)
	assert.Len(t, reply.Items, 2)
	assert.Equal(t, 1, search.calls)

	entries := s.Entries()
	require.Len(t, entries, 3) // welcome, user, reply
	assert.Equal(t, RoleUser, entries[1].Role)

	assert.Equal(t, []string{"bike"}, s.Context().ProductNames, "extracted criteria merge into context")
	assert.Len(t, s.Results(), 2)
}

func TestGratitudeSkipsBackend(t *testing.T) {
	s, search, _ := newTestSession(t)

	reply, err := s.Submit(context.Background(), "thanks!")
	require.NoError(t, err)
	assert.Zero(t, search.calls)
	assert.False(t, reply.IsError)
	assert.NotEmpty(t, reply.Content)
}

func TestFilterOnlyTurnIsClientSide(t *testing.T) {
	s, search, _ := newTestSession(t)
	search.result = bikes()
	_, err := s.Submit(context.Background(), "bikes")
	require.NoError(t, err)
	ctxBefore := s.Context()

	reply, err := s.Submit(context.Background(), "under $100")
	require.NoError(t, err)
	assert.Equal(t, 1, search.calls, "refinement must not touch the network")
	require.Len(t, reply.Items, 1)
	assert.Equal(t, "Kids Bike", reply.Items[0].Title)
	assert.Equal(t, ctxBefore, s.Context(), "refinement leaves the context untouched")
	assert.Len(t, s.Results(), 1, "held results replaced by the subset")
}

func TestBackReferenceKeepsContext(t *testing.T) {
	s, search, _ := newTestSession(t)
	search.result = bikes()
	_, err := s.Submit(context.Background(), "bikes")
	require.NoError(t, err)
	ctxBefore := s.Context()

	// Names a product noun, so it classifies as a search; built on a
	// back-reference, so the merged criteria must not move.
	search.result = &api.SearchResult{
		Items:    bikes().Items[:1],
		Criteria: model.SearchCriteria{ProductNames: []string{"these"}},
	}
	_, err = s.Submit(context.Background(), "show me those bikes again")
	require.NoError(t, err)
	assert.Equal(t, 2, search.calls)
	assert.Equal(t, ctxBefore, s.Context())
	assert.Equal(t, ctxBefore, search.lastCtx, "carried context rides along")
}

func TestSearchFailureKeepsTranscript(t *testing.T) {
	s, search, _ := newTestSession(t)
	search.err = errors.New("gateway timeout")

	reply, err := s.Submit(context.Background(), "bikes")
	require.Error(t, err)
	assert.True(t, reply.IsError)

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.True(t, entries[2].IsError)
	assert.Empty(t, s.Results())
}

func TestReset(t *testing.T) {
	s, search, store := newTestSession(t)
	search.result = bikes()
	_, err := s.Submit(context.Background(), "bikes")
	require.NoError(t, err)

	s.Reset()

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, WelcomeText, entries[0].Content)
	assert.Empty(t, s.Context().ProductNames)
	assert.Empty(t, s.Results())

	_, ok, err := store.Get(storage.KeySearchContext)
	require.NoError(t, err)
	assert.False(t, ok, "persisted context cleared on reset")
}

func TestTranscriptCapPreservesWelcome(t *testing.T) {
	store := storage.NewMemory()
	search := &fakeSearcher{result: bikes()}
	s := NewSession(store, search, nil, 7)
	s.Init()

	for i := 0; i < 10; i++ {
		_, err := s.Submit(context.Background(), fmt.Sprintf("bikes batch %d", i))
		require.NoError(t, err)
	}

	entries := s.Entries()
	require.Len(t, entries, 7)
	assert.Equal(t, WelcomeText, entries[0].Content, "welcome survives trimming")
	assert.Equal(t, "bikes batch 9", entries[len(entries)-2].Content)
}

func TestOpenFlagPersists(t *testing.T) {
	store := storage.NewMemory()
	s := NewSession(store, &fakeSearcher{}, nil, 0)
	s.Init()

	assert.False(t, s.Open())
	s.SetOpen(true)
	assert.True(t, s.Open())

	reloaded := NewSession(store, &fakeSearcher{}, nil, 0)
	reloaded.Init()
	assert.True(t, reloaded.Open())

	s.SetOpen(false)
	assert.False(t, reloaded.Open())
}

func TestEmptyQueryRejected(t *testing.T) {
	s, search, _ := newTestSession(t)
	_, err := s.Submit(context.Background(), "   ")
	require.Error(t, err)
	assert.Zero(t, search.calls)
	assert.Len(t, s.Entries(), 1)
}

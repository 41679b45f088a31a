// Package assistant keeps the AI-search chat transcript and its
// inferred filter context durable across navigation and restarts, and
// decides per turn whether a query needs the backend at all.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusmarket/logger"
	"campusmarket/module/market/model"
	"campusmarket/service/api"
	"campusmarket/storage"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one transcript line. Assistant entries may carry the
// result set of the turn and the filters the backend relaxed.
type Entry struct {
	ID        string              `json:"id"`
	Role      Role                `json:"role"`
	Content   string              `json:"content"`
	Items     []model.ItemSummary `json:"items,omitempty"`
	Relaxed   []string            `json:"relaxed,omitempty"`
	IsError   bool                `json:"is_error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

func newEntry(role Role, content string) Entry {
	return Entry{ID: uuid.NewString(), Role: role, Content: content, CreatedAt: time.Now()}
}

// Searcher is the backend slice the session consumes.
type Searcher interface {
	AISearch(ctx context.Context, query string, sctx *model.SearchCriteria) (*api.SearchResult, error)
}

const WelcomeText = "Hi! I can help you find items on the marketplace. " +
	"Try something like \"textbooks under $30\" or \"a bike in good condition\"."

// Back-reference terms: a query built around these refers to the
// previous result set, so the accumulated context must not move.
var backReferences = []string{"it", "those", "them", "these", "that", "this", "ones"}

type Session struct {
	store      storage.Store
	search     Searcher
	classifier Classifier
	capacity   int

	mu          sync.Mutex
	entries     []Entry
	sctx        model.SearchCriteria
	results     []model.ItemSummary
	initialized bool
}

// NewSession wires the transcript store. capacity bounds the
// transcript; oldest entries after the welcome line are trimmed.
func NewSession(store storage.Store, search Searcher, classifier Classifier, capacity int) *Session {
	if classifier == nil {
		classifier = NewHeuristic()
	}
	if capacity <= 0 {
		capacity = 200
	}
	return &Session{
		store:      store,
		search:     search,
		classifier: classifier,
		capacity:   capacity,
	}
}

// Init loads the persisted transcript, seeding the single welcome
// entry when none exists. Running Init twice is detected and logged;
// the persisted transcript always wins over a re-seed.
func (s *Session) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		logger.Warn("[assistant] duplicate init ignored; keeping existing transcript")
		return
	}
	s.initialized = true

	var persisted []Entry
	ok, err := storage.GetJSON(s.store, storage.KeyTranscript, &persisted)
	if err != nil {
		logger.Warnf("[assistant] load transcript: %v", err)
	}
	if ok && len(persisted) > 0 {
		s.entries = persisted
	} else {
		s.entries = []Entry{newEntry(RoleAssistant, WelcomeText)}
		s.persistLocked()
	}

	var sctx model.SearchCriteria
	if ok, err := storage.GetJSON(s.store, storage.KeySearchContext, &sctx); err != nil {
		logger.Warnf("[assistant] load context: %v", err)
	} else if ok {
		s.sctx = sctx
	}
}

// Entries returns a copy of the transcript.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Context returns the accumulated search criteria.
func (s *Session) Context() model.SearchCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sctx
}

// Results returns the currently held result set.
func (s *Session) Results() []model.ItemSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ItemSummary(nil), s.results...)
}

// Submit handles one user turn and returns the assistant's reply
// entry. Backend failures yield an error-flagged entry plus the error;
// the transcript stays intact either way.
func (s *Session) Submit(ctx context.Context, query string) (Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Entry{}, fmt.Errorf("assistant: empty query")
	}

	s.mu.Lock()
	s.entries = append(s.entries, newEntry(RoleUser, query))
	hasResults := len(s.results) > 0
	s.persistLocked()
	s.mu.Unlock()

	var reply Entry
	var err error
	switch s.classifier.Classify(query, hasResults) {
	case KindGratitude:
		reply = newEntry(RoleAssistant, "You're welcome! Let me know if you want to find anything else.")
	case KindFilterOnly:
		reply = s.refine(query)
	default:
		reply, err = s.query(ctx, query)
	}

	s.mu.Lock()
	s.entries = append(s.entries, reply)
	s.trimLocked()
	s.persistLocked()
	s.mu.Unlock()
	return reply, err
}

// refine narrows the held result set without touching the network or
// the accumulated context.
func (s *Session) refine(query string) Entry {
	r := ParseRefinement(query)

	s.mu.Lock()
	filtered := Apply(s.results, r)
	s.results = filtered
	s.mu.Unlock()

	content := fmt.Sprintf("Narrowed it down to %d item(s).", len(filtered))
	if len(filtered) == 0 {
		content = "None of the current results match that filter. Try a new search?"
	}
	e := newEntry(RoleAssistant, content)
	e.Items = filtered
	return e
}

// query asks the backend, carrying the accumulated context. On
// success the extracted criteria are merged back in, unless the query
// was a back-reference, which resolves against the previous context
// and must leave it untouched.
func (s *Session) query(ctx context.Context, query string) (Entry, error) {
	s.mu.Lock()
	sctx := s.sctx
	s.mu.Unlock()

	res, err := s.search.AISearch(ctx, query, &sctx)
	if err != nil {
		logger.Warnf("[assistant] search failed: %v", err)
		e := newEntry(RoleAssistant, "Sorry, I couldn't reach the marketplace just now. Please try again.")
		e.IsError = true
		return e, err
	}

	s.mu.Lock()
	s.results = res.Items
	if !isBackReference(query) {
		s.sctx = s.sctx.Merge(res.Criteria)
		if perr := storage.SetJSON(s.store, storage.KeySearchContext, s.sctx); perr != nil {
			logger.Warnf("[assistant] persist context: %v", perr)
		}
	}
	s.mu.Unlock()

	content := fmt.Sprintf("I found %d item(s) for you.", len(res.Items))
	if len(res.Items) == 0 {
		content = "I couldn't find anything matching that. Want to try different terms?"
	} else if len(res.Relaxed) > 0 {
		content = fmt.Sprintf("I found %d item(s) after relaxing: %s.",
			len(res.Items), strings.Join(res.Relaxed, ", "))
	}
	e := newEntry(RoleAssistant, content)
	e.Items = res.Items
	e.Relaxed = res.Relaxed
	return e, nil
}

// Open reports the persisted panel-open flag.
func (s *Session) Open() bool {
	v, ok, err := s.store.Get(storage.KeyAssistantOpen)
	if err != nil {
		logger.Warnf("[assistant] read open flag: %v", err)
		return false
	}
	return ok && v == "true"
}

// SetOpen persists the panel-open flag so the state survives restarts.
func (s *Session) SetOpen(open bool) {
	var err error
	if open {
		err = s.store.Set(storage.KeyAssistantOpen, "true")
	} else {
		err = s.store.Remove(storage.KeyAssistantOpen)
	}
	if err != nil {
		logger.Warnf("[assistant] persist open flag: %v", err)
	}
}

// Reset clears the session back to the single welcome entry. Called on
// logout.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []Entry{newEntry(RoleAssistant, WelcomeText)}
	s.sctx = model.SearchCriteria{}
	s.results = nil
	if err := s.store.Remove(storage.KeySearchContext); err != nil {
		logger.Warnf("[assistant] clear context: %v", err)
	}
	s.persistLocked()
}

// trimLocked enforces the transcript cap, preserving the welcome
// entry at the head.
func (s *Session) trimLocked() {
	if len(s.entries) <= s.capacity {
		return
	}
	head := s.entries[0]
	tail := s.entries[len(s.entries)-(s.capacity-1):]
	s.entries = append([]Entry{head}, tail...)
}

// persistLocked writes the transcript; failures are logged and
// otherwise ignored.
func (s *Session) persistLocked() {
	if err := storage.SetJSON(s.store, storage.KeyTranscript, s.entries); err != nil {
		logger.Warnf("[assistant] persist transcript: %v", err)
	}
}

// isBackReference reports whether the query leans on the previous
// result set ("show me cheaper ones") rather than naming products.
func isBackReference(query string) bool {
	q := normalize(query)
	for _, term := range backReferences {
		if containsWord(q, term) {
			return true
		}
	}
	return false
}

package application_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// --- GitHub client ---

type mockGitHubClient struct {
	mu       sync.Mutex
	login    string
	loginErr error
	results  map[model.QueryCategory]model.SearchResult
	errs     map[model.QueryCategory]error
	queries  []string
	userHits int
}

func newMockGitHubClient(login string) *mockGitHubClient {
	return &mockGitHubClient{
		login:   login,
		results: map[model.QueryCategory]model.SearchResult{},
		errs:    map[model.QueryCategory]error{},
	}
}

func (m *mockGitHubClient) AuthenticatedUser(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userHits++
	if m.loginErr != nil {
		return "", m.loginErr
	}
	return m.login, nil
}

func (m *mockGitHubClient) SearchPullRequests(_ context.Context, category model.QueryCategory, query string) (model.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if err := m.errs[category]; err != nil {
		return model.SearchResult{}, err
	}
	return m.results[category], nil
}

func (m *mockGitHubClient) set(category model.QueryCategory, prs []model.PullRequest, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[category] = model.SearchResult{PRs: prs, Changed: changed}
}

// --- Stores ---

type mockCredentialStore struct {
	mu    sync.Mutex
	token string
}

func (m *mockCredentialStore) GetToken(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *mockCredentialStore) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *mockCredentialStore) HasToken(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "", nil
}

func (m *mockCredentialStore) DeleteToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

type mockSettingsStore struct {
	mu       sync.Mutex
	settings model.Settings
	saves    int
	saveErr  error
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{settings: model.DefaultSettings()}
}

func (m *mockSettingsStore) Get(_ context.Context) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *mockSettingsStore) Save(_ context.Context, settings model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.settings = settings
	m.saves++
	return nil
}

type mockSeenStore struct {
	mu      sync.Mutex
	entries []model.SeenEntry
	saves   int
}

func (m *mockSeenStore) List(_ context.Context) ([]model.SeenEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SeenEntry(nil), m.entries...), nil
}

func (m *mockSeenStore) Save(_ context.Context, entries []model.SeenEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]model.SeenEntry(nil), entries...)
	m.saves++
	return nil
}

func (m *mockSeenStore) keys() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.entries))
	for _, e := range m.entries {
		out[e.Key] = true
	}
	return out
}

type mockSnoozeStore struct {
	mu     sync.Mutex
	until  time.Time
	clears int
}

func (m *mockSnoozeStore) Until(_ context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.until, nil
}

func (m *mockSnoozeStore) Set(_ context.Context, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until = until
	return nil
}

func (m *mockSnoozeStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until = time.Time{}
	m.clears++
	return nil
}

func (m *mockSnoozeStore) ClearIfExpired(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.until.IsZero() && !m.until.After(now) {
		m.until = time.Time{}
		m.clears++
	}
	return nil
}

// --- Status, scheduling, delivery ---

type recordingStatus struct {
	mu       sync.Mutex
	states   []model.TrayState
	tooltips []string
}

func (r *recordingStatus) SetStatus(state model.TrayState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingStatus) SetTooltip(tooltip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tooltips = append(r.tooltips, tooltip)
}

func (r *recordingStatus) lastState() model.TrayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

func (r *recordingStatus) lastTooltip() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tooltips) == 0 {
		return ""
	}
	return r.tooltips[len(r.tooltips)-1]
}

type manualTask struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	stopped  bool
}

func (t *manualTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *manualTask) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire runs the callback unless the task was stopped.
func (t *manualTask) fire() {
	if t.isStopped() {
		return
	}
	t.fn()
}

// manualScheduler records tasks; tests fire them explicitly.
type manualScheduler struct {
	mu     sync.Mutex
	every  []*manualTask
	afters []*manualTask
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) driven.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{interval: interval, fn: fn}
	s.every = append(s.every, t)
	return t
}

func (s *manualScheduler) After(delay time.Duration, fn func()) driven.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{interval: delay, fn: fn}
	s.afters = append(s.afters, t)
	return t
}

func (s *manualScheduler) lastEvery() *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.every) == 0 {
		return nil
	}
	return s.every[len(s.every)-1]
}

func (s *manualScheduler) lastAfter() *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.afters) == 0 {
		return nil
	}
	return s.afters[len(s.afters)-1]
}

type dispatchCall struct {
	prs   []model.PullRequest
	prefs model.DeliveryPrefs
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []dispatchCall
	// block, when set, is waited on inside Dispatch.
	block chan struct{}
	// entered is closed on the first Dispatch call when set.
	entered chan struct{}
}

func (r *recordingNotifier) Dispatch(_ context.Context, prs []model.PullRequest, prefs model.DeliveryPrefs) {
	r.mu.Lock()
	r.calls = append(r.calls, dispatchCall{prs: prs, prefs: prefs})
	entered := r.entered
	r.entered = nil
	block := r.block
	r.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
}

func (r *recordingNotifier) dispatched() []dispatchCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatchCall(nil), r.calls...)
}

type recordingToaster struct {
	mu     sync.Mutex
	toasts []driven.Toast
	err    error
}

func (r *recordingToaster) Show(_ context.Context, toast driven.Toast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast)
	return r.err
}

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
	// failAt makes the call with this zero-based index fail; -1 disables.
	failAt int
	err    error
}

func (r *recordingSpeaker) Speak(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := len(r.spoken)
	r.spoken = append(r.spoken, text)
	if r.err != nil && idx == r.failAt {
		return r.err
	}
	return nil
}

type recordingPlayer struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingPlayer) Play(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

type recordingMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	fresh      int
	suppressed int
	tracked    int
}

func (r *recordingMetrics) CycleCompleted(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) NewPullRequests(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fresh += count
}

func (r *recordingMetrics) DeliverySuppressed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppressed++
}

func (r *recordingMetrics) Tracked(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked = count
}

// --- Clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func pr(repo string, number int, title string) model.PullRequest {
	return model.PullRequest{
		Number:       number,
		Title:        title,
		RepoFullName: repo,
		Author:       "octocat",
		URL:          "https://github.com/" + repo + "/pull/" + strconv.Itoa(number),
	}
}

package tracking

import "sync"

// Visibility of the hosting page/window.
type Visibility string

const (
	Visible Visibility = "visible"
	Hidden  Visibility = "hidden"
)

// Environment is the hosting runtime the Tracker listens to.
type Environment interface {
	// Path returns the path currently displayed.
	Path() string
	// OnVisibilityChange registers fn; the returned func removes it.
	OnVisibilityChange(fn func(Visibility)) (remove func())
	// OnNavigation registers fn, called on back/forward navigation; the returned func removes it.
	OnNavigation(fn func()) (remove func())
}

// Signals is an in-process Environment fed by the embedding runtime.
// Listeners are called synchronously, outside of the internal lock.
type Signals struct {
	mu         sync.Mutex
	path       string
	visibility Visibility
	nextID     int
	visListen  map[int]func(Visibility)
	navListen  map[int]func()
}

var _ Environment = (*Signals)(nil)

func NewSignals(path string) *Signals {
	if path == "" {
		path = "/"
	}
	return &Signals{
		path:       path,
		visibility: Visible,
		visListen:  make(map[int]func(Visibility)),
		navListen:  make(map[int]func()),
	}
}

func (s *Signals) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *Signals) Visibility() Visibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibility
}

// SetPath changes the current path without notifying anyone (eg. a full page load).
func (s *Signals) SetPath(path string) {
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
}

// SetVisibility notifies the visibility listeners when `v` differs from the current visibility.
func (s *Signals) SetVisibility(v Visibility) {
	s.mu.Lock()
	if v == s.visibility {
		s.mu.Unlock()
		return
	}
	s.visibility = v
	fns := make([]func(Visibility), 0, len(s.visListen))
	for _, fn := range s.visListen {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Navigate changes the current path and notifies the navigation listeners.
func (s *Signals) Navigate(path string) {
	s.mu.Lock()
	s.path = path
	fns := make([]func(), 0, len(s.navListen))
	for _, fn := range s.navListen {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Signals) OnVisibilityChange(fn func(Visibility)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.visListen[id] = fn
	return s.remover(func() { delete(s.visListen, id) })
}

func (s *Signals) OnNavigation(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.navListen[id] = fn
	return s.remover(func() { delete(s.navListen, id) })
}

func (s *Signals) remover(del func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			del()
			s.mu.Unlock()
		})
	}
}

// Listeners returns the number of registered visibility and navigation listeners.
func (s *Signals) Listeners() (visibility, navigation int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visListen), len(s.navListen)
}

package wizard

import "fmt"

// Snapshot is the serializable state of a Machine. The camera is not part
// of it.
type Snapshot struct {
	Screen    Screen   `json:"screen"`
	Draft     *Draft   `json:"draft"`
	User      string   `json:"user,omitempty"`
	Selected  string   `json:"selectedSubmission,omitempty"`
	Submitted int      `json:"submitted"`
	Last      *Receipt `json:"lastReceipt,omitempty"`
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Screen:    m.screen,
		Draft:     m.draft.Clone(),
		User:      m.user,
		Selected:  m.selected,
		Submitted: m.submitted,
		Last:      m.last,
	}
}

// Restore rebuilds a Machine from a snapshot.
func Restore(s Snapshot, auth Authenticator, submitter Submitter, opts ...Option) (*Machine, error) {
	if !s.Screen.Valid() {
		return nil, fmt.Errorf("invalid screen %s", s.Screen)
	}
	m := New(auth, submitter, opts...)
	m.screen = s.Screen
	if s.Draft != nil {
		m.draft = s.Draft.Clone()
	}
	m.user = s.User
	m.selected = s.Selected
	m.submitted = s.Submitted
	m.last = s.Last
	return m, nil
}

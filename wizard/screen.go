// Package wizard drives the multi-role submission wizard: a per-role linear
// sequence of screens, the draft being filled in, and the camera used on
// the capture screen.
package wizard

import "fmt"

type Role string

const (
	RoleNone     Role = ""
	RoleTenant   Role = "tenant"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

type ScreenID string

const (
	ScreenLogin            ScreenID = "login"
	ScreenAddress          ScreenID = "address"
	ScreenInstructions     ScreenID = "instructions"
	ScreenExamplePhoto     ScreenID = "example-photo"
	ScreenPhotoCapture     ScreenID = "photo-capture"
	ScreenPhotoComparison  ScreenID = "photo-comparison"
	ScreenAssessment       ScreenID = "assessment"
	ScreenDescription      ScreenID = "description"
	ScreenThankYou         ScreenID = "thank-you"
	ScreenDashboard        ScreenID = "dashboard"
	ScreenDone             ScreenID = "done"
	ScreenSubmissionDetail ScreenID = "submission-detail"
	ScreenReport           ScreenID = "report"
)

// Screen is the wizard state: which role's flow and where in it.
type Screen struct {
	Role Role     `json:"role"`
	ID   ScreenID `json:"id"`
}

var LoginScreen = Screen{Role: RoleNone, ID: ScreenLogin}

func (s Screen) String() string {
	if s.Role == RoleNone {
		return string(s.ID)
	}
	return fmt.Sprintf("%s/%s", s.Role, s.ID)
}

// flows is the single transition table. Each role advances through its
// slice in order; login precedes every flow.
var flows = map[Role][]ScreenID{
	RoleTenant: {
		ScreenAddress,
		ScreenInstructions,
		ScreenExamplePhoto,
		ScreenPhotoCapture,
		ScreenPhotoComparison,
		ScreenAssessment,
		ScreenDescription,
		ScreenThankYou,
	},
	RoleEmployee: {
		ScreenDashboard,
		ScreenAddress,
		ScreenPhotoCapture,
		ScreenAssessment,
		ScreenDescription,
		ScreenDone,
	},
	RoleAdmin: {
		ScreenDashboard,
		ScreenSubmissionDetail,
		ScreenReport,
	},
}

// restartAt is where "submit another" lands after a terminal screen.
var restartAt = map[Role]ScreenID{
	RoleTenant:   ScreenExamplePhoto,
	RoleEmployee: ScreenDashboard,
}

// Flow returns the ordered screens of role.
func Flow(role Role) []ScreenID {
	return append([]ScreenID(nil), flows[role]...)
}

// StartScreen is the first screen after logging in as role.
func StartScreen(role Role) (Screen, bool) {
	flow, ok := flows[role]
	if !ok {
		return LoginScreen, false
	}
	return Screen{Role: role, ID: flow[0]}, true
}

func (s Screen) index() int {
	for i, id := range flows[s.Role] {
		if id == s.ID {
			return i
		}
	}
	return -1
}

// Valid reports whether s is login or belongs to its role's flow.
func (s Screen) Valid() bool {
	if s == LoginScreen {
		return true
	}
	return s.index() >= 0
}

// IsTerminal reports whether s is a thank-you or done screen.
func (s Screen) IsTerminal() bool {
	return s.ID == ScreenThankYou || s.ID == ScreenDone
}

func (s Screen) next() (Screen, bool) {
	i := s.index()
	flow := flows[s.Role]
	if i < 0 || i+1 >= len(flow) {
		return s, false
	}
	return Screen{Role: s.Role, ID: flow[i+1]}, true
}

func (s Screen) prev() (Screen, bool) {
	i := s.index()
	if i <= 0 {
		return s, false
	}
	return Screen{Role: s.Role, ID: flows[s.Role][i-1]}, true
}

// RewardLevel names the tenant badge for a number of submissions.
func RewardLevel(submitted int) string {
	switch {
	case submitted >= 10:
		return "Gold"
	case submitted >= 5:
		return "Silver"
	case submitted >= 1:
		return "Bronze"
	default:
		return ""
	}
}

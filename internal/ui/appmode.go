package ui

// AppMode represents the top-level screen.
type AppMode int

const (
	ModeDashboard AppMode = iota
	ModeProjectDetail
	ModeSettings
	ModeDiscover
)

func (m AppMode) String() string {
	switch m {
	case ModeDashboard:
		return "Dashboard"
	case ModeProjectDetail:
		return "ProjectDetail"
	case ModeSettings:
		return "Settings"
	case ModeDiscover:
		return "Discover"
	default:
		return "Unknown"
	}
}

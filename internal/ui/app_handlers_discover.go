package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (a *appModelAdapter) handleShowDiscover() (tea.Model, tea.Cmd) {
	a.Mode = ModeDiscover
	a.Detail = nil
	a.Settings = nil
	a.Discover = NewDiscoverView(a.now)
	if a.width > 0 {
		a.Discover.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	}
	return a, tea.Batch(a.Discover.Init(), discoverCmd(a.gallery))
}

func (a *appModelAdapter) handleDiscoverLoaded(msg DiscoverLoadedMsg) (tea.Model, tea.Cmd) {
	if a.Discover == nil {
		// Left the gallery before the fetch finished.
		return a, nil
	}
	a.Discover.SetResult(msg.Projects, msg.Err)
	if msg.Err != nil {
		a.setError("Couldn't load the gallery: " + msg.Err.Error())
	}
	return a, nil
}

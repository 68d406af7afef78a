// Package ui is the Bubble Tea terminal client for wisp.
//
// Core abstractions:
//   - View: a screen or modal with its own Init/Update/View (Elm-style)
//   - OverlayStack: modals stacked above the current screen; the top one gets input
//   - KeybindRegistry/KeyHandler: SPC-leader key sequences filtered by AppMode
//   - FocusManager: tab order between inputs inside a modal
//
// The project list itself lives in store.Store; views render snapshots of it
// and re-render when a StoreChangedMsg arrives.
package ui

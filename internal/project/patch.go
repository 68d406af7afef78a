package project

import "time"

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name          *string    `json:"name,omitempty"`
	DisplayName   *string    `json:"display_name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Prompt        *string    `json:"prompt,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	StatusMessage *string    `json:"status_message,omitempty"`
	Error         *string    `json:"error,omitempty"`
	CustomDomain  *string    `json:"custom_domain,omitempty"`
	Private       *bool      `json:"private,omitempty"`
	Icon          *string    `json:"icon,omitempty"`
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (pt Patch) Empty() bool {
	return pt.Name == nil && pt.DisplayName == nil && pt.Description == nil &&
		pt.Prompt == nil && pt.Status == nil && pt.StatusMessage == nil &&
		pt.Error == nil && pt.CustomDomain == nil && pt.Private == nil &&
		pt.Icon == nil && pt.LastUpdated == nil
}

// Apply returns a copy of p with the patch applied.
func (pt Patch) Apply(p Project) Project {
	out := p.Clone()
	if pt.Name != nil {
		out.Name = *pt.Name
	}
	if pt.DisplayName != nil {
		out.DisplayName = *pt.DisplayName
	}
	if pt.Description != nil {
		out.Description = *pt.Description
	}
	if pt.Prompt != nil {
		out.Prompt = cloneString(pt.Prompt)
	}
	if pt.Status != nil {
		out.Status = *pt.Status
	}
	if pt.StatusMessage != nil {
		out.StatusMessage = cloneString(pt.StatusMessage)
	}
	if pt.Error != nil {
		out.Error = cloneString(pt.Error)
	}
	if pt.CustomDomain != nil {
		out.CustomDomain = cloneString(pt.CustomDomain)
	}
	if pt.Private != nil {
		out.Private = *pt.Private
	}
	if pt.Icon != nil {
		out.Icon = cloneString(pt.Icon)
	}
	if pt.LastUpdated != nil {
		out.LastUpdated = cloneTime(pt.LastUpdated)
	}
	return out
}

// StatusPatch is shorthand for a patch that only moves the lifecycle state.
func StatusPatch(s Status, message string) Patch {
	pt := Patch{Status: &s}
	if message != "" {
		pt.StatusMessage = &message
	}
	return pt
}

package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	MaxNameLength        = 64
	MaxDescriptionLength = 500
	MaxPromptLength      = 4000
)

// draftValidate is shared; validator.Validate caches struct metadata and is
// safe for concurrent use.
var draftValidate *validator.Validate

func init() {
	draftValidate = validator.New()
	_ = draftValidate.RegisterValidation("subdomain", func(fl validator.FieldLevel) bool {
		return Slugify(fl.Field().String()) != ""
	})
}

// Draft is a new-project request collected by the create wizard.
type Draft struct {
	Name        string `validate:"required,max=64,subdomain"`
	Description string `validate:"required,max=500"`
	Prompt      string `validate:"required,max=4000"`
	Private     bool
	IconPath    string
}

// Normalize trims surrounding whitespace from all text fields.
func (d Draft) Normalize() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Prompt = strings.TrimSpace(d.Prompt)
	d.IconPath = strings.TrimSpace(d.IconPath)
	return d
}

// DetailsComplete reports whether the first wizard step can continue.
func (d Draft) DetailsComplete() bool {
	d = d.Normalize()
	return d.Name != "" && d.Description != ""
}

// Validate checks the draft and returns a readable error naming the first
// offending field.
func (d Draft) Validate() error {
	err := draftValidate.Struct(d.Normalize())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	case "subdomain":
		return fmt.Errorf("%s must contain letters or digits", field)
	}
	return fmt.Errorf("%s is invalid (%s)", field, fe.Tag())
}

// NewRow is the insert payload for a project created directly against the
// table (without going through /api/projects).
type NewRow struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Status      Status `json:"status"`
	UserID      string `json:"user_id"`
	ProjectID   string `json:"project_id"`
	Private     bool   `json:"private"`
}

// Row converts a validated draft into an insert payload owned by userID.
// New projects start in the creating state with a fresh project_id.
func (d Draft) Row(userID string) NewRow {
	d = d.Normalize()
	return NewRow{
		Name:        Slugify(d.Name),
		DisplayName: d.Name,
		Description: d.Description,
		Prompt:      d.Prompt,
		Status:      StatusCreating,
		UserID:      userID,
		ProjectID:   uuid.NewString(),
		Private:     d.Private,
	}
}

// Placeholder builds the optimistic record shown while the create request is
// in flight. It carries a temporary id that the server's row replaces.
func (d Draft) Placeholder(userID string, now time.Time) Project {
	return d.Row(userID).Placeholder(now)
}

// Placeholder builds the optimistic record for r. It shares r's project_id
// so the inserted row can be matched back to it.
func (r NewRow) Placeholder(now time.Time) Project {
	return Project{
		ID:          "tmp-" + uuid.NewString(),
		UserID:      r.UserID,
		ProjectID:   r.ProjectID,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Prompt:      String(r.Prompt),
		Status:      StatusPending,
		CreatedAt:   Time(now),
		LastUpdated: Time(now),
		Private:     r.Private,
	}
}

// IsPlaceholder reports whether id was minted by Placeholder.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, "tmp-")
}

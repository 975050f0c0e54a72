// Package panorama holds the value types shared by the generation
// controller, the viewer lifecycle manager and the catalog gallery.
package panorama

import (
	"unicode/utf8"
)

// MaxPromptLength is the longest prompt (in characters) the generator accepts.
const MaxPromptLength = 600

// Descriptor identifies one panorama that can be shown in a viewer slot.
// It is a value type: replace it, never mutate it in place.
type Descriptor struct {
	// ID is only set for catalog-sourced entries.
	ID          int
	ImageURL    string
	Title       string
	Prompt      string
	Description string
}

// Renderable reports whether the descriptor carries an image a viewer can load.
func (d Descriptor) Renderable() bool {
	return d.ImageURL != ""
}

// DisplayName returns the best human label for the descriptor.
func (d Descriptor) DisplayName() string {
	switch {
	case d.Title != "":
		return d.Title
	case d.Prompt != "":
		return d.Prompt
	default:
		return d.ImageURL
	}
}

// Style is one read-only entry of the remote style catalog.
type Style struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Model           string `json:"model"`
	Description     string `json:"description,omitempty"`
	PreviewImageURL string `json:"image_jpg,omitempty"`
	// LegacyImageURL is the older "image" field some catalog entries still use.
	LegacyImageURL string `json:"image,omitempty"`
}

// ImageURL returns the preview image. The legacy field wins when both are set.
func (s Style) ImageURL() string {
	if s.LegacyImageURL != "" {
		return s.LegacyImageURL
	}
	return s.PreviewImageURL
}

// HasPreview reports whether the style can be shown as a live panorama.
func (s Style) HasPreview() bool {
	return s.ImageURL() != ""
}

// Label formats the style the way the style selector lists it.
func (s Style) Label() string {
	return s.Name + " (Model: " + s.Model + ")"
}

// Descriptor converts the style into a descriptor for the viewer.
func (s Style) Descriptor() Descriptor {
	return Descriptor{
		ID:          s.ID,
		ImageURL:    s.ImageURL(),
		Title:       s.Name,
		Description: s.Description,
	}
}

// FindStyle returns the catalog entry with the given id.
func FindStyle(styles []Style, id int) (Style, bool) {
	for _, s := range styles {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// ValidateRequest checks a generation request before any network call.
func ValidateRequest(prompt string, styleID int) error {
	if prompt == "" {
		return &ValidationError{Field: "prompt", Reason: "Please provide a prompt and select a skybox style"}
	}
	if styleID <= 0 {
		return &ValidationError{Field: "styleId", Reason: "Please provide a prompt and select a skybox style"}
	}
	if n := utf8.RuneCountInString(prompt); n > MaxPromptLength {
		return &ValidationError{Field: "prompt", Reason: "Prompt is too long", Length: n}
	}
	return nil
}

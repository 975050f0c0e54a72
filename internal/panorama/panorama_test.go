package panorama

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name      string
		prompt    string
		styleID   int
		wantField string
	}{
		{"valid", "a misty forest at dawn", 5, ""},
		{"empty prompt", "", 5, "prompt"},
		{"missing style", "a misty forest", 0, "styleId"},
		{"negative style", "a misty forest", -1, "styleId"},
		{"at limit", strings.Repeat("a", MaxPromptLength), 1, ""},
		{"over limit", strings.Repeat("a", MaxPromptLength+1), 1, "prompt"},
		{"multibyte at limit", strings.Repeat("é", MaxPromptLength), 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.prompt, tt.styleID)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateRequest() error = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("ValidateRequest() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidateRequest(strings.Repeat("x", MaxPromptLength+5), 1)
	want := "Prompt is too long (605 > 600 characters)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = ValidateRequest("", 1)
	if err.Error() != "Please provide a prompt and select a skybox style" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestStyleImageURL(t *testing.T) {
	tests := []struct {
		name  string
		style Style
		want  string
	}{
		{"preview only", Style{PreviewImageURL: "https://cdn/a.jpg"}, "https://cdn/a.jpg"},
		{"legacy only", Style{LegacyImageURL: "https://cdn/old.jpg"}, "https://cdn/old.jpg"},
		{"both", Style{PreviewImageURL: "https://cdn/a.jpg", LegacyImageURL: "https://cdn/old.jpg"}, "https://cdn/old.jpg"},
		{"neither", Style{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.style.ImageURL(); got != tt.want {
				t.Errorf("ImageURL() = %q, want %q", got, tt.want)
			}
			if got := tt.style.HasPreview(); got != (tt.want != "") {
				t.Errorf("HasPreview() = %v", got)
			}
		})
	}
}

func TestStyleLabelAndDescriptor(t *testing.T) {
	s := Style{ID: 9, Name: "Fantasy", Model: "Model 3", Description: "dreamy", PreviewImageURL: "https://cdn/f.jpg"}

	if got := s.Label(); got != "Fantasy (Model: Model 3)" {
		t.Errorf("Label() = %q", got)
	}

	d := s.Descriptor()
	want := Descriptor{ID: 9, ImageURL: "https://cdn/f.jpg", Title: "Fantasy", Description: "dreamy"}
	if d != want {
		t.Errorf("Descriptor() = %+v, want %+v", d, want)
	}
	if !d.Renderable() {
		t.Error("Renderable() = false")
	}
}

func TestDescriptorDisplayName(t *testing.T) {
	tests := []struct {
		d    Descriptor
		want string
	}{
		{Descriptor{Title: "T", Prompt: "P", ImageURL: "U"}, "T"},
		{Descriptor{Prompt: "P", ImageURL: "U"}, "P"},
		{Descriptor{ImageURL: "U"}, "U"},
	}
	for _, tt := range tests {
		if got := tt.d.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFindStyle(t *testing.T) {
	styles := []Style{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}

	if s, ok := FindStyle(styles, 2); !ok || s.Name != "b" {
		t.Errorf("FindStyle(2) = %+v, %v", s, ok)
	}
	if _, ok := FindStyle(styles, 3); ok {
		t.Error("FindStyle(3) found a style")
	}
}

func TestJobClone(t *testing.T) {
	neg := "no people"
	j := Job{
		LocalRequestID: 1,
		NegativeText:   &neg,
		Status:         StatusComplete,
		Result:         &Descriptor{ImageURL: "u"},
	}

	c := j.Clone()
	*c.NegativeText = "changed"
	c.Result.ImageURL = "changed"

	if *j.NegativeText != "no people" {
		t.Errorf("NegativeText shared: %q", *j.NegativeText)
	}
	if j.Result.ImageURL != "u" {
		t.Errorf("Result shared: %q", j.Result.ImageURL)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for status, want := range map[JobStatus]bool{
		StatusIdle:      false,
		StatusSubmitted: false,
		StatusPending:   false,
		StatusComplete:  true,
		StatusFailed:    true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")

	var target error = &SubmissionError{Err: cause}
	if !errors.Is(target, cause) {
		t.Error("SubmissionError does not unwrap")
	}
	if target.Error() != "Failed to generate skybox: connection reset" {
		t.Errorf("SubmissionError = %q", target.Error())
	}

	target = &PollTransportError{Handle: "h", Err: cause}
	if !errors.Is(target, cause) {
		t.Error("PollTransportError does not unwrap")
	}

	target = &TextureLoadError{URL: "u", Err: cause}
	if !errors.Is(target, cause) {
		t.Error("TextureLoadError does not unwrap")
	}

	if got := (&GenerationFailedError{}).Error(); got != "Generation failed" {
		t.Errorf("GenerationFailedError{} = %q", got)
	}
	if got := (&GenerationFailedError{Message: "NSFW"}).Error(); got != "NSFW" {
		t.Errorf("GenerationFailedError = %q", got)
	}
}

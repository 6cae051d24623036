package deck

// Slide is the atomic content unit of a deck.
type Slide struct {
	Title                      string `json:"title" mapstructure:"title"`
	Content                    string `json:"content" mapstructure:"content"`
	BackgroundImageDescription string `json:"backgroundImageDescription" mapstructure:"backgroundImageDescription"`
	SpokenNarration            string `json:"spokenNarration" mapstructure:"spokenNarration"`
}

// Patch carries a partial slide update. Nil fields are left untouched.
type Patch struct {
	Title                      *string `json:"title,omitempty"`
	Content                    *string `json:"content,omitempty"`
	BackgroundImageDescription *string `json:"backgroundImageDescription,omitempty"`
	SpokenNarration            *string `json:"spokenNarration,omitempty"`
}

// FullPatch returns a patch that overwrites every field with the values of s.
func FullPatch(s Slide) Patch {
	return Patch{
		Title:                      &s.Title,
		Content:                    &s.Content,
		BackgroundImageDescription: &s.BackgroundImageDescription,
		SpokenNarration:            &s.SpokenNarration,
	}
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.BackgroundImageDescription == nil && p.SpokenNarration == nil
}

func (p Patch) apply(s Slide) Slide {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Content != nil {
		s.Content = *p.Content
	}
	if p.BackgroundImageDescription != nil {
		s.BackgroundImageDescription = *p.BackgroundImageDescription
	}
	if p.SpokenNarration != nil {
		s.SpokenNarration = *p.SpokenNarration
	}
	return s
}

// DefaultSeed is the slide every new deck starts with.
func DefaultSeed() Slide {
	return Slide{
		Title:                      "Welcome to our presentation!",
		Content:                    "This is the first slide.",
		BackgroundImageDescription: "hello",
		SpokenNarration:            "This is the first slide. Welcome to our presentation!",
	}
}

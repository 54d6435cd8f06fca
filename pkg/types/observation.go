package types

// ElementKind classifies an interactive element found on a page.
type ElementKind string

const (
	ElementKindButton ElementKind = "button" // ElementKindButton covers <button> and button-like inputs.
	ElementKindLink   ElementKind = "link"   // ElementKindLink covers anchors with an href.
	ElementKindInput  ElementKind = "input"  // ElementKindInput covers text fields, textareas and selects.
	ElementKindOther  ElementKind = "other"  // ElementKindOther covers anything else that accepts interaction.
)

// InteractiveElement is one element the planner may target.
type InteractiveElement struct {
	Kind     ElementKind `json:"kind"`
	Text     string      `json:"text"`
	Selector string      `json:"selector"`

	// Href is set for links.
	Href string `json:"href,omitempty"`

	// InputType, Placeholder and Name are set for inputs.
	InputType   string `json:"input_type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Observation is a snapshot of the page state. It is produced fresh on
// every observe call and must not be modified afterwards.
type Observation struct {
	URL         string               `json:"url"`
	Title       string               `json:"title"`
	Elements    []InteractiveElement `json:"elements"`
	TextPreview string               `json:"text_preview"`

	// TextLength is the length in characters of the full visible text,
	// before the preview was truncated.
	TextLength int `json:"text_length"`
}

// CountKind returns how many elements of the given kind were observed.
func (o *Observation) CountKind(kind ElementKind) int {
	if o == nil {
		return 0
	}
	n := 0
	for _, el := range o.Elements {
		if el.Kind == kind {
			n++
		}
	}
	return n
}

package domain

import "fmt"

// DefaultTagLabel is the label used when tagging is switched on without a name.
const DefaultTagLabel = "safely"

type tagState uint8

const (
	tagUnset tagState = iota
	tagOff
	tagOn
	tagLabel
)

// Tag identifies a call site in reported messages. The zero value is unset
// and inherits the process default.
type Tag struct {
	state tagState
	label string
}

var (
	// TagOn tags reports with DefaultTagLabel.
	TagOn = Tag{state: tagOn}
	// TagOff disables tagging, overriding any process default.
	TagOff = Tag{state: tagOff}
)

// Label returns a tag with the given label. An empty label is TagOn.
func Label(label string) Tag {
	if label == "" {
		return TagOn
	}
	return Tag{state: tagLabel, label: label}
}

// IsSet reports whether the tag overrides the process default.
func (t Tag) IsSet() bool { return t.state != tagUnset }

// Or returns t when set, otherwise fallback.
func (t Tag) Or(fallback Tag) Tag {
	if t.IsSet() {
		return t
	}
	return fallback
}

// Text returns the label to prefix messages with, and false when no
// prefix applies.
func (t Tag) Text() (string, bool) {
	switch t.state {
	case tagOn:
		return DefaultTagLabel, true
	case tagLabel:
		return t.label, true
	default:
		return "", false
	}
}

func (t Tag) String() string {
	switch t.state {
	case tagUnset:
		return "unset"
	case tagOff:
		return "off"
	default:
		text, _ := t.Text()
		return text
	}
}

// UnmarshalYAML accepts a boolean (on/off) or a string label.
func (t *Tag) UnmarshalYAML(unmarshal func(any) error) error {
	var b bool
	if err := unmarshal(&b); err == nil {
		if b {
			*t = TagOn
		} else {
			*t = TagOff
		}
		return nil
	}

	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("tag must be a boolean or a string: %w", err)
	}
	if s == "" {
		*t = Tag{}
		return nil
	}
	*t = Label(s)
	return nil
}

package content

import "strings"

// LengthClass selects the target size of generated content.
type LengthClass string

const (
	LengthShort  LengthClass = "short"
	LengthMedium LengthClass = "medium"
	LengthLong   LengthClass = "long"
)

// DefaultLength is used for requests naming an unknown length class.
const DefaultLength = LengthMedium

// DefaultTopic is used when a request carries no topic.
const DefaultTopic = "Default Topic"

// TargetChars returns the character budget for the length class.
func (l LengthClass) TargetChars() int {
	switch l {
	case LengthShort:
		return 100
	case LengthLong:
		return 600
	default:
		return 300
	}
}

// ParseLength normalizes a user supplied length class. Unknown names map to DefaultLength.
func ParseLength(s string) LengthClass {
	switch LengthClass(strings.ToLower(strings.TrimSpace(s))) {
	case LengthShort:
		return LengthShort
	case LengthLong:
		return LengthLong
	case LengthMedium:
		return LengthMedium
	default:
		return DefaultLength
	}
}

// Request is an abstract content request. Construct it with NewRequest so
// that the format and length are normalized; the zero value is not useful.
type Request struct {
	topic  string
	format Format
	length LengthClass
}

// NewRequest builds a normalized request. Unsupported formats degrade to
// markdown and unknown length classes to medium; nothing is rejected.
func NewRequest(topic, format, length string) Request {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}
	return Request{
		topic:  topic,
		format: ParseFormat(format),
		length: ParseLength(length),
	}
}

// Topic returns the request topic.
func (r Request) Topic() string { return r.topic }

// Format returns the requested canonical format.
func (r Request) Format() Format { return r.format }

// Length returns the requested length class.
func (r Request) Length() LengthClass { return r.length }

// Input returns the request as a plain map for telemetry snapshots.
func (r Request) Input() map[string]string {
	return map[string]string{
		"topic":  r.topic,
		"format": string(r.format),
		"length": string(r.length),
	}
}

// RequestSpec is the on-disk / wire shape of a request (JSON or YAML).
type RequestSpec struct {
	Topic     string `json:"topic" yaml:"topic"`
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	Length    string `json:"length,omitempty" yaml:"length,omitempty"`
	Iteration int    `json:"iteration,omitempty" yaml:"iteration,omitempty"`
}

// Request converts the spec into a normalized Request.
func (s RequestSpec) Request() Request {
	return NewRequest(s.Topic, s.Format, s.Length)
}

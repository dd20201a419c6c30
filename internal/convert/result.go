package convert

// Status tells whether a conversion produced new output.
type Status string

const (
	StatusConverted   Status = "converted"
	StatusPassthrough Status = "passthrough"
)

// Result is the outcome of one conversion.
type Result struct {
	Body   string
	Status Status
	// Reason explains a passthrough. Empty for converted results.
	Reason string
}

// Converted reports whether the body is a real conversion.
func (r Result) Converted() bool { return r.Status == StatusConverted }

func converted(body string) Result {
	return Result{Body: body, Status: StatusConverted}
}

func passthrough(body, reason string) Result {
	return Result{Body: body, Status: StatusPassthrough, Reason: reason}
}

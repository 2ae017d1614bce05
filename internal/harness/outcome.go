package harness

// Kind classifies how a test body finished.
type Kind int

const (
	Success Kind = iota
	BodyError
	Abnormal
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case BodyError:
		return "body_error"
	case Abnormal:
		return "abnormal"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one Run.
type Outcome struct {
	Kind Kind
	// Message is the body error or the abnormal termination value. Empty on success.
	Message string
}

// Failed reports whether the test must be reported as failed.
func (o Outcome) Failed() bool {
	return o.Kind != Success
}

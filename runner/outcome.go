package runner

// Outcome is the continuation decision derived from an exit status.
type Outcome int

const (
	Continue Outcome = iota
	Stop
)

func (o Outcome) String() string {
	if o == Continue {
		return "continue"
	}
	return "stop"
}

// Classify maps an exit status to a continuation decision under the
// given leniency level. Status 1 is a failure of the system under
// test; anything above 1 is an infrastructure failure. An operator
// stop request overrides everything.
func Classify(status, leniency int, stop bool) Outcome {
	switch {
	case stop:
		return Stop
	case status == 0:
		return Continue
	case status > 1 && leniency >= 1:
		return Continue
	case leniency >= 2:
		return Continue
	}
	return Stop
}

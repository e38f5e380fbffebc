package verdict

// Status is the verdict on one candidate hyperplane
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusConverged Status = "converged"
)

// RejectionReason explains why a candidate was rejected
type RejectionReason string

const (
	ReasonNone           RejectionReason = ""
	ReasonQuestionTrace  RejectionReason = "question_trace"
	ReasonCounterExample RejectionReason = "counter_example"
	ReasonInvalidData    RejectionReason = "invalid_data"
)

// Soundness records whether counterexample states were proven excluded
type Soundness string

const (
	// SoundnessVerified means every counterexample end state lies outside the candidate
	SoundnessVerified Soundness = "verified"
	// SoundnessRejected means some counterexample end state satisfies the candidate
	SoundnessRejected Soundness = "rejected"
	// SoundnessUnverified means the oracle could not answer
	SoundnessUnverified Soundness = "unverified"
	// SoundnessVacuous means there were no counterexamples to check
	SoundnessVacuous Soundness = "vacuous"
)

// Blocking reports whether the candidate must be discarded
func (s Soundness) Blocking() bool {
	return s == SoundnessRejected
}

// Verdict is the outcome of checking one candidate
type Verdict struct {
	Status     Status          `json:"status"`
	Reason     RejectionReason `json:"reason,omitempty"`
	TraceIndex int             `json:"trace_index"`
}

// Accept builds an accepting verdict
func Accept() Verdict {
	return Verdict{Status: StatusAccepted, TraceIndex: -1}
}

// Reject builds a rejecting verdict naming the offending trace
func Reject(reason RejectionReason, traceIndex int) Verdict {
	return Verdict{Status: StatusRejected, Reason: reason, TraceIndex: traceIndex}
}

// Rejected reports whether the candidate was discarded
func (v Verdict) Rejected() bool {
	return v.Status == StatusRejected
}

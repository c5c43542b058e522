package domain

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeEmpty
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	CodeCanceled         = "canceled"
	CodeDeadlineExceeded = "deadline_exceeded"
	CodeUnknown          = "unknown"
)

// Outcome is the tagged result of fetching one universe.
type Outcome struct {
	Kind    OutcomeKind
	Records []Record
	Code    string
}

func Success(records []Record) Outcome {
	if len(records) == 0 {
		return Empty()
	}
	return Outcome{Kind: OutcomeSuccess, Records: records}
}

func Empty() Outcome {
	return Outcome{Kind: OutcomeEmpty}
}

func Failed(code string) Outcome {
	if code == "" {
		code = CodeUnknown
	}
	return Outcome{Kind: OutcomeFailed, Code: code}
}

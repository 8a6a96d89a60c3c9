package domain

// OutcomeKind classifies a single send or a whole batch.
type OutcomeKind string

const (
	OutcomeSuccess         OutcomeKind = "success"
	OutcomeFailedRecipient OutcomeKind = "failed_recipient"
	OutcomeFailed          OutcomeKind = "failed"
)

// IsFailure is true for both failure kinds.
func (k OutcomeKind) IsFailure() bool {
	return k == OutcomeFailed || k == OutcomeFailedRecipient
}

// SendOutcome is the classified result of one transport call.
type SendOutcome struct {
	Kind   OutcomeKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
}

// BatchResult is the reduction of every outcome in a batch. The counters are
// bookkeeping only; Kind and Detail follow the overwrite rule in Record.
type BatchResult struct {
	Kind             OutcomeKind `json:"kind"`
	Detail           string      `json:"detail,omitempty"`
	Attempted        int         `json:"attempted"`
	Succeeded        int         `json:"succeeded"`
	FailedRecipients int         `json:"failed_recipients"`
	Failed           int         `json:"failed"`
}

// NewBatchResult returns the starting aggregate of an empty batch.
func NewBatchResult() BatchResult {
	return BatchResult{Kind: OutcomeSuccess}
}

// Record folds one outcome into the aggregate. A failure of either kind
// replaces the aggregate unless it is already Failed, which is sticky.
func (r *BatchResult) Record(o SendOutcome) {
	r.Attempted++
	switch o.Kind {
	case OutcomeSuccess:
		r.Succeeded++
	case OutcomeFailedRecipient:
		r.FailedRecipients++
	default:
		r.Failed++
	}

	if o.Kind.IsFailure() && r.Kind != OutcomeFailed {
		r.Kind = o.Kind
		r.Detail = o.Detail
	}
}

// Merge folds the result of a later batch into r. Applying Record to every
// outcome of both batches in order gives the same Kind and Detail.
func (r *BatchResult) Merge(later BatchResult) {
	r.Attempted += later.Attempted
	r.Succeeded += later.Succeeded
	r.FailedRecipients += later.FailedRecipients
	r.Failed += later.Failed

	if later.Kind.IsFailure() && r.Kind != OutcomeFailed {
		r.Kind = later.Kind
		r.Detail = later.Detail
	}
}

package recon

import (
	"context"
	"errors"
	"time"

	"github.com/eshaffer321/bank-recon-backend/internal/domain/classifier"
	"github.com/eshaffer321/bank-recon-backend/internal/domain/model"
)

// ErrReviewTimeout is returned when a review request was not answered
// within the run's review timeout. The controller downgrades it to a
// skip rather than failing the transaction.
var ErrReviewTimeout = errors.New("manual review timed out")

// ReviewKind distinguishes the two questions a run can ask an operator.
type ReviewKind string

const (
	// ReviewConfirmMatch asks whether a tier-2/3 candidate is the same
	// transaction.
	ReviewConfirmMatch ReviewKind = "confirm_match"
	// ReviewCategorize asks for a category for an unmatched transaction.
	ReviewCategorize ReviewKind = "categorize"
)

// ReviewRequest is the message the decision controller hands to its
// caller instead of prompting directly. The same run core works behind a
// CLI prompt, an HTTP queue, or a headless auto-skip.
type ReviewRequest struct {
	Kind        ReviewKind
	Transaction model.BankTransaction

	// Candidate is set for ReviewConfirmMatch.
	Candidate *model.MatchCandidate

	// The remaining fields are set for ReviewCategorize.
	Prediction           string
	PredictionConfidence float64
	Similar              []classifier.Similar
	Categories           []model.Category
}

// ReviewDecision is the operator's answer.
type ReviewDecision struct {
	// Confirmed answers ReviewConfirmMatch: the candidate is the same
	// transaction.
	Confirmed bool
	// Category and Counterparty answer ReviewCategorize.
	Category     string
	Counterparty string
	// Skip leaves the transaction unresolved for a future run.
	Skip bool
}

// Reviewer answers review requests. Implementations must honor ctx;
// blocking forever stalls the whole run.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (ReviewDecision, error)
}

// AutoSkipReviewer skips every request. It is the headless default.
type AutoSkipReviewer struct{}

func (AutoSkipReviewer) Review(context.Context, ReviewRequest) (ReviewDecision, error) {
	return ReviewDecision{Skip: true}, nil
}

// TimeoutReviewer bounds another reviewer with a deadline. A request
// that is not answered in time yields ErrReviewTimeout.
type TimeoutReviewer struct {
	Inner   Reviewer
	Timeout time.Duration
}

func (r TimeoutReviewer) Review(ctx context.Context, req ReviewRequest) (ReviewDecision, error) {
	if r.Timeout <= 0 {
		return r.Inner.Review(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	type answer struct {
		decision ReviewDecision
		err      error
	}
	ch := make(chan answer, 1)
	go func() {
		d, err := r.Inner.Review(ctx, req)
		ch <- answer{d, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil && errors.Is(a.err, context.DeadlineExceeded) {
			return ReviewDecision{}, ErrReviewTimeout
		}
		return a.decision, a.err
	case <-ctx.Done():
		return ReviewDecision{}, ErrReviewTimeout
	}
}

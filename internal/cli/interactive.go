package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eshaffer321/bank-recon-backend/internal/application/recon"
)

// InteractiveReviewer answers review requests by prompting on the
// terminal. Wrap it in a recon.TimeoutReviewer when unattended runs
// must not stall.
type InteractiveReviewer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractiveReviewer creates a reviewer reading from in and
// prompting on out.
func NewInteractiveReviewer(in io.Reader, out io.Writer) *InteractiveReviewer {
	return &InteractiveReviewer{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Review prompts for one decision.
func (r *InteractiveReviewer) Review(ctx context.Context, req recon.ReviewRequest) (recon.ReviewDecision, error) {
	if err := ctx.Err(); err != nil {
		return recon.ReviewDecision{}, err
	}

	tx := req.Transaction
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%s  %10.2f  %s\n", tx.Date.Format("2006-01-02"), tx.Amount, tx.RawDescription)

	switch req.Kind {
	case recon.ReviewConfirmMatch:
		return r.confirmMatch(req)
	default:
		return r.categorize(req)
	}
}

func (r *InteractiveReviewer) confirmMatch(req recon.ReviewRequest) (recon.ReviewDecision, error) {
	entry := req.Candidate.Entry
	fmt.Fprintf(r.out, "Candidate (tier %d, confidence %.2f):\n", req.Candidate.Tier, req.Candidate.Confidence)
	fmt.Fprintf(r.out, "  %s  %10.2f  %s\n", entry.Date.Format("2006-01-02"), entry.Amount, entry.Description)
	fmt.Fprint(r.out, "Same transaction? [y/n/s(kip)]: ")

	answer, err := r.readLine()
	if err != nil {
		return recon.ReviewDecision{}, err
	}

	switch answer {
	case "y", "yes":
		return recon.ReviewDecision{Confirmed: true}, nil
	case "s", "skip":
		return recon.ReviewDecision{Skip: true}, nil
	default:
		return recon.ReviewDecision{}, nil
	}
}

func (r *InteractiveReviewer) categorize(req recon.ReviewRequest) (recon.ReviewDecision, error) {
	if req.Prediction != "" {
		fmt.Fprintf(r.out, "Model suggests: %s (%.2f)\n", req.Prediction, req.PredictionConfidence)
	}
	for i, similar := range req.Similar {
		fmt.Fprintf(r.out, "  %d) %s", i+1, similar.Category)
		if similar.Counterparty != "" {
			fmt.Fprintf(r.out, " / %s", similar.Counterparty)
		}
		fmt.Fprintf(r.out, "  (seen %dx)\n", similar.Frequency)
	}
	fmt.Fprint(r.out, "Category [number, name, or empty to skip]: ")

	answer, err := r.readLine()
	if err != nil {
		return recon.ReviewDecision{}, err
	}
	if answer == "" {
		return recon.ReviewDecision{Skip: true}, nil
	}

	decision := recon.ReviewDecision{Category: answer}
	if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(req.Similar) {
		decision.Category = req.Similar[n-1].Category
		decision.Counterparty = req.Similar[n-1].Counterparty
		return decision, nil
	}

	fmt.Fprint(r.out, "Counterparty [empty for none]: ")
	counterparty, err := r.readLine()
	if err != nil {
		return recon.ReviewDecision{}, err
	}
	decision.Counterparty = counterparty
	return decision, nil
}

func (r *InteractiveReviewer) readLine() (string, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

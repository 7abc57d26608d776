package dto

// ResolveReviewRequest is the request body for resolving a queued
// manual-review request. Either Skip is true, or Category names the
// chosen category.
type ResolveReviewRequest struct {
	Skip         bool   `json:"skip"`
	Category     string `json:"category"`
	Counterparty string `json:"counterparty"`
}

package newsletter

import "sort"

// Report is the per-recipient outcome of one Publish call. The address lists
// are for logs and callers inside the service and are never serialised.
type Report struct {
	Title     string   `json:"title"`
	Delivered []string `json:"-"`
	Skipped   []string `json:"-"`
	Failed    []string `json:"-"`
	// Unsent lists recipients never attempted because a fail-fast fan-out
	// stopped early or the request ended.
	Unsent []string `json:"-"`
}

func newReport(title string) *Report {
	return &Report{
		Title:     title,
		Delivered: []string{},
		Skipped:   []string{},
		Failed:    []string{},
	}
}

func (r *Report) sort() {
	sort.Strings(r.Delivered)
	sort.Strings(r.Skipped)
	sort.Strings(r.Failed)
	sort.Strings(r.Unsent)
}

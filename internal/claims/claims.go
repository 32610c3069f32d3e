// Package claims holds the forest-rights claims shown on the dashboard.
package claims

// Status is the review outcome of a claim.
type Status string

const (
	Pending  Status = "Pending"
	Claimed  Status = "Claimed"
	Rejected Status = "Rejected"
)

// Statuses in display order.
var Statuses = []Status{Pending, Claimed, Rejected}

// AllStates selects every state in a Filter.
const AllStates = "All"

// States are the focus states, in display order.
var States = []string{"Madhya Pradesh", "Tripura", "Odisha", "Telangana"}

// Claim is one filed claim.
type Claim struct {
	ID          string  `json:"id" doc:"Claim identifier" example:"MP-001"`
	Claimant    string  `json:"claimant" doc:"Claimant name"`
	Village     string  `json:"village" doc:"Village"`
	State       string  `json:"state" doc:"State" enum:"Madhya Pradesh,Tripura,Odisha,Telangana"`
	AreaHa      float64 `json:"areaHa" doc:"Claimed area in hectares"`
	Status      Status  `json:"status" doc:"Review status" enum:"Pending,Claimed,Rejected"`
	SubmittedAt string  `json:"submittedAt" format:"date" doc:"Submission date"`
}

// Filter narrows the claim list. An empty State or AllStates matches every
// state. Search is a case-insensitive substring over id, claimant, village,
// status and state.
type Filter struct {
	State  string
	Search string
}

func (f Filter) state() string {
	if f.State == AllStates {
		return ""
	}
	return f.State
}

// Counts tallies claims by status.
type Counts struct {
	Pending  int `json:"pending"`
	Claimed  int `json:"claimed"`
	Rejected int `json:"rejected"`
}

func (c *Counts) add(s Status, n int) {
	switch s {
	case Pending:
		c.Pending += n
	case Claimed:
		c.Claimed += n
	case Rejected:
		c.Rejected += n
	}
}

// Total is the sum over all statuses.
func (c Counts) Total() int { return c.Pending + c.Claimed + c.Rejected }

// StateStats is the per-status tally of one state.
type StateStats struct {
	State string `json:"state"`
	Counts
}

// Fixture is the demonstration dataset.
var Fixture = []Claim{
	{ID: "MP-001", Claimant: "Asha Devi", Village: "Sehore", State: "Madhya Pradesh", AreaHa: 2.3, Status: Pending, SubmittedAt: "2025-06-01"},
	{ID: "MP-002", Claimant: "Rakesh", Village: "Betul", State: "Madhya Pradesh", AreaHa: 1.1, Status: Claimed, SubmittedAt: "2025-05-15"},
	{ID: "TR-101", Claimant: "Deb", Village: "Udaipur", State: "Tripura", AreaHa: 0.8, Status: Rejected, SubmittedAt: "2025-04-21"},
	{ID: "OD-050", Claimant: "Sita", Village: "Koraput", State: "Odisha", AreaHa: 3.6, Status: Pending, SubmittedAt: "2025-06-12"},
	{ID: "TG-210", Claimant: "Ravi", Village: "Nizamabad", State: "Telangana", AreaHa: 1.9, Status: Claimed, SubmittedAt: "2025-05-25"},
	{ID: "OD-099", Claimant: "Manoj", Village: "Kendujhar", State: "Odisha", AreaHa: 2.0, Status: Rejected, SubmittedAt: "2025-05-05"},
	{ID: "TR-111", Claimant: "Rima", Village: "Agartala", State: "Tripura", AreaHa: 1.2, Status: Pending, SubmittedAt: "2025-06-18"},
	{ID: "TG-220", Claimant: "Lakshmi", Village: "Warangal", State: "Telangana", AreaHa: 0.9, Status: Pending, SubmittedAt: "2025-06-10"},
	{ID: "MP-010", Claimant: "Om", Village: "Chhindwara", State: "Madhya Pradesh", AreaHa: 4.2, Status: Rejected, SubmittedAt: "2025-04-30"},
	{ID: "OD-120", Claimant: "Geeta", Village: "Mayurbhanj", State: "Odisha", AreaHa: 1.5, Status: Claimed, SubmittedAt: "2025-06-05"},
}

// Package survey models the store-branding installation survey: records loaded
// from the response spreadsheet, filtering, and deployment KPIs.
package survey

import "strings"

// Image slot labels in display order.
const (
	SlotStoreFront  = "Store Front"
	SlotDeployment1 = "Deployment 1"
	SlotDeployment2 = "Deployment 2"
	SlotDeployment3 = "Deployment 3"
)

// Record is one survey response row. Records are read-only after load.
type Record struct {
	Timestamp  string `json:"timestamp"`
	Channel    string `json:"channel"`
	DenaveCode string `json:"denave_code"`
	Codes      string `json:"codes"`
	StoreName  string `json:"store_name"`
	Zone       string `json:"zone"`
	State      string `json:"state"`
	City       string `json:"city"`
	Location   string `json:"location"`
	Deployed   string `json:"deployed"` // raw answer to the deployment question
	Reason     string `json:"reason"`
	Remarks    string `json:"remarks"`

	// Raw image link cells, one per slot. No structural guarantee: may be
	// blank, a share link in any known shape, or arbitrary text.
	StoreFrontImage  string `json:"-"`
	DeploymentImage1 string `json:"-"`
	DeploymentImage2 string `json:"-"`
	DeploymentImage3 string `json:"-"`
}

// ImageSlot pairs a display label with the raw link cell for that slot.
type ImageSlot struct {
	Label string
	Raw   string
}

// ImageSlots returns the record's image slots in display order, including
// blank ones; the caller renders a placeholder for slots that do not resolve.
func (r *Record) ImageSlots() []ImageSlot {
	return []ImageSlot{
		{SlotStoreFront, r.StoreFrontImage},
		{SlotDeployment1, r.DeploymentImage1},
		{SlotDeployment2, r.DeploymentImage2},
		{SlotDeployment3, r.DeploymentImage3},
	}
}

// IsDeployed reports whether the record answered YES to the deployment
// question, case-insensitively.
func (r *Record) IsDeployed() bool {
	return strings.EqualFold(strings.TrimSpace(r.Deployed), "YES")
}

// IsNotDeployed reports an explicit NO answer. Blank or free-text answers are
// neither deployed nor not-deployed.
func (r *Record) IsNotDeployed() bool {
	return strings.EqualFold(strings.TrimSpace(r.Deployed), "NO")
}

package survey

// Summary holds the dashboard KPIs for a record set.
type Summary struct {
	TotalStores int `json:"total_stores"`
	Deployed    int `json:"deployed"`
	NotDeployed int `json:"not_deployed"`
}

// Summarize computes deployment KPIs. Answers other than YES/NO count toward
// the total only.
func Summarize(records []Record) Summary {
	s := Summary{TotalStores: len(records)}
	for i := range records {
		switch {
		case records[i].IsDeployed():
			s.Deployed++
		case records[i].IsNotDeployed():
			s.NotDeployed++
		}
	}
	return s
}

// NotDeployedDetail is one row of the not-deployed follow-up table.
type NotDeployedDetail struct {
	StoreName string `json:"store_name"`
	City      string `json:"city"`
	Zone      string `json:"zone"`
	Reason    string `json:"reason"`
	Remarks   string `json:"remarks"`
}

// NotDeployedDetails lists the stores that explicitly answered NO, in record
// order, for follow-up.
func NotDeployedDetails(records []Record) []NotDeployedDetail {
	var out []NotDeployedDetail
	for i := range records {
		r := &records[i]
		if !r.IsNotDeployed() {
			continue
		}
		out = append(out, NotDeployedDetail{
			StoreName: r.StoreName,
			City:      r.City,
			Zone:      r.Zone,
			Reason:    r.Reason,
			Remarks:   r.Remarks,
		})
	}
	return out
}

package check

type CheckName string

const (
	CheckNameModelValid     CheckName = "model valid"
	CheckNameBrokersAlive   CheckName = "brokers alive"
	CheckNameCapacityTotals CheckName = "cluster capacity sufficient"
	CheckNameGoalSatisfied  CheckName = "goal satisfied"
)

// ClusterCheckResults stores the result of checking a cluster model.
type ClusterCheckResults struct {
	Results []ClusterCheckResult
}

// ClusterCheckResult contains the name and status of a single check.
type ClusterCheckResult struct {
	Name        CheckName
	Subject     string
	OK          bool
	Description string
}

// AllOK returns true if all subresults are OK, otherwise it returns false.
func (r *ClusterCheckResults) AllOK() bool {
	for _, result := range r.Results {
		if !result.OK {
			return false
		}
	}

	return true
}

// AppendResult adds a new check result to the results.
func (r *ClusterCheckResults) AppendResult(result ClusterCheckResult) {
	r.Results = append(r.Results, result)
}

// UpdateLastResult updates the details of the most recently added result.
func (r *ClusterCheckResults) UpdateLastResult(ok bool, description string) {
	r.Results[len(r.Results)-1].OK = ok
	r.Results[len(r.Results)-1].Description = description
}

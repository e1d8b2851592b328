package domain

// CheckRunRecord pairs a check name with the outcome it produced.
type CheckRunRecord struct {
	Check   string  `yaml:"check" json:"check"`
	Outcome Outcome `yaml:"outcome" json:"outcome"`
}

// ServerRunRecord holds every check record for one server. The gating
// check, when present, is always first.
type ServerRunRecord struct {
	Server Server           `yaml:"server" json:"server"`
	Checks []CheckRunRecord `yaml:"checks" json:"checks"`
}

// RunResultSet holds one ServerRunRecord per server in submission order.
type RunResultSet []ServerRunRecord

// Failure is a non-passing check record together with its server.
type Failure struct {
	Server Server
	Record CheckRunRecord
}

// Failures lists every non-passing record in server, then check, order.
func (rs RunResultSet) Failures() []Failure {
	var out []Failure
	for _, sr := range rs {
		for _, cr := range sr.Checks {
			if !cr.Outcome.Passed() {
				out = append(out, Failure{Server: sr.Server, Record: cr})
			}
		}
	}
	return out
}

// CheckCount is the total number of check records across all servers.
func (rs RunResultSet) CheckCount() int {
	n := 0
	for _, sr := range rs {
		n += len(sr.Checks)
	}
	return n
}

package screener

import (
	"fmt"
	"time"

	"TrendScreener/internal/model"
)

// Inconsistency describes a stored record whose passed count disagrees with
// its own criteria booleans, usually left behind by an older rule version.
type Inconsistency struct {
	Symbol  string
	Date    time.Time
	Stored  int
	Recount int
}

func (i Inconsistency) String() string {
	return fmt.Sprintf("%s %s: stored %d, recount %d",
		i.Symbol, i.Date.Format(model.DateLayout), i.Stored, i.Recount)
}

// CheckConsistency recounts every record and returns the ones that disagree.
func CheckConsistency(records []*model.ScreeningRecord) []Inconsistency {
	var out []Inconsistency
	for _, r := range records {
		if r == nil || r.Consistent() {
			continue
		}
		out = append(out, Inconsistency{
			Symbol:  r.Symbol,
			Date:    r.Date,
			Stored:  r.PassedCriteria,
			Recount: r.Recount(),
		})
	}
	return out
}

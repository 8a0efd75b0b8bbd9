package ai

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Collection outlooks the model may choose from.
const (
	OutlookImproving = "improving"
	OutlookStable    = "stable"
	OutlookDeclining = "declining"
)

// BusinessSummary is the narrative the model writes for one month of ledger activity.
type BusinessSummary struct {
	Headline          string   `json:"headline" jsonschema_description:"One sentence overview of the month"`
	Highlights        []string `json:"highlights" jsonschema_description:"Notable positive results, each a short sentence"`
	Concerns          []string `json:"concerns" jsonschema_description:"Risks such as unpaid balances or expiring warranties"`
	Recommendations   []string `json:"recommendations" jsonschema_description:"Concrete actions for the shop owner"`
	CollectionOutlook string   `json:"collection_outlook" jsonschema:"enum=improving,enum=stable,enum=declining"`
}

// Normalize trims model output and drops blank list entries.
func (s *BusinessSummary) Normalize() {
	s.Headline = strings.TrimSpace(s.Headline)
	s.CollectionOutlook = strings.ToLower(strings.TrimSpace(s.CollectionOutlook))
	s.Highlights = cleanList(s.Highlights)
	s.Concerns = cleanList(s.Concerns)
	s.Recommendations = cleanList(s.Recommendations)
}

// Validate rejects a summary without a headline or with an unknown outlook.
func (s *BusinessSummary) Validate() error {
	if s.Headline == "" {
		return errors.New("summary must have a headline")
	}
	if !slices.Contains([]string{OutlookImproving, OutlookStable, OutlookDeclining}, s.CollectionOutlook) {
		return fmt.Errorf("unknown collection outlook %q", s.CollectionOutlook)
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

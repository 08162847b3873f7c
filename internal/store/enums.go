package store

import (
	"fmt"
	"strings"
)

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "NEW"
	LeadStatusContacted LeadStatus = "CONTACTED"
	LeadStatusQualified LeadStatus = "QUALIFIED"
	LeadStatusLost      LeadStatus = "LOST"
	LeadStatusWon       LeadStatus = "WON"
)

type OpportunityType string

const (
	OpportunityTypeNewBusiness OpportunityType = "NEW_BUSINESS"
	OpportunityTypeRenewal     OpportunityType = "RENEWAL"
	OpportunityTypeUpsell      OpportunityType = "UPSELL"
	OpportunityTypeCrossSell   OpportunityType = "CROSS_SELL"
)

// ParseLeadStatus decodes a raw status token, tolerating case and
// space/hyphen separators. Unknown tokens are an error, not a default.
func ParseLeadStatus(raw string) (LeadStatus, error) {
	switch normalizeEnumToken(raw) {
	case "NEW":
		return LeadStatusNew, nil
	case "CONTACTED":
		return LeadStatusContacted, nil
	case "QUALIFIED":
		return LeadStatusQualified, nil
	case "LOST":
		return LeadStatusLost, nil
	case "WON":
		return LeadStatusWon, nil
	}
	return "", fmt.Errorf("invalid lead status %q", strings.TrimSpace(raw))
}

func ParseOpportunityType(raw string) (OpportunityType, error) {
	switch normalizeEnumToken(raw) {
	case "NEW_BUSINESS", "NEWBUSINESS":
		return OpportunityTypeNewBusiness, nil
	case "RENEWAL":
		return OpportunityTypeRenewal, nil
	case "UPSELL", "UP_SELL":
		return OpportunityTypeUpsell, nil
	case "CROSS_SELL", "CROSSSELL":
		return OpportunityTypeCrossSell, nil
	}
	return "", fmt.Errorf("invalid opportunity type %q", strings.TrimSpace(raw))
}

func normalizeEnumToken(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	return strings.ToUpper(replacer.Replace(strings.TrimSpace(raw)))
}

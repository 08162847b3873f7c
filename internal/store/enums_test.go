package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLeadStatus(t *testing.T) {
	for raw, want := range map[string]LeadStatus{
		"new":       LeadStatusNew,
		"NEW":       LeadStatusNew,
		"Contacted": LeadStatusContacted,
		"qualified": LeadStatusQualified,
		" lost ":    LeadStatusLost,
		"won":       LeadStatusWon,
	} {
		got, err := ParseLeadStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseLeadStatus("lukewarm")
	require.Error(t, err)
}

func TestParseOpportunityType(t *testing.T) {
	for raw, want := range map[string]OpportunityType{
		"new_business": OpportunityTypeNewBusiness,
		"New Business": OpportunityTypeNewBusiness,
		"new-business": OpportunityTypeNewBusiness,
		"RENEWAL":      OpportunityTypeRenewal,
		"upsell":       OpportunityTypeUpsell,
		"cross sell":   OpportunityTypeCrossSell,
		"CROSS_SELL":   OpportunityTypeCrossSell,
	} {
		got, err := ParseOpportunityType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseOpportunityType("sideways")
	require.Error(t, err)
}

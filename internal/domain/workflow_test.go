package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinancingWorkflow_Transitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"submit to bank", StatusPending, StatusBankReview, true},
		{"direct approval", StatusPending, StatusApproved, true},
		{"reject while pending", StatusPending, StatusRejected, true},
		{"approve after review", StatusBankReview, StatusApproved, true},
		{"reject after review", StatusBankReview, StatusRejected, true},
		{"confirm approved", StatusApproved, StatusConfirmed, true},
		{"complete confirmed", StatusConfirmed, StatusCompleted, true},
		{"confirm pending", StatusPending, StatusConfirmed, false},
		{"confirm rejected", StatusRejected, StatusConfirmed, false},
		{"reopen completed", StatusCompleted, StatusPending, false},
		{"skip to completed", StatusApproved, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinancingWorkflow.CanTransition(tt.from, tt.to))
		})
	}
}

func TestFinancingWorkflow_Terminal(t *testing.T) {
	assert.True(t, FinancingWorkflow.IsTerminal(StatusCompleted))
	assert.True(t, FinancingWorkflow.IsTerminal(StatusRejected))
	assert.False(t, FinancingWorkflow.IsTerminal(StatusApproved))
	assert.False(t, FinancingWorkflow.IsTerminal(StatusPending))
}

func TestEnterpriseWorkflow_FulfillmentTail(t *testing.T) {
	assert.True(t, EnterpriseWorkflow.CanTransition(StatusConfirmed, StatusProcessing))
	assert.True(t, EnterpriseWorkflow.CanTransition(StatusProcessing, StatusShipped))
	assert.True(t, EnterpriseWorkflow.CanTransition(StatusShipped, StatusDelivered))
	assert.False(t, EnterpriseWorkflow.CanTransition(StatusConfirmed, StatusDelivered))
	assert.True(t, EnterpriseWorkflow.IsTerminal(StatusDelivered))
	assert.False(t, EnterpriseWorkflow.IsTerminal(StatusShipped))
}

func TestWorkflow_AllowedSources(t *testing.T) {
	sources := FinancingWorkflow.AllowedSources(StatusApproved)
	assert.ElementsMatch(t, []string{StatusPending, StatusBankReview}, sources)

	sources = FinancingWorkflow.AllowedSources(StatusConfirmed)
	assert.Equal(t, []string{StatusApproved}, sources)
}

func TestWorkflow_Known(t *testing.T) {
	assert.True(t, FinancingWorkflow.Known(StatusPending))
	assert.True(t, FinancingWorkflow.Known(StatusCompleted))
	assert.False(t, FinancingWorkflow.Known("shipped"))
	assert.True(t, EnterpriseWorkflow.Known(StatusShipped))
}

package service

import (
	"context"
	"errors"
	"testing"

	"procurement/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func defaultTestPolicy() *model.ProcurementPolicy {
	return &model.ProcurementPolicy{
		ThreeQuoteThreshold: decimal.NewFromInt(10000),
		TenderThreshold:     decimal.NewFromInt(50000),
		MinQuoteCount:       3,
	}
}

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		name          string
		value         string
		quoteCount    int
		wantRequired  string
		wantSatisfied bool
	}{
		{"below three-quote threshold", "9999.99", 0, model.RuleNone, true},
		{"at three-quote threshold with too few quotes", "10000", 2, model.RuleThreeQuotes, false},
		{"above three-quote threshold with enough quotes", "12000", 3, model.RuleThreeQuotes, true},
		{"above three-quote threshold with surplus quotes", "12000", 5, model.RuleThreeQuotes, true},
		{"at tender threshold", "50000", 5, model.RuleTender, false},
		{"far above tender threshold", "250000", 10, model.RuleTender, false},
	}

	policy := defaultTestPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := decimal.NewFromString(tt.value)
			if err != nil {
				t.Fatalf("bad test value: %v", err)
			}
			got := evaluateThresholds(policy, value, tt.quoteCount)
			if got.Required != tt.wantRequired {
				t.Errorf("Required = %s, want %s", got.Required, tt.wantRequired)
			}
			if got.Satisfied != tt.wantSatisfied {
				t.Errorf("Satisfied = %v, want %v", got.Satisfied, tt.wantSatisfied)
			}
		})
	}
}

func TestGetPolicyFallsBackToDefaults(t *testing.T) {
	orgID := uuid.New()
	svc := NewPolicyService(&fakePolicyRepo{})

	policy, err := svc.GetPolicy(context.Background(), orgID)
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if !policy.ThreeQuoteThreshold.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("ThreeQuoteThreshold = %s, want 10000", policy.ThreeQuoteThreshold)
	}
	if !policy.TenderThreshold.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("TenderThreshold = %s, want 50000", policy.TenderThreshold)
	}
	if policy.MinQuoteCount != 3 {
		t.Errorf("MinQuoteCount = %d, want 3", policy.MinQuoteCount)
	}
}

func TestUpdatePolicy(t *testing.T) {
	orgID := uuid.New()
	repo := &fakePolicyRepo{}
	svc := NewPolicyService(repo)

	t.Run("rejects tender threshold below three-quote threshold", func(t *testing.T) {
		_, err := svc.UpdatePolicy(context.Background(), orgID, UpdatePolicyRequest{
			ThreeQuoteThreshold: "20000",
			TenderThreshold:     "15000",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("UpdatePolicy() error = %v, want ValidationError", err)
		}
	})

	t.Run("stores thresholds and defaults quote count", func(t *testing.T) {
		policy, err := svc.UpdatePolicy(context.Background(), orgID, UpdatePolicyRequest{
			ThreeQuoteThreshold: "20000",
			TenderThreshold:     "80000",
		})
		if err != nil {
			t.Fatalf("UpdatePolicy() error = %v", err)
		}
		if !policy.ThreeQuoteThreshold.Equal(decimal.NewFromInt(20000)) {
			t.Errorf("ThreeQuoteThreshold = %s, want 20000", policy.ThreeQuoteThreshold)
		}
		if policy.MinQuoteCount != 3 {
			t.Errorf("MinQuoteCount = %d, want default 3", policy.MinQuoteCount)
		}
		if repo.policy == nil {
			t.Fatal("policy was not persisted")
		}
	})

	t.Run("updates the stored policy in place", func(t *testing.T) {
		policy, err := svc.UpdatePolicy(context.Background(), orgID, UpdatePolicyRequest{
			ThreeQuoteThreshold: "25000",
			TenderThreshold:     "90000",
			MinQuoteCount:       5,
		})
		if err != nil {
			t.Fatalf("UpdatePolicy() error = %v", err)
		}
		if policy.MinQuoteCount != 5 {
			t.Errorf("MinQuoteCount = %d, want 5", policy.MinQuoteCount)
		}
	})
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestJudgment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		j       Judgment
		wantErr bool
	}{
		{
			name: "valid heuristic judgment",
			j:    Judgment{ChunkID: 7, Relevance: 1, Method: MethodHeuristic, RankPosition: 1},
		},
		{
			name: "valid model judgment",
			j:    Judgment{ChunkID: 7, Relevance: 0, Confidence: floatPtr(0.1), Method: MethodModel, RankPosition: 3},
		},
		{
			name:    "relevance out of range",
			j:       Judgment{ChunkID: 7, Relevance: 2, Method: MethodHeuristic, RankPosition: 1},
			wantErr: true,
		},
		{
			name:    "confidence above one",
			j:       Judgment{ChunkID: 7, Relevance: 1, Confidence: floatPtr(1.2), Method: MethodModel, RankPosition: 1},
			wantErr: true,
		},
		{
			name:    "zero rank",
			j:       Judgment{ChunkID: 7, Relevance: 1, Method: MethodHeuristic, RankPosition: 0},
			wantErr: true,
		},
		{
			name:    "unknown method",
			j:       Judgment{ChunkID: 7, Relevance: 1, Method: "vector", RankPosition: 1},
			wantErr: true,
		},
		{
			name:    "missing chunk id",
			j:       Judgment{Relevance: 1, Method: MethodHeuristic, RankPosition: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.j.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJudgment_IsRelevant(t *testing.T) {
	assert.True(t, Judgment{Relevance: 1}.IsRelevant())
	assert.False(t, Judgment{Relevance: 0}.IsRelevant())
}

package analyzer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard/internal/database/testutil"
)

func TestHistoryRecordAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	history := NewHistory(db)
	ctx := context.Background()

	require.NoError(t, history.Record(ctx, "text", "verify your account", &Result{
		RiskLevel:  "critical",
		RiskScore:  85,
		Confidence: 0.9,
		Indicators: []string{"urgency_language"},
	}))
	require.NoError(t, history.Record(ctx, "url", "https://spoofed.example", &Result{
		RiskLevel: "low",
		RiskScore: 10,
	}))

	records, err := history.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, record := range records {
		require.NotEmpty(t, record.ID, "identifier assigned on insert")
	}
}

func TestHistoryListHonoursLimit(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	history := NewHistory(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, history.Record(ctx, "text", fmt.Sprintf("submission %d", i), &Result{RiskLevel: "low"}))
	}

	records, err := history.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Zero and negative limits fall back to the default.
	records, err = history.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 5)
}

func TestHistoryRejectsNilResult(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	history := NewHistory(db)

	require.Error(t, history.Record(context.Background(), "text", "x", nil))
	require.Nil(t, NewHistory(nil))
}

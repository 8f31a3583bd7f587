package audit

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows     []TimelineRow
	lastCall WindowParams
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	s.lastCall = arg
	return s.rows, nil
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		rows: []TimelineRow{
			mockRow("2024-03-10T10:00:00Z", "alice", "voucher.post", "voucher", "1", "JE-000003"),
			mockRow("2024-03-09T09:00:00Z", "alice", "voucher.reverse", "voucher", "2", ""),
			mockRow("2024-03-08T08:00:00Z", "bob", "account.create", "account", "3", ""),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Equal(t, int32(3), repo.lastCall.LimitRows)
	require.Equal(t, int32(0), repo.lastCall.OffsetRows)
	require.Equal(t, "JE-000003", result.Rows[0].VoucherNumber)
}

func TestServiceTimelineClampsPageSizeAndTrimsFilters(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 500, Actor: "  ", Action: " voucher.post "})
	require.NoError(t, err)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.PrevPage)
	require.Equal(t, int32(51), repo.lastCall.LimitRows)
	require.Equal(t, int32(100), repo.lastCall.OffsetRows)
	require.Equal(t, pgtype.Text{}, repo.lastCall.Actor)
	require.Equal(t, pgtype.Text{String: "voucher.post", Valid: true}, repo.lastCall.Action)
	require.False(t, repo.lastCall.FromAt.Valid)
}

func mockRow(ts, actor, action, entity, entityID, number string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{At: at, Actor: actor, Action: action, Entity: entity, EntityID: entityID, VoucherNumber: number}
}

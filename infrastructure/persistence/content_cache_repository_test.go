package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"content-hub/domain/model"
	"content-hub/domain/repository"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
}

func newMockedRepo(t *testing.T) (*ContentCacheRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewContentCacheRepository(db, 24*time.Hour).WithClock(fixedClock)
	return repo, mock
}

func sampleItem() model.ContentItem {
	return model.ContentItem{
		Platform:    model.PlatformYouTube,
		ContentType: model.ContentTypeVideo,
		ExternalID:  "yt-1",
		Title:       "first",
		PublishedAt: time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC),
	}
}

func TestContentCacheRepository_UpsertReportsCreation(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectQuery("INSERT INTO content_cache").
		WithArgs("youtube", "yt-1", "video", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))

	created, err := repo.Upsert(context.Background(), sampleItem())
	assert.NoError(t, err)
	assert.True(t, created)

	mock.ExpectQuery("INSERT INTO content_cache").
		WithArgs("youtube", "yt-1", "video", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))

	created, err = repo.Upsert(context.Background(), sampleItem())
	assert.NoError(t, err)
	assert.False(t, created, "conflicting key must refresh, not create")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentCacheRepository_UpsertBatchReturnsCreatedOnly(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare("INSERT INTO content_cache")
	prepared.ExpectQuery().
		WithArgs("youtube", "yt-1", "video", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	prepared.ExpectQuery().
		WithArgs("youtube", "yt-2", "video", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectCommit()

	second := sampleItem()
	second.ExternalID = "yt-2"
	created, err := repo.UpsertBatch(context.Background(), []model.ContentItem{sampleItem(), second})

	assert.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Equal(t, "yt-1", created[0].ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentCacheRepository_QueryDecodesRows(t *testing.T) {
	repo, mock := newMockedRepo(t)

	raw, _ := json.Marshal(sampleItem())
	now := fixedClock()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT data, created_at, updated_at, expires_at, seq FROM content_cache").
		WillReturnRows(sqlmock.NewRows([]string{"data", "created_at", "updated_at", "expires_at", "seq"}).
			AddRow(raw, now, now, now.Add(24*time.Hour), 7))

	records, total, err := repo.Query(context.Background(), repository.ContentQuery{
		Platforms: []model.Platform{model.PlatformYouTube},
		Sort:      "date",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, records, 1)
	assert.Equal(t, "yt-1", records[0].Item.ExternalID)
	assert.Equal(t, uint64(7), records[0].Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentCacheRepository_ExpireStale(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectExec("DELETE FROM content_cache").
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.ExpireStale(context.Background(), fixedClock())
	assert.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/logger"
)

// EnsureContentCacheSchemaMSSQL creates the cache table on MSSQL if not exists
func EnsureContentCacheSchemaMSSQL(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.content_cache') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.content_cache (
        platform NVARCHAR(32) NOT NULL,
        external_id NVARCHAR(128) NOT NULL,
        content_type NVARCHAR(32) NOT NULL,
        data NVARCHAR(MAX) NOT NULL,
        created_at DATETIMEOFFSET NOT NULL,
        updated_at DATETIMEOFFSET NOT NULL,
        expires_at DATETIMEOFFSET NOT NULL,
        seq BIGINT IDENTITY(1,1),
        CONSTRAINT pk_content_cache PRIMARY KEY (platform, external_id)
    );
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create content_cache table (mssql): %w", err)
	}
	if _, err := db.Exec(`IF NOT EXISTS (SELECT * FROM sys.indexes WHERE name = 'idx_content_cache_expires_at' AND object_id = OBJECT_ID('dbo.content_cache'))
CREATE INDEX idx_content_cache_expires_at ON dbo.content_cache(expires_at)`); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed creating idx_content_cache_expires_at (mssql)")
	}
	return nil
}

// ContentCacheRepositoryMSSQL implements repository.IContentCache on MSSQL
type ContentCacheRepositoryMSSQL struct {
	db      *sql.DB
	hardTTL time.Duration
	now     func() time.Time
}

func NewContentCacheRepositoryMSSQL(db *sql.DB, hardTTL time.Duration) *ContentCacheRepositoryMSSQL {
	return &ContentCacheRepositoryMSSQL{db: db, hardTTL: hardTTL, now: time.Now}
}

// WithClock overrides the time source (fluent, for tests)
func (r *ContentCacheRepositoryMSSQL) WithClock(now func() time.Time) *ContentCacheRepositoryMSSQL {
	r.now = now
	return r
}

const upsertContentMSSQL = `MERGE dbo.content_cache AS target
USING (SELECT @p1 AS platform, @p2 AS external_id) AS source
ON target.platform = source.platform AND target.external_id = source.external_id
WHEN MATCHED THEN UPDATE SET content_type=@p3, data=@p4, updated_at=@p5, expires_at=@p6
WHEN NOT MATCHED THEN INSERT (platform, external_id, content_type, data, created_at, updated_at, expires_at)
VALUES (@p1, @p2, @p3, @p4, @p5, @p5, @p6)
OUTPUT $action;`

func (r *ContentCacheRepositoryMSSQL) upsertOne(ctx context.Context, exec interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}, item model.ContentItem, now time.Time) (bool, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return false, err
	}
	var action string
	err = exec.QueryRowContext(ctx, upsertContentMSSQL,
		string(item.Platform), item.ExternalID, string(item.ContentType),
		string(raw), now, now.Add(r.hardTTL),
	).Scan(&action)
	if err != nil {
		return false, fmt.Errorf("upsert content_cache row (mssql): %w", err)
	}
	return action == "INSERT", nil
}

func (r *ContentCacheRepositoryMSSQL) Upsert(ctx context.Context, item model.ContentItem) (bool, error) {
	return r.upsertOne(ctx, r.db, item, r.now().UTC())
}

func (r *ContentCacheRepositoryMSSQL) UpsertBatch(ctx context.Context, items []model.ContentItem) ([]model.ContentItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	now := r.now().UTC()
	var createdItems []model.ContentItem
	for i := range items {
		var created bool
		created, err = r.upsertOne(ctx, tx, items[i], now)
		if err != nil {
			return nil, err
		}
		if created {
			createdItems = append(createdItems, items[i])
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return createdItems, nil
}

func (r *ContentCacheRepositoryMSSQL) Get(ctx context.Context, key model.ContentKey) (*model.CacheRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT data, created_at, updated_at, expires_at, seq FROM dbo.content_cache WHERE platform=@p1 AND external_id=@p2`,
		string(key.Platform), key.ExternalID)
	var raw string
	rec := model.CacheRecord{}
	if err := row.Scan(&raw, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt, &rec.Seq); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &rec.Item); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ContentCacheRepositoryMSSQL) Query(ctx context.Context, q repository.ContentQuery) ([]model.CacheRecord, int64, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	where := "expires_at > @p1"
	args := []interface{}{r.now().UTC()}
	if len(q.Platforms) > 0 {
		placeholders := make([]string, 0, len(q.Platforms))
		for _, p := range q.Platforms {
			args = append(args, string(p))
			placeholders = append(placeholders, fmt.Sprintf("@p%d", len(args)))
		}
		where += " AND platform IN (" + strings.Join(placeholders, ",") + ")"
	}
	if len(q.Types) > 0 {
		placeholders := make([]string, 0, len(q.Types))
		for _, t := range q.Types {
			args = append(args, string(t))
			placeholders = append(placeholders, fmt.Sprintf("@p%d", len(args)))
		}
		where += " AND content_type IN (" + strings.Join(placeholders, ",") + ")"
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM dbo.content_cache WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "DESC"
	if q.Order == "asc" {
		dir = "ASC"
	}
	sortExpr := "TRY_CONVERT(datetimeoffset, JSON_VALUE(data, '$.published_at'))"
	if q.Sort == "popularity" {
		sortExpr = `(COALESCE(TRY_CONVERT(bigint, JSON_VALUE(data, '$.engagement.likes')),0) +
            COALESCE(TRY_CONVERT(bigint, JSON_VALUE(data, '$.engagement.comments')),0) +
            COALESCE(TRY_CONVERT(bigint, JSON_VALUE(data, '$.engagement.shares')),0))`
	}

	args = append(args, (page-1)*perPage, perPage)
	query := fmt.Sprintf(
		`SELECT data, created_at, updated_at, expires_at, seq FROM dbo.content_cache WHERE %s ORDER BY %s %s, seq ASC OFFSET @p%d ROWS FETCH NEXT @p%d ROWS ONLY`,
		where, sortExpr, dir, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.CacheRecord, 0, perPage)
	for rows.Next() {
		var raw string
		rec := model.CacheRecord{}
		if err := rows.Scan(&raw, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt, &rec.Seq); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal([]byte(raw), &rec.Item); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding cached item (mssql)")
			continue
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *ContentCacheRepositoryMSSQL) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dbo.content_cache WHERE expires_at <= @p1`, now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

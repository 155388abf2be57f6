package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/logger"

	"github.com/lib/pq"
)

// EnsureContentCacheSchema creates the content cache table if not exists
func EnsureContentCacheSchema(db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS content_cache (
        platform TEXT NOT NULL,
        external_id TEXT NOT NULL,
        content_type TEXT NOT NULL,
        data JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL,
        expires_at TIMESTAMPTZ NOT NULL,
        seq BIGSERIAL,
        PRIMARY KEY (platform, external_id)
    )`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create content_cache table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_content_cache_expires_at ON content_cache(expires_at)`); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed creating idx_content_cache_expires_at")
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_content_cache_published_at ON content_cache (( (data->>'published_at')::timestamptz ))`); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed creating idx_content_cache_published_at")
	}
	return nil
}

// ContentCacheRepository implements repository.IContentCache on Postgres.
// Items are stored as JSONB; created_at and seq are write-once, so refreshing
// a row never disturbs insertion order or the original first-seen time.
type ContentCacheRepository struct {
	db      *sql.DB
	hardTTL time.Duration
	now     func() time.Time
}

func NewContentCacheRepository(db *sql.DB, hardTTL time.Duration) *ContentCacheRepository {
	return &ContentCacheRepository{db: db, hardTTL: hardTTL, now: time.Now}
}

// WithClock overrides the time source (fluent, for tests)
func (r *ContentCacheRepository) WithClock(now func() time.Time) *ContentCacheRepository {
	r.now = now
	return r
}

const upsertContentSQL = `INSERT INTO content_cache(platform, external_id, content_type, data, created_at, updated_at, expires_at)
          VALUES ($1,$2,$3,$4,$5,$5,$6)
          ON CONFLICT (platform, external_id) DO UPDATE SET
            content_type=EXCLUDED.content_type, data=EXCLUDED.data,
            updated_at=EXCLUDED.updated_at, expires_at=EXCLUDED.expires_at
          RETURNING (xmax = 0)`

func (r *ContentCacheRepository) Upsert(ctx context.Context, item model.ContentItem) (bool, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return false, err
	}
	now := r.now().UTC()
	var created bool
	err = r.db.QueryRowContext(ctx, upsertContentSQL,
		string(item.Platform), item.ExternalID, string(item.ContentType), raw, now, now.Add(r.hardTTL),
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert content_cache row: %w", err)
	}
	return created, nil
}

func (r *ContentCacheRepository) UpsertBatch(ctx context.Context, items []model.ContentItem) ([]model.ContentItem, error) {
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
	stmt, err := tx.PrepareContext(ctx, upsertContentSQL)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := r.now().UTC()
	var createdItems []model.ContentItem
	for i := range items {
		raw, mErr := json.Marshal(&items[i])
		if mErr != nil {
			err = mErr
			return nil, err
		}
		var created bool
		if err = stmt.QueryRowContext(ctx,
			string(items[i].Platform), items[i].ExternalID, string(items[i].ContentType),
			raw, now, now.Add(r.hardTTL),
		).Scan(&created); err != nil {
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

func (r *ContentCacheRepository) Get(ctx context.Context, key model.ContentKey) (*model.CacheRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT data, created_at, updated_at, expires_at, seq FROM content_cache WHERE platform=$1 AND external_id=$2`,
		string(key.Platform), key.ExternalID)
	var raw []byte
	rec := model.CacheRecord{}
	if err := row.Scan(&raw, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt, &rec.Seq); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &rec.Item); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ContentCacheRepository) Query(ctx context.Context, q repository.ContentQuery) ([]model.CacheRecord, int64, error) {
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

	where := "expires_at > $1"
	args := []interface{}{r.now().UTC()}
	if len(q.Platforms) > 0 {
		platforms := make([]string, 0, len(q.Platforms))
		for _, p := range q.Platforms {
			platforms = append(platforms, string(p))
		}
		args = append(args, pq.Array(platforms))
		where += fmt.Sprintf(" AND platform = ANY($%d)", len(args))
	}
	if len(q.Types) > 0 {
		types := make([]string, 0, len(q.Types))
		for _, t := range q.Types {
			types = append(types, string(t))
		}
		args = append(args, pq.Array(types))
		where += fmt.Sprintf(" AND content_type = ANY($%d)", len(args))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM content_cache WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "DESC"
	if q.Order == "asc" {
		dir = "ASC"
	}
	sortExpr := "(data->>'published_at')::timestamptz"
	if q.Sort == "popularity" {
		sortExpr = `(COALESCE((data->'engagement'->>'likes')::bigint,0) +
            COALESCE((data->'engagement'->>'comments')::bigint,0) +
            COALESCE((data->'engagement'->>'shares')::bigint,0))`
	}

	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(
		`SELECT data, created_at, updated_at, expires_at, seq FROM content_cache WHERE %s ORDER BY %s %s, seq ASC LIMIT $%d OFFSET $%d`,
		where, sortExpr, dir, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.CacheRecord, 0, perPage)
	for rows.Next() {
		var raw []byte
		rec := model.CacheRecord{}
		if err := rows.Scan(&raw, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt, &rec.Seq); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(raw, &rec.Item); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding cached item")
			continue
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *ContentCacheRepository) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content_cache WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

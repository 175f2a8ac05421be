package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/AbdullaK123/book-api/internal/domain"
	"github.com/AbdullaK123/book-api/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// Options tunes the connection pool and gorm logging.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	LogLevel     logger.LogLevel
}

// Store implements storage.Storage on PostgreSQL.
type Store struct {
	queries
	db *gorm.DB
}

// New connects, applies pending migrations and returns the store.
func New(dsn string, opts Options) (*Store, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}

	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.MaxLifetime)
	}

	return &Store{queries: queries{db: db}, db: db}, nil
}

// Migrate applies the embedded SQL migrations on a dedicated connection.
func Migrate(dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinTx runs fn in a database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{queries: queries{db: gtx}})
	})
}

func (s *Store) GetReviewByID(ctx context.Context, id int64) (*domain.Review, error) {
	var review domain.Review
	if err := s.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &review, nil
}

// === Pagination Methods ===

func (s *Store) ListComments(ctx context.Context, filter storage.CommentFilter, args storage.ListArgs) ([]*domain.Comment, error) {
	query := s.db.WithContext(ctx).Where("is_deleted = ?", false)
	switch {
	case filter.ReviewID != nil:
		query = query.Where("review_id = ?", *filter.ReviewID)
	case filter.ParentID != nil:
		query = query.Where("parent_id = ?", *filter.ParentID)
	default:
		return nil, errors.New("comment filter requires a review or parent id")
	}

	// id is the insertion order and breaks ties deterministically.
	switch args.OrderBy {
	case domain.OrderOldest:
		query = query.Order("created_at ASC").Order("id ASC")
	case domain.OrderMostLiked:
		query = query.Order("likes_count DESC").Order("id ASC")
	default:
		query = query.Order("created_at DESC").Order("id ASC")
	}

	comments := []*domain.Comment{}
	err := query.Offset(args.Offset).Limit(args.Limit).Find(&comments).Error
	return comments, err
}

// === Dataloader Methods ===

func (s *Store) GetCommentsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Comment, error) {
	var comments []*domain.Comment
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&comments).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]*domain.Comment, len(comments))
	for _, c := range comments {
		result[c.ID] = c
	}
	return result, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.User, error) {
	var users []*domain.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]*domain.User, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// queries holds the reads shared by the pool and open transactions.
type queries struct {
	db *gorm.DB
}

func (q queries) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment domain.Comment
	if err := q.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (q queries) ReviewExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&domain.Review{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (q queries) HasLike(ctx context.Context, commentID, userID int64) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&domain.CommentLike{}).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Count(&count).Error
	return count > 0, err
}

type tx struct {
	queries
}

// LockCommentByID takes a row lock so concurrent mutations of one comment
// serialize.
func (t *tx) LockCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment domain.Comment
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&comment, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (t *tx) InsertComment(ctx context.Context, c *domain.Comment) error {
	return t.db.WithContext(ctx).Create(c).Error
}

func (t *tx) UpdateComment(ctx context.Context, c *domain.Comment) error {
	res := t.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"content":    c.Content,
			"is_deleted": c.IsDeleted,
			"updated_at": c.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

func (t *tx) InsertLike(ctx context.Context, like *domain.CommentLike) error {
	if err := t.db.WithContext(ctx).Create(like).Error; err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateLike
		}
		return err
	}
	return nil
}

func (t *tx) DeleteLike(ctx context.Context, commentID, userID int64) (bool, error) {
	res := t.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&domain.CommentLike{})
	return res.RowsAffected > 0, res.Error
}

func (t *tx) AddLikes(ctx context.Context, commentID int64, delta int, at time.Time) (int, error) {
	var count int
	err := t.db.WithContext(ctx).
		Raw(`UPDATE comments SET likes_count = likes_count + ?, updated_at = ? WHERE id = ? RETURNING likes_count`,
			delta, at, commentID).
		Row().Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrRecordNotFound
	}
	return count, err
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrRecordNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

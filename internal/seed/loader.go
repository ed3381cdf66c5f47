package seed

import (
	"context"
	"fmt"

	"github.com/iceymoss/kilovolt/pkg/storage"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	insertAuthorSQL = `INSERT INTO authors(author, "authorUrl") VALUES (:author, :authorUrl) ON CONFLICT DO NOTHING`

	countArticlesSQL = `SELECT COUNT(*) FROM articles`

	// Articles whose author name is unknown select no row and insert nothing.
	insertArticleSQL = `INSERT INTO articles(author_id, title, category, "publishedOn", body)
		SELECT author_id, :title, CAST(:category AS VARCHAR(20)), CAST(:publishedOn AS DATE), :body
		FROM authors
		WHERE author = :author`
)

// Loader fills authors and articles from the JSON fixture.
type Loader struct {
	db      *sqlx.DB
	files   storage.FileStorage
	fixture string
	log     *zap.Logger
}

func NewLoader(db *sqlx.DB, files storage.FileStorage, fixture string, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{db: db, files: files, fixture: fixture, log: log}
}

func (l *Loader) readFixture(ctx context.Context) ([]Record, error) {
	f, err := l.files.Open(ctx, l.fixture)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	defer f.Close()

	records, err := ParseFixture(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.fixture, err)
	}
	return records, nil
}

// LoadAuthors inserts every fixture author, skipping names that already
// exist. It returns the number of new rows.
func (l *Loader) LoadAuthors(ctx context.Context) (int64, error) {
	records, err := l.readFixture(ctx)
	if err != nil {
		return 0, err
	}

	var inserted int64
	for _, rec := range records {
		res, err := l.db.NamedExecContext(ctx, insertAuthorSQL, rec)
		if err != nil {
			return inserted, fmt.Errorf("insert author %q: %w", rec.Author, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	l.log.Info("authors seeded", zap.Int("records", len(records)), zap.Int64("inserted", inserted))
	return inserted, nil
}

// LoadArticles inserts the fixture articles only when the articles table is
// empty. The count and the inserts share one transaction, so a failed seed
// leaves the table empty and the next start tries again.
func (l *Loader) LoadArticles(ctx context.Context) (int64, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	var count int64
	if err := tx.GetContext(ctx, &count, countArticlesSQL); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	if count > 0 {
		l.log.Debug("articles already present, skipping seed", zap.Int64("count", count))
		return 0, nil
	}

	records, err := l.readFixture(ctx)
	if err != nil {
		return 0, err
	}

	var inserted int64
	for _, rec := range records {
		res, err := tx.NamedExecContext(ctx, insertArticleSQL, rec)
		if err != nil {
			return 0, fmt.Errorf("insert article %q: %w", rec.Title, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			l.log.Warn("fixture article has no matching author", zap.String("author", rec.Author), zap.String("title", rec.Title))
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed transaction: %w", err)
	}
	l.log.Info("articles seeded", zap.Int("records", len(records)), zap.Int64("inserted", inserted))
	return inserted, nil
}

package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	createAuthorsSQL = `CREATE TABLE IF NOT EXISTS authors (
		author_id SERIAL PRIMARY KEY,
		author VARCHAR(255) UNIQUE NOT NULL,
		"authorUrl" VARCHAR(255)
	)`

	createArticlesSQL = `CREATE TABLE IF NOT EXISTS articles (
		article_id SERIAL PRIMARY KEY,
		author_id INTEGER NOT NULL REFERENCES authors(author_id),
		title VARCHAR(255) NOT NULL,
		category VARCHAR(20),
		"publishedOn" DATE,
		body TEXT NOT NULL
	)`
)

// Initializer creates the authors and articles tables and, when a Loader is
// set, seeds each table right after its CREATE succeeds.
type Initializer struct {
	db     *sqlx.DB
	loader *Loader
	log    *zap.Logger
}

// NewInitializer builds an Initializer. A nil loader only creates tables.
func NewInitializer(db *sqlx.DB, loader *Loader, log *zap.Logger) *Initializer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Initializer{db: db, loader: loader, log: log}
}

// EnsureSchema runs both table steps independently: a failure in one is
// logged and does not stop the other. The joined errors are returned.
func (i *Initializer) EnsureSchema(ctx context.Context) error {
	var errs []error

	if err := i.step(ctx, "authors", createAuthorsSQL, i.loadAuthors); err != nil {
		errs = append(errs, err)
	}
	if err := i.step(ctx, "articles", createArticlesSQL, i.loadArticles); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (i *Initializer) step(ctx context.Context, table, ddl string, load func(context.Context) error) error {
	if _, err := i.db.ExecContext(ctx, ddl); err != nil {
		i.log.Error("create table failed", zap.String("table", table), zap.Error(err))
		return fmt.Errorf("create table %s: %w", table, err)
	}
	if i.loader == nil {
		return nil
	}
	if err := load(ctx); err != nil {
		i.log.Error("seed failed", zap.String("table", table), zap.Error(err))
		return fmt.Errorf("seed %s: %w", table, err)
	}
	return nil
}

func (i *Initializer) loadAuthors(ctx context.Context) error {
	_, err := i.loader.LoadAuthors(ctx)
	return err
}

func (i *Initializer) loadArticles(ctx context.Context) error {
	_, err := i.loader.LoadArticles(ctx)
	return err
}

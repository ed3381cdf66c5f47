package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/iceymoss/kilovolt/pkg/db/objects"
	xerrors "github.com/iceymoss/kilovolt/pkg/errors"
	"github.com/iceymoss/kilovolt/pkg/transaction"
	"github.com/iceymoss/kilovolt/pkg/utils"
	"github.com/iceymoss/kilovolt/pkg/xerr"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewArticle is the input of CreateArticle. Author and AuthorURL identify
// the author row; the remaining fields go to the article.
type NewArticle struct {
	Author      string
	AuthorURL   string
	Title       string
	Category    *string
	PublishedOn *utils.Date
	Body        string
}

func (a NewArticle) validate() error {
	switch {
	case strings.TrimSpace(a.Author) == "":
		return xerrors.New(xerr.ErrMissingParameter, "author is required")
	case strings.TrimSpace(a.AuthorURL) == "":
		return xerrors.New(xerr.ErrMissingParameter, "authorUrl is required")
	case strings.TrimSpace(a.Title) == "":
		return xerrors.New(xerr.ErrMissingParameter, "title is required")
	case strings.TrimSpace(a.Body) == "":
		return xerrors.New(xerr.ErrMissingParameter, "body is required")
	}
	return nil
}

// ArticleUpdate replaces every mutable column of an article. When AuthorID
// is zero the author is resolved by name.
type ArticleUpdate struct {
	AuthorID    uint64
	Author      string
	Title       string
	Category    *string
	PublishedOn *utils.Date
	Body        string
}

func (a ArticleUpdate) validate() error {
	switch {
	case a.AuthorID == 0 && strings.TrimSpace(a.Author) == "":
		return xerrors.New(xerr.ErrMissingParameter, "author_id or author is required")
	case strings.TrimSpace(a.Title) == "":
		return xerrors.New(xerr.ErrMissingParameter, "title is required")
	case strings.TrimSpace(a.Body) == "":
		return xerrors.New(xerr.ErrMissingParameter, "body is required")
	}
	return nil
}

type ArticleRepo struct {
	db *gorm.DB
	tx *transaction.Manager
}

func NewArticleRepo(db *gorm.DB, tx *transaction.Manager) *ArticleRepo {
	return &ArticleRepo{db: db, tx: tx}
}

// ListArticles returns every article joined with its author. Articles
// whose author row is missing are left out by the inner join.
func (r *ArticleRepo) ListArticles(ctx context.Context) ([]objects.ArticleRow, error) {
	rows := make([]objects.ArticleRow, 0)
	err := transaction.GetTransactionOrDB(ctx, r.db).
		Table("articles").
		Select(`articles.article_id, articles.author_id, articles.title, articles.category, articles."publishedOn", articles.body, authors.author, authors."authorUrl"`).
		Joins("INNER JOIN authors ON articles.author_id = authors.author_id").
		Order("articles.article_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "list articles")
	}
	return rows, nil
}

// CreateArticle inserts the author if its name is new, looks the author up
// by URL and inserts the article, all in one transaction. A name that is
// already registered under another URL is a conflict.
func (r *ArticleRepo) CreateArticle(ctx context.Context, in NewArticle) (uint64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}

	var articleID uint64
	err := r.tx.Execute(ctx, nil, func(ctx context.Context) error {
		conn := transaction.GetTransactionOrDB(ctx, r.db)

		authorURL := in.AuthorURL
		author := objects.Author{Author: in.Author, AuthorURL: &authorURL}
		if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&author).Error; err != nil {
			return translate(err, "insert author")
		}

		var found objects.Author
		err := conn.Where(`"authorUrl" = ?`, in.AuthorURL).Order("author_id").Take(&found).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return xerrors.New(xerr.ErrConflict, "author "+in.Author+" is registered with a different authorUrl")
		}
		if err != nil {
			return translate(err, "find author by url")
		}

		article := objects.Article{
			AuthorID:    found.ID,
			Title:       in.Title,
			Category:    in.Category,
			PublishedOn: in.PublishedOn,
			Body:        in.Body,
		}
		if err := conn.Create(&article).Error; err != nil {
			return translate(err, "insert article")
		}
		articleID = article.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return articleID, nil
}

// UpdateArticle rewrites author_id, title, category, publishedOn and body
// of one article.
func (r *ArticleRepo) UpdateArticle(ctx context.Context, articleID uint64, in ArticleUpdate) error {
	if err := in.validate(); err != nil {
		return err
	}

	return r.tx.Execute(ctx, nil, func(ctx context.Context) error {
		conn := transaction.GetTransactionOrDB(ctx, r.db)

		authorID := in.AuthorID
		if authorID == 0 {
			var found objects.Author
			err := conn.Where("author = ?", in.Author).Take(&found).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return xerrors.New(xerr.ErrResourceNotFound, "author "+in.Author+" not found")
			}
			if err != nil {
				return translate(err, "find author by name")
			}
			authorID = found.ID
		}

		res := conn.Model(&objects.Article{}).
			Where("article_id = ?", articleID).
			Updates(map[string]any{
				"author_id":   authorID,
				"title":       in.Title,
				"category":    nullableString(in.Category),
				"publishedOn": nullableDate(in.PublishedOn),
				"body":        in.Body,
			})
		if res.Error != nil {
			return translate(res.Error, "update article")
		}
		if res.RowsAffected == 0 {
			return xerrors.New(xerr.ErrResourceNotFound, "article not found")
		}
		return nil
	})
}

// DeleteArticle removes one article. A missing id is not an error; the
// number of removed rows is returned.
func (r *ArticleRepo) DeleteArticle(ctx context.Context, articleID uint64) (int64, error) {
	res := transaction.GetTransactionOrDB(ctx, r.db).
		Where("article_id = ?", articleID).
		Delete(&objects.Article{})
	if res.Error != nil {
		return 0, translate(res.Error, "delete article")
	}
	return res.RowsAffected, nil
}

// DeleteAllArticles empties the articles table; authors stay.
func (r *ArticleRepo) DeleteAllArticles(ctx context.Context) (int64, error) {
	res := transaction.GetTransactionOrDB(ctx, r.db).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&objects.Article{})
	if res.Error != nil {
		return 0, translate(res.Error, "delete all articles")
	}
	return res.RowsAffected, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableDate(d *utils.Date) any {
	if d == nil {
		return nil
	}
	return *d
}

// translate classifies driver errors into application codes.
func translate(err error, msg string) error {
	var cm *xerrors.CodeMsg
	if errors.As(err, &cm) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505": // unique_violation
			return xerrors.Wrap(xerr.ErrDuplicateEntry, msg+": duplicate value", err)
		case pgErr.Code == "23503": // foreign_key_violation
			return xerrors.Wrap(xerr.ErrInvalidInput, msg+": referenced author does not exist", err)
		case pgErr.Code == "23502": // not_null_violation
			return xerrors.Wrap(xerr.ErrMissingParameter, msg+": missing required column "+pgErr.ColumnName, err)
		case strings.HasPrefix(pgErr.Code, "22"): // data_exception
			return xerrors.Wrap(xerr.ErrInvalidInput, msg+": "+pgErr.Message, err)
		}
	}
	return xerrors.Wrap(xerr.DB_ERROR, msg, err)
}

package repo_test

import (
	"context"
	"testing"

	"github.com/iceymoss/kilovolt/internal/repo"
	"github.com/iceymoss/kilovolt/internal/seed"
	"github.com/iceymoss/kilovolt/internal/testutil"
	"github.com/iceymoss/kilovolt/pkg/db"
	xerrors "github.com/iceymoss/kilovolt/pkg/errors"
	"github.com/iceymoss/kilovolt/pkg/transaction"
	"github.com/iceymoss/kilovolt/pkg/utils"
	"github.com/iceymoss/kilovolt/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*repo.ArticleRepo, *gorm.DB) {
	t.Helper()
	gdb := testutil.OpenPostgres(t)
	sdb, err := db.Sqlx(gdb)
	require.NoError(t, err)
	require.NoError(t, seed.NewInitializer(sdb, nil, nil).EnsureSchema(context.Background()))
	return repo.NewArticleRepo(gdb, transaction.NewManager(gdb)), gdb
}

func count(t *testing.T, gdb *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Table(table).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }

func TestCreateAndList(t *testing.T) {
	r, gdb := setup(t)
	ctx := context.Background()

	published, err := utils.ParseDate("2020-01-02")
	require.NoError(t, err)
	id, err := r.CreateArticle(ctx, repo.NewArticle{
		Author:      "Ada",
		AuthorURL:   "http://ada.dev",
		Title:       "T1",
		Category:    strPtr("cs"),
		PublishedOn: published,
		Body:        "b",
	})
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.EqualValues(t, 1, count(t, gdb, "authors"))
	assert.EqualValues(t, 1, count(t, gdb, "articles"))

	rows, err := r.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	got := rows[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Ada", got.Author)
	require.NotNil(t, got.AuthorURL)
	assert.Equal(t, "http://ada.dev", *got.AuthorURL)
	assert.Equal(t, "T1", got.Title)
	require.NotNil(t, got.Category)
	assert.Equal(t, "cs", *got.Category)
	require.NotNil(t, got.PublishedOn)
	assert.Equal(t, "2020-01-02", got.PublishedOn.String())
	assert.Equal(t, "b", got.Body)
}

func TestCreateReusesAuthor(t *testing.T) {
	r, gdb := setup(t)
	ctx := context.Background()

	in := repo.NewArticle{Author: "Ada", AuthorURL: "http://ada.dev", Title: "T1", Body: "b"}
	first, err := r.CreateArticle(ctx, in)
	require.NoError(t, err)

	in.Title = "T2"
	second, err := r.CreateArticle(ctx, in)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	assert.EqualValues(t, 1, count(t, gdb, "authors"))
	assert.EqualValues(t, 2, count(t, gdb, "articles"))

	rows, err := r.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0].AuthorID, rows[1].AuthorID)
	assert.Nil(t, rows[1].Category)
	assert.Nil(t, rows[1].PublishedOn)
}

func TestCreateConflictingURL(t *testing.T) {
	r, gdb := setup(t)
	ctx := context.Background()

	_, err := r.CreateArticle(ctx, repo.NewArticle{Author: "Ada", AuthorURL: "http://ada.dev", Title: "T1", Body: "b"})
	require.NoError(t, err)

	_, err = r.CreateArticle(ctx, repo.NewArticle{Author: "Ada", AuthorURL: "http://other.dev", Title: "T2", Body: "b"})
	require.Error(t, err)
	assert.True(t, xerrors.IsCode(err, xerr.ErrConflict), "got %v", err)
	assert.Equal(t, 409, xerrors.From(err).HTTPStatus())

	assert.EqualValues(t, 1, count(t, gdb, "authors"))
	assert.EqualValues(t, 1, count(t, gdb, "articles"), "the failed create must leave nothing behind")
}

func TestCreateValueTooLong(t *testing.T) {
	r, gdb := setup(t)

	long := "a-category-name-longer-than-twenty"
	_, err := r.CreateArticle(context.Background(), repo.NewArticle{
		Author: "Ada", AuthorURL: "http://ada.dev", Title: "T1", Category: &long, Body: "b",
	})
	require.Error(t, err)
	assert.Equal(t, 400, xerrors.From(err).HTTPStatus())
	assert.Zero(t, count(t, gdb, "authors"), "author insert is rolled back with the article")
}

func TestUpdateArticle(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	id, err := r.CreateArticle(ctx, repo.NewArticle{Author: "Ada", AuthorURL: "http://ada.dev", Title: "T1", Body: "b"})
	require.NoError(t, err)
	_, err = r.CreateArticle(ctx, repo.NewArticle{Author: "Grace", AuthorURL: "http://grace.dev", Title: "G1", Body: "g"})
	require.NoError(t, err)

	published, err := utils.ParseDate("2021-03-04")
	require.NoError(t, err)
	err = r.UpdateArticle(ctx, id, repo.ArticleUpdate{
		Author:      "Grace",
		Title:       "T1 revised",
		Category:    strPtr("ops"),
		PublishedOn: published,
		Body:        "b2",
	})
	require.NoError(t, err)

	rows, err := r.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	got := rows[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Grace", got.Author)
	assert.Equal(t, "T1 revised", got.Title)
	require.NotNil(t, got.Category)
	assert.Equal(t, "ops", *got.Category)
	require.NotNil(t, got.PublishedOn)
	assert.Equal(t, "2021-03-04", got.PublishedOn.String())
	assert.Equal(t, "b2", got.Body)

	// explicit author id, nulls clear the optional columns
	err = r.UpdateArticle(ctx, id, repo.ArticleUpdate{AuthorID: rows[1].AuthorID, Title: "T1", Body: "b3"})
	require.NoError(t, err)
	rows, err = r.ListArticles(ctx)
	require.NoError(t, err)
	assert.Nil(t, rows[0].Category)
	assert.Nil(t, rows[0].PublishedOn)
	assert.Equal(t, "b3", rows[0].Body)
}

func TestUpdateArticleNotFound(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	id, err := r.CreateArticle(ctx, repo.NewArticle{Author: "Ada", AuthorURL: "http://ada.dev", Title: "T1", Body: "b"})
	require.NoError(t, err)

	err = r.UpdateArticle(ctx, 9999, repo.ArticleUpdate{Author: "Ada", Title: "t", Body: "b"})
	assert.Equal(t, 404, xerrors.From(err).HTTPStatus())

	err = r.UpdateArticle(ctx, id, repo.ArticleUpdate{Author: "Nobody", Title: "t", Body: "b"})
	assert.Equal(t, 404, xerrors.From(err).HTTPStatus())

	err = r.UpdateArticle(ctx, id, repo.ArticleUpdate{AuthorID: 9999, Title: "t", Body: "b"})
	assert.Equal(t, 400, xerrors.From(err).HTTPStatus(), "unknown author id violates the foreign key")
}

func TestDeleteArticle(t *testing.T) {
	r, gdb := setup(t)
	ctx := context.Background()

	id, err := r.CreateArticle(ctx, repo.NewArticle{Author: "Ada", AuthorURL: "http://ada.dev", Title: "T1", Body: "b"})
	require.NoError(t, err)

	n, err := r.DeleteArticle(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.DeleteArticle(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n, "deleting a missing article is a no-op")

	assert.Zero(t, count(t, gdb, "articles"))
	assert.EqualValues(t, 1, count(t, gdb, "authors"))
}

func TestDeleteAllArticles(t *testing.T) {
	r, gdb := setup(t)
	ctx := context.Background()

	for _, title := range []string{"T1", "T2", "T3"} {
		_, err := r.CreateArticle(ctx, repo.NewArticle{Author: "Ada", AuthorURL: "http://ada.dev", Title: title, Body: "b"})
		require.NoError(t, err)
	}

	n, err := r.DeleteAllArticles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	rows, err := r.ListArticles(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows, "an empty list encodes as []")
	assert.EqualValues(t, 1, count(t, gdb, "authors"))

	n, err = r.DeleteAllArticles(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListSkipsOrphans(t *testing.T) {
	r, gdb := setup(t)
	ctx := context.Background()

	_, err := r.CreateArticle(ctx, repo.NewArticle{Author: "Ada", AuthorURL: "http://ada.dev", Title: "T1", Body: "b"})
	require.NoError(t, err)

	// an article whose author row is gone only exists with the foreign key lifted
	require.NoError(t, gdb.Exec(`ALTER TABLE articles DROP CONSTRAINT articles_author_id_fkey`).Error)
	require.NoError(t, gdb.Exec(`INSERT INTO articles(author_id, title, body) VALUES (4242, 'orphan', 'x')`).Error)

	rows, err := r.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "T1", rows[0].Title)
}

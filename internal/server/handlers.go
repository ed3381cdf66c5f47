package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/iceymoss/kilovolt/internal/repo"
	"github.com/iceymoss/kilovolt/pkg/db/objects"
	xerrors "github.com/iceymoss/kilovolt/pkg/errors"
	"github.com/iceymoss/kilovolt/pkg/utils"
	"github.com/iceymoss/kilovolt/pkg/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgInserted = "insert complete"
	msgUpdated  = "Update complete"
	msgDeleted  = "Delete complete"
)

// ArticleStore is what the routes need from the repository.
type ArticleStore interface {
	ListArticles(ctx context.Context) ([]objects.ArticleRow, error)
	CreateArticle(ctx context.Context, in repo.NewArticle) (uint64, error)
	UpdateArticle(ctx context.Context, articleID uint64, in repo.ArticleUpdate) error
	DeleteArticle(ctx context.Context, articleID uint64) (int64, error)
	DeleteAllArticles(ctx context.Context) (int64, error)
}

// createArticleRequest binds both JSON and urlencoded bodies. publishedOn is
// kept as text so a blank form field means "no date".
type createArticleRequest struct {
	Author      string  `form:"author" json:"author"`
	AuthorURL   string  `form:"authorUrl" json:"authorUrl"`
	Title       string  `form:"title" json:"title"`
	Category    *string `form:"category" json:"category"`
	PublishedOn *string `form:"publishedOn" json:"publishedOn"`
	Body        string  `form:"body" json:"body"`
}

type updateArticleRequest struct {
	AuthorID    string  `form:"author_id" json:"-"`
	AuthorIDNum *uint64 `form:"-" json:"author_id"`
	Author      string  `form:"author" json:"author"`
	AuthorURL   string  `form:"authorUrl" json:"authorUrl"` // accepted, not stored on articles
	Title       string  `form:"title" json:"title"`
	Category    *string `form:"category" json:"category"`
	PublishedOn *string `form:"publishedOn" json:"publishedOn"`
	Body        string  `form:"body" json:"body"`
}

func (r updateArticleRequest) authorID() (uint64, error) {
	if r.AuthorIDNum != nil {
		return *r.AuthorIDNum, nil
	}
	s := strings.TrimSpace(r.AuthorID)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerr.ErrInvalidInput, "author_id must be a positive integer", err)
	}
	return id, nil
}

type articleHandler struct {
	store ArticleStore
	log   *zap.Logger
}

func (h *articleHandler) list(c *gin.Context) {
	rows, err := h.store.ListArticles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *articleHandler) create(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, xerrors.Wrap(xerr.ErrInvalidJSON, "malformed request body", err))
		return
	}
	published, err := parseDate(req.PublishedOn)
	if err != nil {
		h.fail(c, err)
		return
	}

	id, err := h.store.CreateArticle(c.Request.Context(), repo.NewArticle{
		Author:      req.Author,
		AuthorURL:   req.AuthorURL,
		Title:       req.Title,
		Category:    optional(req.Category),
		PublishedOn: published,
		Body:        req.Body,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Debug("article created", zap.Uint64("article_id", id), zap.String("request_id", c.GetString(requestIDKey)))
	c.String(http.StatusOK, msgInserted)
}

func (h *articleHandler) update(c *gin.Context) {
	id, err := articleID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req updateArticleRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, xerrors.Wrap(xerr.ErrInvalidJSON, "malformed request body", err))
		return
	}
	authorID, err := req.authorID()
	if err != nil {
		h.fail(c, err)
		return
	}
	published, err := parseDate(req.PublishedOn)
	if err != nil {
		h.fail(c, err)
		return
	}

	err = h.store.UpdateArticle(c.Request.Context(), id, repo.ArticleUpdate{
		AuthorID:    authorID,
		Author:      req.Author,
		Title:       req.Title,
		Category:    optional(req.Category),
		PublishedOn: published,
		Body:        req.Body,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.String(http.StatusOK, msgUpdated)
}

func (h *articleHandler) delete(c *gin.Context) {
	id, err := articleID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.store.DeleteArticle(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if n == 0 {
		h.log.Debug("delete of missing article", zap.Uint64("article_id", id))
	}
	c.String(http.StatusOK, msgDeleted)
}

func (h *articleHandler) deleteAll(c *gin.Context) {
	n, err := h.store.DeleteAllArticles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("all articles deleted", zap.Int64("rows", n), zap.String("request_id", c.GetString(requestIDKey)))
	c.String(http.StatusOK, msgDeleted)
}

// fail logs err and answers with its typed status.
func (h *articleHandler) fail(c *gin.Context, err error) {
	cm := xerrors.From(err)
	status := cm.HTTPStatus()

	fields := []zap.Field{
		zap.Int("code", cm.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", fields...)
	} else {
		h.log.Warn("request rejected", fields...)
	}
	c.AbortWithStatusJSON(status, gin.H{"code": cm.Code, "error": cm.Msg})
}

func articleID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, xerrors.New(xerr.ErrInvalidInput, "article id must be a positive integer")
	}
	return id, nil
}

func parseDate(s *string) (*utils.Date, error) {
	if s == nil {
		return nil, nil
	}
	d, err := utils.ParseDate(*s)
	if err != nil {
		return nil, xerrors.Wrap(xerr.ErrInvalidInput, "publishedOn must be YYYY-MM-DD", err)
	}
	return d, nil
}

// optional maps a blank form field to NULL.
func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

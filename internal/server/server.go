package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/iceymoss/kilovolt/pkg/storage"
	"github.com/iceymoss/kilovolt/pkg/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const newArticlePage = "new.html"

type Server struct {
	engine *gin.Engine
	files  storage.FileStorage
	log    *zap.Logger
	http   *http.Server
}

func NewServer(store ArticleStore, files storage.FileStorage, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(requestID(), accessLog(log), recovery(log))

	s := &Server{
		engine: router,
		files:  files,
		log:    log,
		http:   &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
	}
	h := &articleHandler{store: store, log: log}

	router.GET("/new", s.newArticle)

	api := router.Group("/articles")
	{
		api.GET("", h.list)
		api.POST("", h.create)
		api.DELETE("", h.deleteAll)
		api.PUT("/:id", h.update)
		api.DELETE("/:id", h.delete)
	}

	static := http.FileServer(http.FS(files.FS()))
	router.NoRoute(func(c *gin.Context) {
		// API 路径不回落到静态页面
		if strings.HasPrefix(c.Request.URL.Path, "/articles") {
			c.JSON(http.StatusNotFound, gin.H{"code": xerr.ErrNotFound, "error": "route not found"})
			return
		}
		static.ServeHTTP(c.Writer, c.Request)
	})

	return s
}

func (s *Server) newArticle(c *gin.Context) {
	if !s.files.Exists(newArticlePage) {
		c.JSON(http.StatusNotFound, gin.H{"code": xerr.ErrResourceNotFound, "error": newArticlePage + " not found"})
		return
	}
	c.FileFromFS(newArticlePage, http.FS(s.files.FS()))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr and serves until Shutdown. onListen is called once the
// port is bound.
func (s *Server) Run(addr string, onListen func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if onListen != nil {
		onListen(ln.Addr())
	}
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

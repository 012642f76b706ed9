package api

import (
	"io"
	"net/http"
	"time"

	"FeedNotify/middleware"
	"FeedNotify/module/notify/handler"
	"FeedNotify/module/notify/model"
	"FeedNotify/module/notify/service"
	errs "FeedNotify/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Name is reported by GET /.
const Name = "Seguir Notify"

type Server struct {
	svc  *service.Service
	feed *handler.Feed
	log  *zap.Logger
}

type Options struct {
	// Auth guards the drain and event routes when set.
	Auth    gin.HandlerFunc
	Origins []string
}

// NewRouter builds the status and operations API.
func NewRouter(svc *service.Service, feed *handler.Feed, opts Options, log *zap.Logger) *gin.Engine {
	s := &Server{svc: svc, feed: feed, log: log}

	mids := middleware.NewManager().
		Add("recovery", middleware.Recovery(log)).
		Add("access", middleware.AccessLog(log))
	if len(opts.Origins) > 0 {
		mids.Add("cors", middleware.CORS(opts.Origins))
	}

	r := gin.New()
	r.Use(mids.Handlers()...)

	open := middleware.RouteOpt{}
	guarded := middleware.RouteOpt{Auth: opts.Auth}

	middleware.GET(r, "/", s.root, open)
	middleware.GET(r, "/status", s.status, open)
	middleware.GET(r, "/user/:user", s.user, open)
	middleware.GET(r, "/username/:username", s.username, open)
	middleware.GET(r, "/useraltid/:altid", s.altid, open)
	middleware.GET(r, "/users", s.users, open)
	middleware.GET(r, "/notify", s.drainCurrent, guarded)
	middleware.GET(r, "/notify/:bucket", s.drain, guarded)
	middleware.POST(r, "/event", s.event, guarded)
	return r
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": Name})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) user(c *gin.Context) {
	st, err := s.svc.Directory.Status(c.Request.Context(), c.Param("user"))
	s.reply(c, st, err)
}

func (s *Server) username(c *gin.Context) {
	st, err := s.svc.Directory.StatusByUsername(c.Request.Context(), c.Param("username"))
	s.reply(c, st, err)
}

func (s *Server) altid(c *gin.Context) {
	st, err := s.svc.Directory.StatusByAltid(c.Request.Context(), c.Param("altid"))
	s.reply(c, st, err)
}

func (s *Server) users(c *gin.Context) {
	list, err := s.svc.Directory.ListPending(c.Request.Context())
	if list == nil {
		list = []model.UserStatus{}
	}
	s.reply(c, list, err)
}

func (s *Server) drainCurrent(c *gin.Context) {
	res, err := s.svc.Digest.DrainCurrent(c.Request.Context())
	s.reply(c, res, err)
}

func (s *Server) drain(c *gin.Context) {
	slot := model.BucketSlot(c.Param("bucket"))
	if _, err := time.Parse(service.SlotLayout, slot); err != nil {
		middleware.AbortWithError(c, errs.ErrValidation.WrapMsg("bucket must look like YYYYMMDD:HH", "bucket", slot))
		return
	}
	res, err := s.svc.Digest.Drain(c.Request.Context(), slot)
	s.reply(c, res, err)
}

// event accepts one feed event, the same envelope the bus carries.
func (s *Server) event(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		middleware.AbortWithError(c, errs.ErrValidation.WrapErr(err, "read body"))
		return
	}
	ev, err := handler.DecodeEvent(raw)
	if err == nil {
		err = s.feed.Handle(c.Request.Context(), ev)
	}
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) reply(c *gin.Context, body any, err error) {
	if err != nil {
		if errs.Code(err) >= errs.ServerInternalError {
			s.log.Error("api request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		}
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/querybuild"
)

func (s *Server) health(c *gin.Context) {
	if s.cfg.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.Health.Ping(ctx); err != nil {
			loggerFrom(c).Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listTables(c *gin.Context) {
	names, err := s.svc.Tables(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (s *Server) listColumns(c *gin.Context) {
	cols, err := s.svc.Columns(c.Request.Context(), c.Param("table"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cols)
}

func (s *Server) selectRows(c *gin.Context) {
	p, err := bindRead(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	rows, err := s.svc.Select(c.Request.Context(), c.Param("table"), querybuild.SelectRequest{
		Columns: p.Columns,
		Filters: p.Filters,
		Window:  p.window(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) aggregate(c *gin.Context) {
	p, err := bindRead(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	rows, err := s.svc.Aggregate(c.Request.Context(), c.Param("table"), querybuild.AggregateRequest{
		GroupBy:   p.GroupBy,
		Aggregate: p.Aggregate,
		Filters:   p.Filters,
		Window:    p.window(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) count(c *gin.Context) {
	p, err := bindRead(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	n, err := s.svc.Count(c.Request.Context(), c.Param("table"), p.Filters)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) insert(c *gin.Context) {
	var p mutationParams
	if err := bindBody(c, &p); err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.svc.Insert(c.Request.Context(), c.Param("table"), p.Rows)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) update(c *gin.Context) {
	var p mutationParams
	if err := bindBody(c, &p); err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.svc.Update(c.Request.Context(), c.Param("table"), p.Filters, p.Values)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) deleteRows(c *gin.Context) {
	var p mutationParams
	if err := bindBody(c, &p); err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.svc.Delete(c.Request.Context(), c.Param("table"), p.Filters)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// fail writes an error response. Engine failures are logged with their
// cause and reported without it.
func (s *Server) fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		loggerFrom(c).Error("operation failed", "table", c.Param("table"), "error", err)
		msg = "query execution failed"
		if code == "" {
			code = apperr.EngineError
		}
	}
	c.AbortWithStatusJSON(status, errorBody(string(code), msg))
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.TableNotFound:
		return http.StatusNotFound
	case apperr.UnknownColumn, apperr.UnknownFunction, apperr.InvalidTemporalValue,
		apperr.InvalidArgument, apperr.InvalidPlan:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

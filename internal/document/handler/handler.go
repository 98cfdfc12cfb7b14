package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitecraft/siteadmin/internal/document/service"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/pkg/logger"
)

// RegisterDocumentRoutes mounts the document endpoints. guard runs before
// every write route (authentication, rate limiting).
//
//	GET  /content          -> {content, sha}
//	POST /content/update   {newContent, sha} -> {newSha}
//	GET  /pages            -> {pages, sha}
//	POST /pages            {pages, sha} -> {sha, pages}
//	GET  /sections         -> {sections, sha}
//	POST /sections         {sections, sha} -> {sha, sections}
func RegisterDocumentRoutes(r gin.IRouter, svc service.Service, guard ...gin.HandlerFunc) {
	for _, kind := range site.Kinds {
		r.GET("/"+kind.String(), getHandler(svc, kind))
	}

	r.POST("/content/update", chain(guard, func(c *gin.Context) {
		var req struct {
			NewContent json.RawMessage `json:"newContent"`
			SHA        string          `json:"sha"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		snap, err := svc.Update(c.Request.Context(), site.KindContent, req.NewContent, req.SHA)
		if err != nil {
			writeError(c, site.KindContent, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"newSha": snap.SHA})
	})...)

	for _, kind := range []site.Kind{site.KindPages, site.KindSections} {
		r.POST("/"+kind.String(), chain(guard, postHandler(svc, kind))...)
	}
}

func chain(guard []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guard)+1)
	return append(append(out, guard...), h)
}

func getHandler(svc service.Service, kind site.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.Get(c.Request.Context(), kind)
		if err != nil {
			writeError(c, kind, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{kind.String(): json.RawMessage(snap.Data), "sha": snap.SHA})
	}
}

func postHandler(svc service.Service, kind site.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req map[string]json.RawMessage
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, ok := req[kind.String()]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + kind.String()})
			return
		}
		var sha string
		if raw, ok := req["sha"]; ok {
			if err := json.Unmarshal(raw, &sha); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "sha must be a string"})
				return
			}
		}
		snap, err := svc.Update(c.Request.Context(), kind, data, sha)
		if err != nil {
			writeError(c, kind, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sha": snap.SHA, kind.String(): json.RawMessage(snap.Data)})
	}
}

func writeError(c *gin.Context, kind site.Kind, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": kind.String() + " not found"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": kind.String() + " has changed since it was read; refresh and retry"})
	case errors.Is(err, service.ErrInvalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.Errorf("document: %s: %v", kind, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

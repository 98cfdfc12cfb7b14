package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitecraft/siteadmin/internal/storage"
	"github.com/sitecraft/siteadmin/pkg/logger"
	"github.com/sitecraft/siteadmin/pkg/metrics"
)

const assetKind = "asset"

// RegisterAssetRoutes mounts the asset endpoints. guard runs before the
// upload route only.
//
//	GET  /directory/list?path=   -> {files}
//	GET  /assets/metadata?path=  -> {sha} | 404
//	POST /product-images         {path, contentBase64, sha?} -> {newSha, fileUrl}
func RegisterAssetRoutes(r gin.IRouter, store storage.AssetStore, guard ...gin.HandlerFunc) {
	r.GET("/directory/list", func(c *gin.Context) {
		files, err := store.List(c.Request.Context(), c.Query("path"))
		if err != nil {
			writeAssetError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": files})
	})

	r.GET("/assets/metadata", func(c *gin.Context) {
		sha, err := store.Stat(c.Request.Context(), c.Query("path"))
		if err != nil {
			writeAssetError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sha": sha})
	})

	upload := func(c *gin.Context) {
		var req struct {
			Path          string `json:"path" binding:"required"`
			ContentBase64 string `json:"contentBase64" binding:"required"`
			SHA           string `json:"sha"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "contentBase64 is not valid base64"})
			return
		}
		ctx := c.Request.Context()
		sha, err := store.Put(ctx, req.Path, data, req.SHA)
		if err != nil {
			outcome := metrics.OutcomeError
			if errors.Is(err, storage.ErrConflict) {
				outcome = metrics.OutcomeConflict
			}
			metrics.StoreWrites.WithLabelValues(assetKind, outcome).Inc()
			writeAssetError(c, err)
			return
		}
		metrics.StoreWrites.WithLabelValues(assetKind, metrics.OutcomeOK).Inc()
		p, _ := storage.CleanPath(req.Path)
		fileURL, err := store.URL(ctx, p)
		if err != nil {
			logger.Warnf("assets: url for %s: %v", p, err)
		}
		logger.Infof("assets: stored %s (%d bytes) -> %s", p, len(data), sha)
		c.JSON(http.StatusOK, gin.H{"newSha": sha, "fileUrl": fileURL})
	}
	r.POST("/product-images", append(append([]gin.HandlerFunc{}, guard...), upload)...)
}

func writeAssetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "asset has changed since it was read; refresh and retry"})
	case errors.Is(err, storage.ErrBadPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("assets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

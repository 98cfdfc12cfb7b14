package client

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitecraft/siteadmin/internal/docsync"
	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/internal/syncerr"
)

var _ docsync.Remote = (*Client)(nil)

func newServer(t *testing.T, register func(r *gin.Engine)) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchDecodesSnapshotAndSha(t *testing.T) {
	var gotAuth, gotReqID string
	srv := newServer(t, func(r *gin.Engine) {
		r.GET("/pages", func(c *gin.Context) {
			gotAuth = c.GetHeader("Authorization")
			gotReqID = c.GetHeader("X-Request-ID")
			c.Data(http.StatusOK, "application/json", []byte(`{"pages":{"pages":{"home":{"title":"Home"}},"z":1,"a":2},"sha":"abc"}`))
		})
	})

	cl := New(srv.URL, WithToken("t0k"))
	snap, sha, err := cl.Fetch(context.Background(), site.KindPages)
	require.NoError(t, err)
	assert.Equal(t, "abc", sha)
	assert.Equal(t, []string{"pages", "z", "a"}, snap.Keys())
	assert.Equal(t, "Bearer t0k", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestFetchMapsStatusCodes(t *testing.T) {
	srv := newServer(t, func(r *gin.Engine) {
		r.GET("/sections", func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"error": "no such document"}) })
		r.GET("/content", func(c *gin.Context) { c.JSON(http.StatusBadGateway, gin.H{"error": "upstream down"}) })
	})
	cl := New(srv.URL)

	_, _, err := cl.Fetch(context.Background(), site.KindSections)
	assert.True(t, syncerr.IsNotFound(err))

	_, _, err = cl.Fetch(context.Background(), site.KindContent)
	require.Error(t, err)
	assert.True(t, syncerr.IsTransport(err))
	var te *syncerr.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.Status)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestFetchConnectionFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := New(url).Fetch(context.Background(), site.KindPages)
	assert.True(t, syncerr.IsTransport(err))
	assert.False(t, syncerr.IsNotFound(err))
}

func TestSaveContentUsesUpdateEndpoint(t *testing.T) {
	var body struct {
		NewContent jsontree.Value `json:"newContent"`
		SHA        string         `json:"sha"`
	}
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/content/update", func(c *gin.Context) {
			require.NoError(t, c.ShouldBindJSON(&body))
			c.JSON(http.StatusOK, gin.H{"newSha": "v2"})
		})
	})

	snap := jsontree.MustParse(`{"branding":{"colors":{"primary":"#123456"}}}`)
	accepted, sha, err := New(srv.URL).Save(context.Background(), site.KindContent, snap, "v1")
	require.NoError(t, err)
	assert.Equal(t, "v2", sha)
	assert.True(t, jsontree.Equal(snap, accepted))
	assert.Equal(t, "v1", body.SHA)
	assert.True(t, jsontree.Equal(snap, body.NewContent))
}

func TestSavePagesReturnsAcceptedSnapshot(t *testing.T) {
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/pages", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", []byte(`{"sha":"v3","pages":{"pages":{},"normalized":true}}`))
		})
	})

	accepted, sha, err := New(srv.URL).Save(context.Background(), site.KindPages, jsontree.MustParse(`{"pages":{}}`), "v2")
	require.NoError(t, err)
	assert.Equal(t, "v3", sha)
	_, ok := accepted.Get("normalized")
	assert.True(t, ok)
}

func TestSaveConflict(t *testing.T) {
	srv := newServer(t, func(r *gin.Engine) {
		r.POST("/sections", func(c *gin.Context) { c.JSON(http.StatusConflict, gin.H{"error": "sha mismatch"}) })
	})

	_, _, err := New(srv.URL).Save(context.Background(), site.KindSections, jsontree.NewArray(), "stale")
	require.Error(t, err)
	ce, ok := syncerr.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, "sections", ce.Resource)
	assert.Equal(t, "stale", ce.ExpectedVersion)
	assert.Equal(t, "sha mismatch", ce.Message)
}

func TestAssetEndpoints(t *testing.T) {
	var upload map[string]string
	srv := newServer(t, func(r *gin.Engine) {
		r.GET("/directory/list", func(c *gin.Context) {
			assert.Equal(t, "assets/logos", c.Query("path"))
			c.JSON(http.StatusOK, gin.H{"files": []string{"logo-primary-1.svg"}})
		})
		r.GET("/assets/metadata", func(c *gin.Context) {
			if c.Query("path") == "assets/logos/logo-primary-1.svg" {
				c.JSON(http.StatusOK, gin.H{"sha": "s1"})
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})
		r.POST("/product-images", func(c *gin.Context) {
			require.NoError(t, c.ShouldBindJSON(&upload))
			c.JSON(http.StatusOK, gin.H{"newSha": "s2", "fileUrl": "https://cdn.example/" + upload["path"]})
		})
	})
	cl := New(srv.URL)
	ctx := context.Background()

	files, err := cl.ListDirectory(ctx, "assets/logos")
	require.NoError(t, err)
	assert.Equal(t, []string{"logo-primary-1.svg"}, files)

	sha, err := cl.AssetMetadata(ctx, "assets/logos/logo-primary-1.svg")
	require.NoError(t, err)
	assert.Equal(t, "s1", sha)

	_, err = cl.AssetMetadata(ctx, "assets/logos/logo-primary-2.svg")
	assert.True(t, syncerr.IsNotFound(err))

	res, err := cl.UploadProductImage(ctx, Upload{Path: "assets/logos/logo-primary-2.svg", Content: []byte("<svg/>")})
	require.NoError(t, err)
	assert.Equal(t, "s2", res.NewSHA)
	assert.Equal(t, "https://cdn.example/assets/logos/logo-primary-2.svg", res.FileURL)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("<svg/>")), upload["contentBase64"])
	_, hasSHA := upload["sha"]
	assert.False(t, hasSHA)
}

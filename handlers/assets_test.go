package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitecraft/siteadmin/internal/assets"
	"github.com/sitecraft/siteadmin/internal/client"
	"github.com/sitecraft/siteadmin/internal/docsync"
	"github.com/sitecraft/siteadmin/internal/document/handler"
	"github.com/sitecraft/siteadmin/internal/document/service"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/internal/storage"
	"github.com/sitecraft/siteadmin/pkg/metrics"
)

func newAssetRouter(store storage.AssetStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterAssetRoutes(g, store)
	return g
}

func postJSON(g *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func get(g *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestAssetRoutes_UploadListAndMetadata(t *testing.T) {
	g := newAssetRouter(storage.NewMemoryAssetStore("https://cdn.example"))
	conflicts := testutil.ToFloat64(metrics.StoreWrites.WithLabelValues(assetKind, metrics.OutcomeConflict))

	w := get(g, "/assets/metadata?path=assets/logos/logo-primary-1.svg")
	assert.Equal(t, http.StatusNotFound, w.Code)

	content := base64.StdEncoding.EncodeToString([]byte("<svg/>"))
	w = postJSON(g, "/product-images", gin.H{"path": "assets/logos/logo-primary-1.svg", "contentBase64": content})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var up struct {
		NewSHA  string `json:"newSha"`
		FileURL string `json:"fileUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &up))
	assert.NotEmpty(t, up.NewSHA)
	assert.Equal(t, "https://cdn.example/assets/logos/logo-primary-1.svg", up.FileURL)

	w = get(g, "/assets/metadata?path=assets/logos/logo-primary-1.svg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sha":"`+up.NewSHA+`"}`, w.Body.String())

	w = get(g, "/directory/list?path=assets/logos")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"files":["logo-primary-1.svg"]}`, w.Body.String())

	// exists and no sha given
	w = postJSON(g, "/product-images", gin.H{"path": "assets/logos/logo-primary-1.svg", "contentBase64": content})
	assert.Equal(t, http.StatusConflict, w.Code)
	// stale sha
	w = postJSON(g, "/product-images", gin.H{"path": "assets/logos/logo-primary-1.svg", "contentBase64": content, "sha": "stale"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, conflicts+2, testutil.ToFloat64(metrics.StoreWrites.WithLabelValues(assetKind, metrics.OutcomeConflict)))

	w = postJSON(g, "/product-images", gin.H{"path": "assets/logos/logo-primary-1.svg", "contentBase64": content, "sha": up.NewSHA})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssetRoutes_RejectsBadRequests(t *testing.T) {
	g := newAssetRouter(storage.NewMemoryAssetStore(""))

	w := postJSON(g, "/product-images", gin.H{"path": "a.png", "contentBase64": "%%%"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(g, "/product-images", gin.H{"path": "../a.png", "contentBase64": "AA=="})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(g, "/product-images", gin.H{"contentBase64": "AA=="})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssetRoutes_GuardOnUploadOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no"}) }
	RegisterAssetRoutes(g, storage.NewMemoryAssetStore(""), deny)

	assert.Equal(t, http.StatusOK, get(g, "/directory/list?path=assets").Code)
	assert.Equal(t, http.StatusUnauthorized, postJSON(g, "/product-images", gin.H{"path": "a.png", "contentBase64": "AA=="}).Code)
}

// The logo flow over real routes: the uploader picks the next free name,
// stores the file and registers it in the pages document.
func TestUploadLogoEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	store := storage.NewMemoryAssetStore("https://cdn.example")
	handler.RegisterDocumentRoutes(g, service.NewMemoryService())
	RegisterAssetRoutes(g, store)
	srv := httptest.NewServer(g)
	defer srv.Close()
	ctx := context.Background()

	_, err := store.Put(ctx, "assets/logos/logo-primary-3.png", []byte{1}, "")
	require.NoError(t, err)

	api := client.New(srv.URL)
	coord := docsync.NewCoordinator(api)
	require.NoError(t, coord.Load(ctx))

	res, err := assets.NewUploader(api, coord).UploadLogo(ctx, assets.LogoUpload{
		Type:        "primary",
		Ext:         "svg",
		Content:     []byte("<svg/>"),
		Description: "Main logo",
	})
	require.NoError(t, err)
	assert.Equal(t, "primary-4", res.Key)
	assert.Equal(t, "assets/logos/logo-primary-4.svg", res.Path)

	doc, err := coord.Document(site.KindPages)
	require.NoError(t, err)
	pages, err := site.DecodePages(doc.Origin)
	require.NoError(t, err)
	require.Contains(t, pages.Logos, "primary-4")
	assert.Equal(t, "assets/logos/logo-primary-4.svg", pages.Logos["primary-4"].Path)
}

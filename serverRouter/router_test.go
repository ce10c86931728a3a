package serverRouter

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VirtualTourServer/config"
	"VirtualTourServer/filemanager"
	vtmiddleware "VirtualTourServer/middleware"
	"VirtualTourServer/views"
)

// setupServer 组装一个完整的测试服务：独立临时目录 + 真实路由表
func setupServer(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	vtmiddleware.InitZapLogger()

	cfg := &config.Config{
		Port:               0,
		ToursDir:           t.TempDir(),
		CoversDir:          t.TempDir(),
		MaxCoverSize:       1024 * 1024,
		MaxTourSize:        10 * 1024 * 1024,
		AllowedCoverExts:   []string{"jpg", "jpeg", "png", "gif", "webp"},
		AllowedTourExts:    []string{"zip"},
		CORSOrigins:        []string{"*"},
		SecretKey:          "test-secret",
		TokenExpireMinutes: 60,
		AuthUsername:       "Volemby",
		AuthPassword:       "Volemby",
	}

	r := gin.New()
	RouterInit(r, cfg, views.NewHandler(cfg, filemanager.New(cfg)))
	return r, cfg
}

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type formFile struct {
	field    string
	fileName string
	data     []byte
}

// multipartRequest 构造multipart表单请求
func multipartRequest(t *testing.T, method, url string, fields map[string]string, files []formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, val := range fields {
		require.NoError(t, mw.WriteField(key, val))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.fileName)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// uploadTour 走POST /api/v1/tours上传一条漫游
func uploadTour(t *testing.T, r *gin.Engine, tourID string, zipBytes []byte, coverName string) *httptest.ResponseRecorder {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/api/v1/tours",
		map[string]string{"tourId": tourID},
		[]formFile{
			{field: "tourZip", fileName: tourID + ".zip", data: zipBytes},
			{field: "coverPhoto", fileName: coverName, data: []byte("fake-image-bytes")},
		})
	return serve(r, req)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) views.TourResponse {
	t.Helper()
	var resp views.TourResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRootProbe(t *testing.T) {
	r, _ := setupServer(t)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Virtual Tours API is running")
}

func TestUploadAndList(t *testing.T) {
	r, _ := setupServer(t)

	zipBytes := makeZip(t, map[string]string{"index.html": "<html></html>"})
	w := uploadTour(t, r, "demo1", zipBytes, "cover.jpg")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "demo1", resp.Data.ID)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var tours []filemanager.Tour
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tours))
	require.Len(t, tours, 1)
	assert.Equal(t, "demo1", tours[0].ID)
	assert.Equal(t, "Demo1", tours[0].Name)
	assert.Equal(t, "/tours/demo1/index.html", tours[0].URL)
	assert.Equal(t, "/covers/demo1.jpg", tours[0].CoverURL)
	assert.Equal(t, "index.html", tours[0].MainFile)
}

func TestUploadRequiresAllFields(t *testing.T) {
	r, _ := setupServer(t)

	// 缺tourZip
	req := multipartRequest(t, http.MethodPost, "/api/v1/tours",
		map[string]string{"tourId": "demo"},
		[]formFile{{field: "coverPhoto", fileName: "c.jpg", data: []byte("img")}})
	w := serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 全非法字符的ID
	zipBytes := makeZip(t, map[string]string{"index.html": "x"})
	w = uploadTour(t, r, "!!!", zipBytes, "c.jpg")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadConflict(t *testing.T) {
	r, _ := setupServer(t)
	zipBytes := makeZip(t, map[string]string{"index.html": "x"})

	w := uploadTour(t, r, "demo", zipBytes, "c.jpg")
	require.Equal(t, http.StatusOK, w.Code)

	w = uploadTour(t, r, "demo", zipBytes, "c.jpg")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "already exists")
}

func TestUploadWithoutHTMLLeavesNoResidue(t *testing.T) {
	r, cfg := setupServer(t)

	zipBytes := makeZip(t, map[string]string{"readme.txt": "no html"})
	w := uploadTour(t, r, "demo2", zipBytes, "c.jpg")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 漫游目录和临时产物都不允许残留
	assert.NoDirExists(t, filepath.Join(cfg.ToursDir, "demo2"))
	entries, err := os.ReadDir(cfg.ToursDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateTourRenameMovesCover(t *testing.T) {
	r, cfg := setupServer(t)
	zipBytes := makeZip(t, map[string]string{"index.html": "x"})

	w := uploadTour(t, r, "demo3", zipBytes, "c.jpg")
	require.Equal(t, http.StatusOK, w.Code)

	req := multipartRequest(t, http.MethodPut, "/api/v1/tours/demo3",
		map[string]string{"newTourId": "demo4"}, nil)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "demo4", resp.Data.ID)
	assert.Equal(t, "/covers/demo4.jpg", resp.Data.CoverURL)

	assert.NoDirExists(t, filepath.Join(cfg.ToursDir, "demo3"))
	assert.DirExists(t, filepath.Join(cfg.ToursDir, "demo4"))
}

func TestUpdateTourReplacesArchive(t *testing.T) {
	r, cfg := setupServer(t)

	w := uploadTour(t, r, "demo", makeZip(t, map[string]string{"index.html": "v1", "stale.html": "x"}), "c.jpg")
	require.Equal(t, http.StatusOK, w.Code)

	// PUT换包允许覆盖，旧文件不残留
	req := multipartRequest(t, http.MethodPut, "/api/v1/tours/demo", nil,
		[]formFile{{field: "tourZip", fileName: "v2.zip", data: makeZip(t, map[string]string{"index.html": "v2"})}})
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoFileExists(t, filepath.Join(cfg.ToursDir, "demo", "stale.html"))
}

func TestUpdateMissingTour(t *testing.T) {
	r, _ := setupServer(t)
	req := multipartRequest(t, http.MethodPut, "/api/v1/tours/ghost",
		map[string]string{"newTourId": "other"}, nil)
	w := serve(r, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIsIdempotent(t *testing.T) {
	r, _ := setupServer(t)

	w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/v1/tours/ghost", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestCoverOnlyUpdate(t *testing.T) {
	r, cfg := setupServer(t)
	zipBytes := makeZip(t, map[string]string{"index.html": "x"})
	w := uploadTour(t, r, "demo", zipBytes, "c.jpg")
	require.Equal(t, http.StatusOK, w.Code)

	req := multipartRequest(t, http.MethodPost, "/api/v1/tours/demo/cover", nil,
		[]formFile{{field: "coverPhoto", fileName: "new.png", data: []byte("png")}})
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)

	// 旧封面被替换，同ID只剩一张
	assert.NoFileExists(t, filepath.Join(cfg.CoversDir, "demo.jpg"))
	assert.FileExists(t, filepath.Join(cfg.CoversDir, "demo.png"))
}

func TestTourQRCode(t *testing.T) {
	r, _ := setupServer(t)
	zipBytes := makeZip(t, map[string]string{"index.html": "x"})
	w := uploadTour(t, r, "demo", zipBytes, "c.jpg")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/tours/demo/qrcode", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/tours/ghost/qrcode", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStaticMounts(t *testing.T) {
	r, _ := setupServer(t)
	zipBytes := makeZip(t, map[string]string{"index.html": "<html>hello</html>"})
	w := uploadTour(t, r, "demo", zipBytes, "c.jpg")
	require.Equal(t, http.StatusOK, w.Code)

	// 解压后的资源和封面按路径直出
	w = serve(r, httptest.NewRequest(http.MethodGet, "/tours/demo/index.html", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/covers/demo.jpg", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func login(t *testing.T, r *gin.Engine, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return serve(r, req)
}

func accessTokenCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == vtmiddleware.AccessTokenCookie {
			return cookie
		}
	}
	t.Fatal("access_token cookie not set")
	return nil
}

func TestAuthFlow(t *testing.T) {
	r, _ := setupServer(t)

	// 错误密码
	w := login(t, r, "Volemby", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 正确凭证种下HttpOnly cookie
	w = login(t, r, "Volemby", "Volemby")
	require.Equal(t, http.StatusOK, w.Code)
	cookie := accessTokenCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	// 带cookie访问/me返回用户名
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Volemby")

	// 登出只是清cookie
	w = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 登出后不带cookie的新请求必须401
	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 无状态令牌：登出前签发的令牌在exp前依然有效
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeRejectsBadTokens(t *testing.T) {
	r, _ := setupServer(t)

	// 伪造令牌
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: vtmiddleware.AccessTokenCookie, Value: "forged.token.value"})
	w := serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"venuedir/services/media"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mediaRouter(n *media.Normalizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/media/signed-url", NewMediaHandler(n).SignedURLHandler)
	return r
}

func getSigned(r *gin.Engine, ref string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/media/signed-url?ref="+url.QueryEscape(ref), nil))
	return w
}

func TestSignedURLHandler(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	r := mediaRouter(media.NewNormalizer(nil, media.WithSignedURLs("svc@molho.iam.gserviceaccount.com", keyPEM, time.Hour)))

	w := getSigned(r, "gs://molho.appspot.com/merchants/abc/header.jpg")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	u, err := url.Parse(body.URL)
	require.NoError(t, err)
	assert.Equal(t, "/molho.appspot.com/merchants/abc/header.jpg", u.Path)
	assert.NotEmpty(t, u.Query().Get("Signature"))

	assert.Equal(t, http.StatusBadRequest, getSigned(r, "https://example.com/a.jpg").Code)
}

func TestSignedURLHandler_SigningDisabled(t *testing.T) {
	r := mediaRouter(media.NewNormalizer(nil))
	assert.Equal(t, http.StatusNotImplemented, getSigned(r, "gs://molho.appspot.com/a.jpg").Code)
}

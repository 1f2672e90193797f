package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws/reports", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginAllowedHonorsConfiguredList(t *testing.T) {
	viper.Set("server.cors_origins", []string{"https://app.crowdcare.example"})
	t.Cleanup(func() { viper.Set("server.cors_origins", []string{}) })

	assert.True(t, originAllowed(requestWithOrigin("https://app.crowdcare.example")))
	assert.False(t, originAllowed(requestWithOrigin("https://evil.example")))

	// Non-browser clients send no Origin header at all.
	assert.True(t, originAllowed(requestWithOrigin("")))
}

func TestOriginAllowedEmptyListAdmitsAll(t *testing.T) {
	viper.Set("server.cors_origins", []string{})
	assert.True(t, originAllowed(requestWithOrigin("https://anywhere.example")))
}

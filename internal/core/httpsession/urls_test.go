package httpsession

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpmc/go-warpcore/config"
)

func testServices() map[string]config.ServiceConfig {
	tmdb := config.ServiceConfig{
		BaseURL:     "https://api.themoviedb.org/3",
		APIKey:      "k123",
		QueryParams: map[string]string{"language": "en-US"},
	}.WithEndpoint("movie_details", "movie/{}").
		WithEndpoint("season", "tv/{0}/season/{1}")

	trakt := config.ServiceConfig{BaseURL: "https://api.trakt.tv/"}.
		WithHeader("trakt-api-key", "abc").
		WithHeader("trakt-api-version", "2").
		WithRespectRetryAfter(false)

	return map[string]config.ServiceConfig{"tmdb": tmdb, "trakt": trakt}
}

func newTestURLManager(t *testing.T) *URLManager {
	t.Helper()
	m, err := NewURLManager(testServices())
	require.NoError(t, err)
	return m
}

func TestURLManager_Build(t *testing.T) {
	m := newTestURLManager(t)

	u, hdr, err := m.Build("tmdb", "/movie/550", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.themoviedb.org/3/movie/550?api_key=k123&language=en-US", u)
	assert.Empty(t, hdr)

	// 调用方参数优先
	u, _, err = m.Build("tmdb", "movie/550", url.Values{"api_key": {"mine"}, "language": {"de-DE"}, "page": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.themoviedb.org/3/movie/550?api_key=mine&language=de-DE&page=2", u)

	u, hdr, err = m.Build("trakt", "shows/trending", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.trakt.tv/shows/trending", u)
	assert.Equal(t, "abc", hdr.Get("trakt-api-key"))
	assert.Equal(t, "2", hdr.Get("Trakt-Api-Version"))

	u, _, err = m.Build("trakt", "https://other.example/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example/x", u, "绝对 URL 不拼接")
}

func TestURLManager_BuildFromEndpoint(t *testing.T) {
	m := newTestURLManager(t)

	u, _, err := m.BuildFromEndpoint("tmdb", "movie_details", []any{550}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.themoviedb.org/3/movie/550?api_key=k123&language=en-US", u)

	u, _, err = m.BuildFromEndpoint("tmdb", "season", []any{1399, 2}, url.Values{"language": {"fr"}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.themoviedb.org/3/tv/1399/season/2?api_key=k123&language=fr", u)

	_, _, err = m.BuildFromEndpoint("tmdb", "season", []any{1399}, nil)
	assert.ErrorIs(t, err, ErrEndpointArgs)

	_, _, err = m.BuildFromEndpoint("tmdb", "nope", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownEndpoint)

	_, _, err = m.BuildFromEndpoint("imdb", "x", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestFormatTemplate(t *testing.T) {
	got, err := formatTemplate("search/{kind}/{}", []any{"a b"})
	require.NoError(t, err)
	assert.Equal(t, "search/{kind}/a%20b", got)

	got, err = formatTemplate("x/{1}/{0}", []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "x/b/a", got)

	got, err = formatTemplate("open/{", nil)
	require.NoError(t, err)
	assert.Equal(t, "open/{", got)
}

func TestURLManager_Lookups(t *testing.T) {
	m := newTestURLManager(t)

	assert.Equal(t, []string{"tmdb", "trakt"}, m.Services())

	tmpl, err := m.Endpoint("tmdb", "movie_details")
	require.NoError(t, err)
	assert.Equal(t, "movie/{}", tmpl)

	assert.True(t, m.ShouldRespectRetryAfter("tmdb"), "未设置时默认遵守")
	assert.False(t, m.ShouldRespectRetryAfter("trakt"))
	assert.True(t, m.ShouldRespectRetryAfter("unknown"))

	_, err = m.RateLimits("unknown")
	assert.ErrorIs(t, err, ErrUnknownService)

	hdr, err := m.ServiceHeaders("trakt")
	require.NoError(t, err)
	hdr.Set("trakt-api-key", "mutated")
	again, _ := m.ServiceHeaders("trakt")
	assert.Equal(t, "abc", again.Get("trakt-api-key"), "返回副本")

	assert.True(t, m.IsAuthPath("trakt", "/oauth/token"))
	assert.False(t, m.IsAuthPath("trakt", "sync/history"))
	assert.True(t, m.IsAuthPath("unknown", "oauth/device/code"))
}

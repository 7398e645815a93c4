package services_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/services"
	"github.com/desertthunder/vidx/internal/shared"
	tu "github.com/desertthunder/vidx/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// route records the request line and answers with body.
func route(t *testing.T, seen *string, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		*seen = r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			*seen += "?" + r.URL.RawQuery
		}
		w.Write([]byte(body))
	}
}

func TestAccountAPI(t *testing.T) {
	ctx := context.Background()

	tt := []struct {
		name string
		call func(*services.AccountAPI) (*services.Envelope, error)
		want string
	}{
		{"Login", func(a *services.AccountAPI) (*services.Envelope, error) {
			return a.Login(ctx, models.Credentials{Username: "ann", Password: "x"})
		}, "POST /api/account/login"},
		{"Register", func(a *services.AccountAPI) (*services.Envelope, error) {
			return a.Register(ctx, models.Registration{Username: "ann", Password: "x"})
		}, "POST /api/account/register"},
		{"Logout", func(a *services.AccountAPI) (*services.Envelope, error) { return a.Logout(ctx) }, "POST /api/account/logout"},
		{"RefreshToken", func(a *services.AccountAPI) (*services.Envelope, error) { return a.RefreshToken(ctx) }, "POST /api/account/refresh-token"},
		{"CurrentUser", func(a *services.AccountAPI) (*services.Envelope, error) { return a.CurrentUser(ctx) }, "GET /api/user/current"},
		{"UpdateUser", func(a *services.AccountAPI) (*services.Envelope, error) {
			nickname := "Annie"
			return a.UpdateUser(ctx, 7, models.UserPatch{Nickname: &nickname})
		}, "PUT /api/user/7"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			c, _ := newTestClient(t, route(t, &seen, `{"success":true}`), services.ClientOptions{})

			env, err := tc.call(services.NewAccountAPI(c))
			require.NoError(t, err)
			assert.True(t, env.Success)
			assert.Equal(t, tc.want, seen)
		})
	}

	t.Run("Refresh and current user are silent", func(t *testing.T) {
		var seen string
		c, notifier := newTestClient(t, route(t, &seen, `{"success":false,"message":"nope"}`), services.ClientOptions{})
		api := services.NewAccountAPI(c)

		_, err := api.RefreshToken(ctx)
		require.Error(t, err)
		_, err = api.CurrentUser(ctx)
		require.Error(t, err)
		assert.Empty(t, notifier.Messages())

		_, err = api.Login(ctx, models.Credentials{Username: "ann", Password: "x"})
		require.Error(t, err)
		assert.Len(t, notifier.Messages(), 1)
	})
}

func TestUserAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("GetUser from user field", func(t *testing.T) {
		var seen string
		c, _ := newTestClient(t, route(t, &seen, `{"success":true,"user":{"id":3,"username":"bob"}}`), services.ClientOptions{})

		user, err := services.NewUserAPI(c).GetUser(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "GET /api/user/3", seen)
		assert.Equal(t, "bob", user.Username)
	})

	t.Run("GetUser from data field", func(t *testing.T) {
		var seen string
		c, _ := newTestClient(t, route(t, &seen, `{"success":true,"data":{"id":3,"username":"bob"}}`), services.ClientOptions{})

		user, err := services.NewUserAPI(c).GetUser(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
	})

	t.Run("ListUsers", func(t *testing.T) {
		var seen string
		c, _ := newTestClient(t, route(t, &seen, `{"success":true,"data":[{"id":1,"username":"a"},{"id":2,"username":"b"}]}`), services.ClientOptions{})

		users, err := services.NewUserAPI(c).ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, "GET /api/user/list", seen)
		assert.Len(t, users, 2)
	})
}

func TestVideoAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("Listings use default pagination", func(t *testing.T) {
		tt := []struct {
			name string
			call func(*services.VideoAPI) (*models.Page[models.Video], error)
			want string
		}{
			{"Latest", func(a *services.VideoAPI) (*models.Page[models.Video], error) { return a.Latest(ctx, 0, 0) }, "GET /api/video/latest?page=1&size=8"},
			{"Popular", func(a *services.VideoAPI) (*models.Page[models.Video], error) { return a.Popular(ctx, 2, 4) }, "GET /api/video/popular?page=2&size=4"},
			{"MyVideos", func(a *services.VideoAPI) (*models.Page[models.Video], error) { return a.MyVideos(ctx, 0, 0) }, "GET /api/user/video/list?page=1&size=8"},
			{"ByCategory", func(a *services.VideoAPI) (*models.Page[models.Video], error) {
				return a.ByCategory(ctx, "music", 0, 0)
			}, "GET /api/video/category?category=music&page=1&size=8"},
			{"Search", func(a *services.VideoAPI) (*models.Page[models.Video], error) {
				return a.Search(ctx, "cats", 1, 8)
			}, "GET /api/video/search?keyword=cats&page=1&size=8"},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				var seen string
				c, _ := newTestClient(t, route(t, &seen, `{"success":true,"data":[{"id":1,"title":"one"}]}`), services.ClientOptions{})

				page, err := tc.call(services.NewVideoAPI(c))
				require.NoError(t, err)
				assert.Equal(t, tc.want, seen)
				require.Len(t, page.Records, 1)
				assert.Equal(t, "one", page.Records[0].Title)
				assert.Equal(t, int64(1), page.Total)
			})
		}
	})

	t.Run("Page object", func(t *testing.T) {
		var seen string
		c, _ := newTestClient(t, route(t, &seen, `{"success":true,"data":{"records":[{"id":1},{"id":2}],"total":40}}`), services.ClientOptions{})

		page, err := services.NewVideoAPI(c).Latest(ctx, 3, 2)
		require.NoError(t, err)
		assert.Len(t, page.Records, 2)
		assert.Equal(t, int64(40), page.Total)
		assert.Equal(t, 3, page.Page)
		assert.Equal(t, 2, page.Size)
	})

	t.Run("Upload returns url", func(t *testing.T) {
		for _, body := range []string{
			`{"success":true,"data":"/files/a.mp4"}`,
			`{"success":true,"data":{"url":"/files/a.mp4"}}`,
		} {
			var seen string
			c, _ := newTestClient(t, route(t, &seen, body), services.ClientOptions{})

			url, err := services.NewVideoAPI(c).UploadVideo(ctx, "a.mp4", strings.NewReader("x"))
			require.NoError(t, err)
			assert.Equal(t, "POST /api/user/video/upload", seen)
			assert.Equal(t, "/files/a.mp4", url)
		}
	})

	t.Run("Upload without url", func(t *testing.T) {
		var seen string
		c, _ := newTestClient(t, route(t, &seen, `{"success":true}`), services.ClientOptions{})

		_, err := services.NewVideoAPI(c).UploadCover(ctx, "a.png", strings.NewReader("x"))
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.Equal(t, "POST /api/user/video/cover", seen)
	})

	t.Run("SaveVideo", func(t *testing.T) {
		var body models.VideoDraft
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(data, &body))
			w.Write([]byte(`{"success":true,"data":{"id":42,"title":"clip"}}`))
		}, services.ClientOptions{})

		video, err := services.NewVideoAPI(c).SaveVideo(ctx, models.VideoDraft{Title: "clip", VideoURL: "/files/a.mp4"})
		require.NoError(t, err)
		assert.Equal(t, int64(42), video.ID)
		assert.Equal(t, "/files/a.mp4", body.VideoURL)
	})

	t.Run("SaveVideo validates without a request", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, nil)
		c := services.NewClient(services.ClientOptions{HTTPClient: &http.Client{Transport: rt}})

		_, err := services.NewVideoAPI(c).SaveVideo(ctx, models.VideoDraft{VideoURL: "/files/a.mp4"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Zero(t, rt.Calls())
	})

	t.Run("GetVideo", func(t *testing.T) {
		var seen string
		c, _ := newTestClient(t, route(t, &seen, `{"success":true,"data":{"id":5,"title":"five","views":10}}`), services.ClientOptions{})

		video, err := services.NewVideoAPI(c).GetVideo(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "GET /api/video/5", seen)
		assert.Equal(t, int64(10), video.Views)
	})

	t.Run("GetVideo not found", func(t *testing.T) {
		var seen string
		c, _ := newTestClient(t, route(t, &seen, `{"success":true,"data":null}`), services.ClientOptions{})

		_, err := services.NewVideoAPI(c).GetVideo(ctx, 5)
		assert.ErrorIs(t, err, shared.ErrVideoNotFound)
	})

	t.Run("Simple actions", func(t *testing.T) {
		tt := []struct {
			name string
			call func(*services.VideoAPI) error
			want string
		}{
			{"DeleteVideo", func(a *services.VideoAPI) error { return a.DeleteVideo(ctx, 9) }, "DELETE /api/user/video/9"},
			{"IncrementViews", func(a *services.VideoAPI) error { return a.IncrementViews(ctx, 9) }, "POST /api/video/9/view"},
			{"LikeVideo", func(a *services.VideoAPI) error { return a.LikeVideo(ctx, 9) }, "POST /api/video/9/like"},
			{"SendDanmu", func(a *services.VideoAPI) error {
				return a.SendDanmu(ctx, models.Danmu{VideoID: 9, Content: "hi", Time: 1.5})
			}, "POST /api/video/saveDanmu"},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				var seen string
				c, _ := newTestClient(t, route(t, &seen, `{"success":true}`), services.ClientOptions{})

				require.NoError(t, tc.call(services.NewVideoAPI(c)))
				assert.Equal(t, tc.want, seen)
			})
		}
	})

	t.Run("GetDanmu", func(t *testing.T) {
		var seen string
		c, _ := newTestClient(t, route(t, &seen, `{"success":true,"data":[{"videoId":9,"content":"hi","time":1.5}]}`), services.ClientOptions{})

		danmu, err := services.NewVideoAPI(c).GetDanmu(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, "GET /api/video/getDanmu/9", seen)
		require.Len(t, danmu, 1)
		assert.Equal(t, "hi", danmu[0].Content)
	})
}

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"soulspark/internal/config"
	"soulspark/internal/database"
	"soulspark/internal/generative"
	"soulspark/internal/media"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

type testServerOptions struct {
	withRedis  bool
	generator  generative.ContentGenerator
	seedDemo   bool
	dailyLimit int
	threshold  int
	flags      string
}

type testServer struct {
	*Server
	app   *fiber.App
	redis *miniredis.Miniredis
}

func newTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	if opts.dailyLimit == 0 {
		opts.dailyLimit = 10
	}
	if opts.threshold == 0 {
		opts.threshold = 15
	}
	cfg := &config.Config{
		Port:             "0",
		Env:              "test",
		JWTSecret:        testSecret,
		TokenTTLMinutes:  60,
		AllowedOrigins:   "http://localhost:5173",
		FeatureFlags:     opts.flags,
		DBDriver:         "sqlite",
		DBPath:           ":memory:",
		ImageMaxUploadMB: 1,
		DailyPostLimit:   opts.dailyLimit,
		ReportThreshold:  opts.threshold,
		SeedDemoPosts:    opts.seedDemo,
	}

	db, err := database.Connect(cfg, nil)
	require.NoError(t, err)

	ts := &testServer{}
	var rdb *redis.Client
	if opts.withRedis {
		ts.redis = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: ts.redis.Addr()})
	}

	provider := generative.NewWithGenerator(opts.generator, generative.Options{})
	srv, err := NewServerWithDeps(cfg, db, rdb, provider, media.DataURLStore{})
	require.NoError(t, err)

	ts.Server = srv
	ts.app = srv.NewApp()
	return ts
}

type request struct {
	method  string
	path    string
	body    any
	token   string
	headers map[string]string
}

func (ts *testServer) do(t *testing.T, r request) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

// register creates an account and returns its token.
func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()
	resp, body := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/auth/register",
		body: map[string]string{
			"username": username,
			"email":    username + "@example.com",
			"password": "sparkle42",
		},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (ts *testServer) createPost(t *testing.T, token, content string) string {
	t.Helper()
	resp, body := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/posts",
		token:  token,
		body:   map[string]string{"content": content, "mood": "Joyful", "content_type": "Quote"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	post := body["post"].(map[string]any)
	return post["id"].(string)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})

	resp, body := ts.do(t, request{method: http.MethodGet, path: "/health/live"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = ts.do(t, request{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "disabled", checks["redis"])
}

func TestReadinessCheck_RedisDown(t *testing.T) {
	ts := newTestServer(t, testServerOptions{withRedis: true})

	resp, body := ts.do(t, request{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["checks"].(map[string]any)["redis"])

	ts.redis.Close()

	resp, body = ts.do(t, request{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	srv := &Server{config: &config.Config{AllowedOrigins: "http://localhost:5173"}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
}

func TestGetFeatureFlags(t *testing.T) {
	ts := newTestServer(t, testServerOptions{flags: "ai_backgrounds=off"})

	resp, body := ts.do(t, request{method: http.MethodGet, path: "/api/flags"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	flags := body["flags"].(map[string]any)
	assert.Equal(t, false, flags["ai_backgrounds"])
	assert.Equal(t, true, flags["companion_chat"])
	assert.Equal(t, false, flags["likes_require_auth"])
}

func TestBackgroundTemplates(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})

	resp, body := ts.do(t, request{method: http.MethodGet, path: "/api/backgrounds"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["templates"], 14)
}

func TestGenerateText(t *testing.T) {
	ts := newTestServer(t, testServerOptions{generator: &stubGenerator{resp: textResponse("Joy is contagious.")}})

	resp, body := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/generate/text",
		body:   map[string]string{"mood": "Joyful", "content_type": "Quote"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Joy is contagious.", body["text"])

	resp, body = ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/generate/text",
		body:   map[string]string{"mood": "Bored", "content_type": "Quote"},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestGenerateText_ProviderUnavailable(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})

	resp, body := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/generate/text",
		body:   map[string]string{"mood": "Lonely", "content_type": "Haiku"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, generative.TextFallback, body["text"])
}

func TestGenerateBackground(t *testing.T) {
	gen := &stubGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{
				InlineData: &genai.Blob{Data: []byte("png-bytes"), MIMEType: "image/png"},
			}}},
		}},
	}}
	ts := newTestServer(t, testServerOptions{generator: gen})

	resp, body := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/generate/background",
		body:   map[string]string{"content": "sunrise over calm water", "mood": "Grateful"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	bg := body["background"].(map[string]any)
	assert.Contains(t, bg["image"], "data:image/png;base64,")

	resp, body = ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/generate/background",
		body:   map[string]string{"content": "   ", "mood": "Grateful"},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please write something first to generate a background.", body["error"])
}

func TestGenerateBackground_ProviderFailure(t *testing.T) {
	ts := newTestServer(t, testServerOptions{generator: &stubGenerator{resp: textResponse("no image here")}})

	resp, body := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/generate/background",
		body:   map[string]string{"content": "rain", "mood": "Heartbroken"},
	})
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "PROVIDER_FAILURE", body["code"])
	assert.Equal(t, generative.ImageFailureMessage, body["error"])
}

func TestGenerateBackground_FlagOff(t *testing.T) {
	ts := newTestServer(t, testServerOptions{flags: "ai_backgrounds=off"})

	resp, body := ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/generate/background",
		body:   map[string]string{"content": "rain", "mood": "Heartbroken"},
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])
}

func TestChat(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("I'm here with you.")}
	ts := newTestServer(t, testServerOptions{generator: gen})

	resp, body := ts.do(t, request{method: http.MethodGet, path: "/api/chat/greeting"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	greeting := body["message"].(map[string]any)
	assert.Equal(t, "model", greeting["role"])
	assert.Equal(t, generative.ChatGreeting, greeting["text"])

	resp, body = ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/chat",
		body: map[string]any{
			"history": []map[string]string{{"role": "model", "text": generative.ChatGreeting}},
			"message": "I feel lonely tonight",
		},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "I'm here with you.", body["message"].(map[string]any)["text"])
	require.NotNil(t, gen.config)
	assert.NotNil(t, gen.config.SystemInstruction)

	resp, _ = ts.do(t, request{
		method: http.MethodPost,
		path:   "/api/chat",
		body:   map[string]any{"message": "  "},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStreamEvents_RequiresRedis(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})

	resp, body := ts.do(t, request{method: http.MethodGet, path: "/api/events"})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
}

func TestStreamEvents_RequiresUpgrade(t *testing.T) {
	ts := newTestServer(t, testServerOptions{withRedis: true})

	resp, _ := ts.do(t, request{method: http.MethodGet, path: "/api/events"})
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

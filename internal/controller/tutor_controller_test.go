package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tara-tutor-be/internal/config"
	"tara-tutor-be/internal/constant"
	"tara-tutor-be/internal/dto"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/internal/pkg/serverutils"
	"tara-tutor-be/internal/repository/memory"
	"tara-tutor-be/internal/service"
	internalWS "tara-tutor-be/internal/websocket"
	"tara-tutor-be/pkg/feedback"
	"tara-tutor-be/pkg/index"
	memindex "tara-tutor-be/pkg/index/memory"
	"tara-tutor-be/pkg/ingest"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/rag/response"
	"tara-tutor-be/pkg/rag/state"
	"tara-tutor-be/pkg/tutor"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedLLM struct {
	reply string
}

func (c cannedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return c.reply, nil
}

func (c cannedLLM) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.StreamReader, error) {
	return &splitReader{parts: strings.SplitAfter(c.reply, " ")}, nil
}

type splitReader struct {
	parts []string
}

func (r *splitReader) Recv() (string, error) {
	if len(r.parts) == 0 {
		return "", io.EOF
	}
	p := r.parts[0]
	r.parts = r.parts[1:]
	return p, nil
}

func (r *splitReader) Close() error { return nil }

type unitEmbedder struct{}

func (unitEmbedder) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	return []float32{0, 1}, nil
}

func newTestApp(t *testing.T, reply string) *fiber.App {
	t.Helper()
	log := logger.NewNopLogger()

	engine := tutor.NewEngine(tutor.Deps{
		Sessions:  memory.NewSessionRepository(0, string(state.StageInitial)),
		Parser:    ingest.NewParser(constant.ChunkSize, constant.ChunkOverlap, nil, log),
		Indexer:   memindex.NewBuilder(unitEmbedder{}, index.DefaultEmbedConcurrency),
		Generator: response.NewGenerator(cannedLLM{reply: reply}, time.Second, log),
		Logger:    log,
	})
	hub := internalWS.NewHub(nil, log)
	tutorService := service.NewTutorService(engine, nil, hub, log)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	feedbackService := service.NewFeedbackService(pubSub, feedback.NoopLogger{}, config.FeedbackConfig{}, tutorService, nil, log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewTutorController(tutorService, feedbackService, hub, 1024, log).RegisterRoutes(app.Group("/api"))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestTutorController_SendChat(t *testing.T) {
	app := newTestApp(t, "What have you tried? [OPTIONS] A) nothing B) a loop [/OPTIONS]")

	code, body := doJSON(t, app, http.MethodPost, "/api/tutor/v1/chat", dto.SendChatRequest{SessionId: "s1", Chat: "I'm stuck"})
	require.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "What have you tried?", data["reply"])
	assert.Len(t, data["options"], 2)

	code, body = doJSON(t, app, http.MethodPost, "/api/tutor/v1/chat", dto.SendChatRequest{SessionId: "s1", Option: "B"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "B) a loop", body["data"].(map[string]interface{})["sent"])

	code, body = doJSON(t, app, http.MethodGet, "/api/tutor/v1/sessions/s1/history", nil)
	require.Equal(t, http.StatusOK, code)
	turns := body["data"].(map[string]interface{})["turns"].([]interface{})
	assert.Len(t, turns, 4)
}

func TestTutorController_SendChatValidation(t *testing.T) {
	app := newTestApp(t, "ok")

	code, body := doJSON(t, app, http.MethodPost, "/api/tutor/v1/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])

	code, _ = doJSON(t, app, http.MethodPost, "/api/tutor/v1/chat", map[string]string{"option": "Z"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTutorController_StreamChat(t *testing.T) {
	app := newTestApp(t, "Start with the base case.")

	b, _ := json.Marshal(dto.SendChatRequest{SessionId: "s2", Chat: "explain recursion"})
	req := httptest.NewRequest(http.MethodPost, "/api/tutor/v1/chat/stream", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, "event: delta\ndata: {\"text\":\"Start \"}")
	assert.Contains(t, text, "event: done")
	assert.Equal(t, 1, strings.Count(text, "event: done"))

	_, body := doJSON(t, app, http.MethodGet, "/api/tutor/v1/sessions/s2/history", nil)
	assert.Len(t, body["data"].(map[string]interface{})["turns"], 2)
}

func upload(t *testing.T, app *fiber.App, sessionID, name string, content []byte) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("session_id", sessionID))
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tutor/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestTutorController_Documents(t *testing.T) {
	app := newTestApp(t, "ok")

	code, body := upload(t, app, "s3", "test_cases.py", []byte("def test_add():\n    assert add(1, 2) == 3\n"))
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "test_cases", data["material_type"])
	assert.Equal(t, "s3", data["session_id"])

	code, body = upload(t, app, "s3", "deck.pptx", []byte("x"))
	assert.Equal(t, http.StatusUnsupportedMediaType, code)
	assert.Equal(t, constant.UnsupportedFileMessage, body["message"])

	code, _ = upload(t, app, "s3", "big.txt", bytes.Repeat([]byte("a"), 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)

	code, body = doJSON(t, app, http.MethodDelete, "/api/tutor/v1/documents?session_id=s3", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["data"].(map[string]interface{})["detached"])
}

func TestTutorController_ResetAndFeedback(t *testing.T) {
	app := newTestApp(t, "ok")

	_, _ = doJSON(t, app, http.MethodPost, "/api/tutor/v1/chat", dto.SendChatRequest{SessionId: "s4", Chat: "hi tara"})

	code, _ := doJSON(t, app, http.MethodPost, "/api/tutor/v1/sessions/reset", dto.ResetSessionRequest{SessionId: "s4"})
	require.Equal(t, http.StatusOK, code)

	_, body := doJSON(t, app, http.MethodGet, "/api/tutor/v1/sessions/s4/history", nil)
	assert.Empty(t, body["data"].(map[string]interface{})["turns"])

	code, _ = doJSON(t, app, http.MethodPost, "/api/tutor/v1/feedback", dto.FeedbackRequest{SessionId: "s4", Rating: 4})
	assert.Equal(t, http.StatusAccepted, code)

	code, _ = doJSON(t, app, http.MethodPost, "/api/tutor/v1/feedback", dto.FeedbackRequest{Rating: 9})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTutorController_WsRequiresUpgrade(t *testing.T) {
	app := newTestApp(t, "ok")

	req := httptest.NewRequest(http.MethodGet, "/api/tutor/v1/ws?session_id=s5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestAdminController_Logs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := logger.NewIsolatedLogger(path)
	log.Info("Tutor", "Session reset", map[string]interface{}{"session_id": "s1"})
	log.Warn("Tutor", "Retrieval unavailable", map[string]interface{}{"session_id": "s2"})
	require.NoError(t, log.Sync())

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewAdminController(log, "secret").RegisterRoutes(app.Group("/api"))

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin", "exp": time.Now().Add(time.Hour).Unix()})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/logs?session_id=s2", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []dto.LogListResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Retrieval unavailable", body.Data[0].Message)
	assert.False(t, body.Data[0].CreatedAt.IsZero())

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/logs", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminController_DisabledWithoutSecret(t *testing.T) {
	app := fiber.New()
	NewAdminController(logger.NewNopLogger(), "").RegisterRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/v1/logs", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

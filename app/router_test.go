package app

import (
	"bitwise74/task-api/internal"
	"bitwise74/task-api/internal/model"
	"bitwise74/task-api/internal/service"
	"bitwise74/task-api/internal/store"
	"bitwise74/task-api/internal/testutil"
	"bitwise74/task-api/pkg/security"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []service.Message
}

func (r *recordingMailer) Send(m service.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingMailer) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []string{}
	for _, m := range r.sent {
		out = append(out, m.Subject)
	}
	return out
}

type testApp struct {
	t      *testing.T
	d      *internal.Deps
	mailer *recordingMailer
	engine *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	return newTestAppWith(t, Options{CORSOrigins: []string{"http://localhost:5173"}})
}

func newTestAppWith(t *testing.T, o Options) *testApp {
	t.Helper()

	gdb := testutil.NewDB(t)
	s := store.New(gdb, testutil.Hasher())

	issuer, err := security.NewTokenIssuer("test-secret")
	require.NoError(t, err)

	mailer := &recordingMailer{}

	d := &internal.Deps{
		DB:       gdb,
		Store:    s,
		Sessions: service.NewSessions(s, issuer),
		Mailer:   mailer,
		Avatars:  &service.DBAvatarStore{Store: s},
		AvatarPolicy: service.AvatarPolicy{
			MaxSize:              1_000_000,
			Dimension:            250,
			CorruptIsClientError: true,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &testApp{
		t:      t,
		d:      d,
		mailer: mailer,
		engine: NewEngine(ctx, d, o),
	}
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type authResponse struct {
	User  map[string]any `json:"user"`
	Token string         `json:"token"`
}

func (a *testApp) signup(name, email, password string) authResponse {
	a.t.Helper()

	w := a.do(http.MethodPost, "/users", "", gin.H{"name": name, "email": email, "password": password})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	return decode[authResponse](a.t, w)
}

func (a *testApp) createTask(token, desc string, completed bool) model.Task {
	a.t.Helper()

	w := a.do(http.MethodPost, "/tasks", token, gin.H{"description": desc, "completed": completed})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	return decode[model.Task](a.t, w)
}

func TestSignup(t *testing.T) {
	a := newTestApp(t)

	res := a.signup("Patrick", "x@y.com", "abc1234")

	assert.Equal(t, "Patrick", res.User["name"])
	assert.Equal(t, "x@y.com", res.User["email"])
	assert.NotEmpty(t, res.Token)
	for _, k := range []string{"password", "passwordHash", "PasswordHash", "tokens", "avatar"} {
		assert.NotContains(t, res.User, k)
	}

	var u model.User
	require.NoError(t, a.d.DB.Where("email = ?", "x@y.com").First(&u).Error)
	assert.NotEqual(t, "abc1234", u.PasswordHash)

	tokens, err := a.d.Store.TokensOf(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{res.Token}, tokens)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"Thanks for joining in!"}, a.mailer.subjects())
	}, time.Second, 10*time.Millisecond)
}

func TestSignupValidation(t *testing.T) {
	a := newTestApp(t)
	a.signup("Patrick", "x@y.com", "abc1234")

	tests := []struct {
		name string
		body gin.H
	}{
		{"bad email", gin.H{"name": "A", "email": "nope", "password": "abc1234"}},
		{"short password", gin.H{"name": "A", "email": "a@y.com", "password": "abc"}},
		{"short password once trimmed", gin.H{"name": "A", "email": "a@y.com", "password": "  abc12  "}},
		{"forbidden password", gin.H{"name": "A", "email": "a@y.com", "password": "myPassword1"}},
		{"missing name", gin.H{"email": "a@y.com", "password": "abc1234"}},
		{"negative age", gin.H{"name": "A", "email": "a@y.com", "password": "abc1234", "age": -1}},
		{"duplicate email", gin.H{"name": "A", "email": " X@Y.com", "password": "abc1234"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(http.MethodPost, "/users", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			body := decode[map[string]any](t, w)
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body, "token")
		})
	}
}

func TestPasswordTrimmed(t *testing.T) {
	a := newTestApp(t)
	token := a.signup("Patrick", "x@y.com", "  abc1234  ").Token

	login := func(password string) int {
		return a.do(http.MethodPost, "/users/login", "", gin.H{"email": "x@y.com", "password": password}).Code
	}

	assert.Equal(t, http.StatusOK, login("abc1234"))

	w := a.do(http.MethodPatch, "/users/me", token, gin.H{"password": "  newpass1 "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusOK, login("newpass1"))
	assert.Equal(t, http.StatusBadRequest, login("abc1234"))

	w = a.do(http.MethodPatch, "/users/me", token, gin.H{"password": " abc12 "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusOK, login("newpass1"))
}

func TestLogin(t *testing.T) {
	a := newTestApp(t)
	a.signup("Patrick", "x@y.com", "abc1234")

	login := func(password string) *httptest.ResponseRecorder {
		return a.do(http.MethodPost, "/users/login", "", gin.H{"email": "x@y.com", "password": password})
	}

	w1 := login("abc1234")
	require.Equal(t, http.StatusOK, w1.Code)
	w2 := login("abc1234")
	require.Equal(t, http.StatusOK, w2.Code)

	t1 := decode[authResponse](t, w1).Token
	t2 := decode[authResponse](t, w2).Token
	assert.NotEqual(t, t1, t2)

	for _, tok := range []string{t1, t2} {
		assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/users/me", tok, nil).Code)
	}

	wrong := login("wrongpass")
	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	wrongBody := decode[map[string]any](t, wrong)
	assert.NotContains(t, wrongBody, "token")

	unknown := a.do(http.MethodPost, "/users/login", "", gin.H{"email": "nobody@y.com", "password": "abc1234"})
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrongBody["error"], decode[map[string]any](t, unknown)["error"])
}

func TestUnauthenticated(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/users/me", "/tasks", "/validate"} {
		w := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Please authenticate", decode[map[string]any](t, w)["error"])
	}

	w := a.do(http.MethodGet, "/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	a := newTestApp(t)
	t1 := a.signup("Patrick", "x@y.com", "abc1234").Token

	w := a.do(http.MethodPost, "/users/login", "", gin.H{"email": "x@y.com", "password": "abc1234"})
	t2 := decode[authResponse](t, w).Token

	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/users/logout", t1, nil).Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/users/me", t1, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/users/me", t2, nil).Code)
}

func TestLogoutAll(t *testing.T) {
	a := newTestApp(t)
	t1 := a.signup("Patrick", "x@y.com", "abc1234").Token

	w := a.do(http.MethodPost, "/users/login", "", gin.H{"email": "x@y.com", "password": "abc1234"})
	t2 := decode[authResponse](t, w).Token

	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/users/logoutAll", t2, nil).Code)

	for _, tok := range []string{t1, t2} {
		assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/users/me", tok, nil).Code)
	}
}

func TestUpdateMe(t *testing.T) {
	a := newTestApp(t)
	token := a.signup("Patrick", "x@y.com", "abc1234").Token
	a.signup("Other", "taken@y.com", "abc1234")

	w := a.do(http.MethodPatch, "/users/me", token, gin.H{"name": "Pat", "tokens": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid updates!", decode[map[string]any](t, w)["error"])

	w = a.do(http.MethodPatch, "/users/me", token, gin.H{"age": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPatch, "/users/me", token, gin.H{"email": "taken@y.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPatch, "/users/me", token, gin.H{"name": " Pat ", "age": 31, "password": "newpass1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	user := decode[map[string]any](t, w)
	assert.Equal(t, "Pat", user["name"])
	assert.EqualValues(t, 31, user["age"])
	assert.NotContains(t, user, "password")

	w = a.do(http.MethodPost, "/users/login", "", gin.H{"email": "x@y.com", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, "/users/login", "", gin.H{"email": "x@y.com", "password": "abc1234"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskOwnership(t *testing.T) {
	a := newTestApp(t)
	alice := a.signup("Alice", "a@y.com", "abc1234").Token
	bob := a.signup("Bob", "b@y.com", "abc1234").Token

	task := a.createTask(alice, "Alice's task", false)

	tests := []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPatch, gin.H{"completed": true}},
		{http.MethodDelete, nil},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := a.do(tt.method, "/tasks/"+task.ID, bob, tt.body)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}

	missing := a.do(http.MethodGet, "/tasks/doesnotexist0000", bob, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, decode[map[string]any](t, missing)["error"], decode[map[string]any](t, a.do(http.MethodGet, "/tasks/"+task.ID, bob, nil))["error"])

	w := a.do(http.MethodGet, "/tasks/"+task.ID, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[model.Task](t, w)
	assert.False(t, got.Completed)
	assert.Equal(t, "Alice's task", got.Description)

	bobs := decode[[]model.Task](t, a.do(http.MethodGet, "/tasks", bob, nil))
	assert.Empty(t, bobs)
}

func TestTaskCreate(t *testing.T) {
	a := newTestApp(t)
	token := a.signup("Patrick", "x@y.com", "abc1234").Token

	w := a.do(http.MethodPost, "/tasks", token, gin.H{"description": "  Write tests  ", "owner": "someone-else"})
	require.Equal(t, http.StatusCreated, w.Code)

	task := decode[map[string]any](t, w)
	assert.Equal(t, "Write tests", task["description"])
	assert.Equal(t, false, task["completed"])

	me := decode[map[string]any](t, a.do(http.MethodGet, "/users/me", token, nil))
	assert.Equal(t, me["id"], task["owner"])

	w = a.do(http.MethodPost, "/tasks", token, gin.H{"description": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskList(t *testing.T) {
	a := newTestApp(t)
	token := a.signup("Patrick", "x@y.com", "abc1234").Token

	a.createTask(token, "one", true)
	a.createTask(token, "two", false)
	a.createTask(token, "three", true)

	list := func(query string) []model.Task {
		w := a.do(http.MethodGet, "/tasks"+query, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		return decode[[]model.Task](t, w)
	}

	assert.Len(t, list(""), 3)

	for _, task := range list("?completed=true") {
		assert.True(t, task.Completed)
	}
	assert.Len(t, list("?completed=true"), 2)
	assert.Len(t, list("?completed=false"), 1)

	sorted := list("?sortBy=description:desc")
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"two", "three", "one"}, []string{sorted[0].Description, sorted[1].Description, sorted[2].Description})

	paged := list("?sortBy=description:asc&limit=1&skip=1")
	require.Len(t, paged, 1)
	assert.Equal(t, "three", paged[0].Description)

	assert.Len(t, list("?limit=abc&skip=xyz"), 3)
}

func TestTaskUpdate(t *testing.T) {
	a := newTestApp(t)
	token := a.signup("Patrick", "x@y.com", "abc1234").Token
	task := a.createTask(token, "Original", false)

	w := a.do(http.MethodPatch, "/tasks/"+task.ID, token, gin.H{"description": "Hijacked", "owner": "someone-else"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid updates!", decode[map[string]any](t, w)["error"])

	w = a.do(http.MethodPatch, "/tasks/"+task.ID, token, gin.H{"completed": "yes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, path := range []string{"/tasks/" + task.ID, "/users/me"} {
		w = a.do(http.MethodPatch, path, token, []string{"not", "an", "object"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decode[map[string]any](t, w)["error"])
	}

	unchanged := decode[model.Task](t, a.do(http.MethodGet, "/tasks/"+task.ID, token, nil))
	assert.Equal(t, "Original", unchanged.Description)
	assert.False(t, unchanged.Completed)

	w = a.do(http.MethodPatch, "/tasks/"+task.ID, token, gin.H{"description": "Updated", "completed": true})
	require.Equal(t, http.StatusOK, w.Code)

	updated := decode[model.Task](t, w)
	assert.Equal(t, "Updated", updated.Description)
	assert.True(t, updated.Completed)
	assert.Equal(t, task.OwnerID, updated.OwnerID)
}

func TestTaskDelete(t *testing.T) {
	a := newTestApp(t)
	token := a.signup("Patrick", "x@y.com", "abc1234").Token
	task := a.createTask(token, "Doomed", false)

	w := a.do(http.MethodDelete, "/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, task.ID, decode[model.Task](t, w).ID)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/tasks/"+task.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/tasks/"+task.ID, token, nil).Code)
}

func TestDeleteMeCascades(t *testing.T) {
	a := newTestApp(t)
	res := a.signup("Patrick", "x@y.com", "abc1234")
	other := a.signup("Other", "o@y.com", "abc1234").Token

	a.createTask(res.Token, "one", false)
	a.createTask(res.Token, "two", true)
	a.createTask(other, "kept", false)

	w := a.do(http.MethodDelete, "/users/me", res.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "x@y.com", decode[map[string]any](t, w)["email"])

	var n int64
	require.NoError(t, a.d.DB.Model(model.Task{}).Where("owner_id = ?", res.User["id"]).Count(&n).Error)
	assert.Zero(t, n)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/users/me", res.Token, nil).Code)
	assert.Len(t, decode[[]model.Task](t, a.do(http.MethodGet, "/tasks", other, nil)), 1)

	assert.Eventually(t, func() bool {
		for _, s := range a.mailer.subjects() {
			if s == "Sorry to see you go!" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (a *testApp) uploadAvatar(token, filename string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("avatar", filename)
	require.NoError(a.t, err)
	_, err = fw.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	return w
}

func TestAvatar(t *testing.T) {
	a := newTestApp(t)
	res := a.signup("Patrick", "x@y.com", "abc1234")
	id := res.User["id"].(string)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/users/"+id+"/avatar", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/users/nobody/avatar", "", nil).Code)

	w := a.uploadAvatar(res.Token, "me.png", pngImage(t, 400, 300))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/users/"+id+"/avatar", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, format, err := image.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 250, 250), img.Bounds())

	// The profile never carries the blob
	me := decode[map[string]any](t, a.do(http.MethodGet, "/users/me", res.Token, nil))
	assert.NotContains(t, me, "avatar")

	assert.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/users/me/avatar", res.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/users/"+id+"/avatar", "", nil).Code)
}

func TestAvatarRejected(t *testing.T) {
	a := newTestApp(t)
	token := a.signup("Patrick", "x@y.com", "abc1234").Token

	tests := []struct {
		name     string
		filename string
		data     []byte
		wantErr  string
	}{
		{"wrong extension", "me.gif", pngImage(t, 10, 10), "Please upload a jpg, jpeg or png image."},
		{"renamed text file", "me.png", []byte(strings.Repeat("hello ", 20)), "Please upload a jpg, jpeg or png image."},
		{"too large", "me.png", append(pngImage(t, 10, 10), make([]byte, 1_000_000)...), "File too large"},
		{"corrupt image", "me.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRbroken"), "Image could not be processed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.uploadAvatar(token, tt.filename, tt.data)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantErr, decode[map[string]any](t, w)["error"])
		})
	}

	// Missing file field
	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvatarCorruptAsServerError(t *testing.T) {
	a := newTestApp(t)
	a.d.AvatarPolicy.CorruptIsClientError = false
	token := a.signup("Patrick", "x@y.com", "abc1234").Token

	w := a.uploadAvatar(token, "me.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRbroken"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRootEndpoints(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, http.StatusOK, a.do(http.MethodHead, "/heartbeat", "", nil).Code)

	res := a.signup("Patrick", "x@y.com", "abc1234")
	w := a.do(http.MethodGet, "/validate", res.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, res.User["id"], decode[map[string]any](t, w)["userID"])
}

func TestMakeLogger(t *testing.T) {
	assert.NoError(t, MakeLogger("debug"))
	assert.Error(t, MakeLogger("loud"))
}

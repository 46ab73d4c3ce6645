package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/maurya-kamminana/taskmaster/internal/auth"
	"github.com/maurya-kamminana/taskmaster/internal/models"
	"github.com/maurya-kamminana/taskmaster/internal/password"
	"github.com/maurya-kamminana/taskmaster/internal/session"
	"github.com/maurya-kamminana/taskmaster/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
}

// In-memory stores standing in for the Postgres repositories. They keep
// the same miss and delete conventions: (nil, nil) for a missing row,
// (bool, error) for deletions.

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]models.User{}} }

func (m *memUsers) Create(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *memUsers) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

type memProjects struct {
	mu       sync.Mutex
	projects map[string]models.Project
	roles    map[string]models.Role // userID + "/" + projectID
}

func newMemProjects() *memProjects {
	return &memProjects{projects: map[string]models.Project{}, roles: map[string]models.Role{}}
}

func roleKey(userID, projectID string) string { return userID + "/" + projectID }

func (m *memProjects) Create(_ context.Context, project models.Project) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project.ID = uuid.NewString()
	project.CreatedAt = time.Now()
	m.projects[project.ID] = project
	m.roles[roleKey(project.ManagerID, project.ID)] = models.Role{
		ID: uuid.NewString(), UserID: project.ManagerID, ProjectID: project.ID, Role: models.RoleManager,
	}
	return project, nil
}

func (m *memProjects) ListForUser(_ context.Context, userID string) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Project{}
	for _, r := range m.roles {
		if r.UserID == userID {
			out = append(out, m.projects[r.ProjectID])
		}
	}
	return out, nil
}

func (m *memProjects) FindByID(_ context.Context, id string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memProjects) Update(_ context.Context, project models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[project.ID] = project
	return nil
}

func (m *memProjects) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return false, nil
	}
	delete(m.projects, id)
	return true, nil
}

func (m *memProjects) FindRole(_ context.Context, userID, projectID string) (*models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.roles[roleKey(userID, projectID)]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *memProjects) AddRole(_ context.Context, userID, projectID string, role models.ProjectRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[roleKey(userID, projectID)] = models.Role{
		ID: uuid.NewString(), UserID: userID, ProjectID: projectID, Role: role,
	}
	return nil
}

func (m *memProjects) RemoveRole(_ context.Context, userID, projectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := roleKey(userID, projectID)
	if _, ok := m.roles[key]; !ok {
		return false, nil
	}
	delete(m.roles, key)
	return true, nil
}

func (m *memProjects) ListMembers(_ context.Context, projectID string) ([]models.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ProjectMember{}
	for _, r := range m.roles {
		if r.ProjectID == projectID {
			out = append(out, models.ProjectMember{Role: r.Role, User: models.UserSummary{ID: r.UserID}})
		}
	}
	return out, nil
}

type memTasks struct {
	mu    sync.Mutex
	tasks map[string]models.Task
}

func newMemTasks() *memTasks { return &memTasks{tasks: map[string]models.Task{}} }

func (m *memTasks) Create(_ context.Context, task models.Task) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.ID = uuid.NewString()
	task.CreatedAt = time.Now()
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memTasks) FindByID(_ context.Context, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *memTasks) ListForProject(_ context.Context, projectID string) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Task{}
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTasks) Update(_ context.Context, task models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return nil
}

func (m *memTasks) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return false, nil
	}
	delete(m.tasks, id)
	return true, nil
}

type memComments struct {
	mu       sync.Mutex
	comments []models.Comment
}

func (m *memComments) Create(_ context.Context, comment models.Comment) (models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	m.comments = append(m.comments, comment)
	return comment, nil
}

func (m *memComments) ListForTask(_ context.Context, taskID string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Comment{}
	for _, c := range m.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memNotifications struct {
	mu   sync.Mutex
	rows map[string]models.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{rows: map[string]models.Notification{}}
}

func (m *memNotifications) Create(_ context.Context, n models.Notification) (models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()
	m.rows[n.ID] = n
	return n, nil
}

func (m *memNotifications) ListForUser(_ context.Context, userID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) FindByID(_ context.Context, id, userID string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.rows[id]; ok && n.UserID == userID {
		return &n, nil
	}
	return nil, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Read = true
	m.rows[id] = n
	return true, nil
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, n := range m.rows {
		if n.UserID == userID && !n.Read {
			n.Read = true
			m.rows[id] = n
			count++
		}
	}
	return count, nil
}

func (m *memNotifications) Delete(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.rows[id]; ok && n.UserID == userID {
		delete(m.rows, id)
		return true, nil
	}
	return false, nil
}

func (m *memNotifications) DeleteAll(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, n := range m.rows {
		if n.UserID == userID {
			delete(m.rows, id)
			count++
		}
	}
	return count, nil
}

// newTestServer wires a full server over in-memory stores and a
// miniredis-backed revocation store. mutate may adjust the codec config
// before it is built.
func newTestServer(t *testing.T, mutate func(*token.Config)) (*gin.Engine, *Server) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := session.NewStore(client, time.Second)

	cfg := token.Config{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    15 * 24 * time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	codec, err := token.NewCodec(cfg)
	require.NoError(t, err)

	users := newMemUsers()
	svc := auth.NewService(users, codec, store, password.NewHasher())

	srv := NewServer(Deps{
		Auth:          svc,
		Codec:         codec,
		Users:         users,
		Projects:      newMemProjects(),
		Tasks:         newMemTasks(),
		Comments:      &memComments{},
		Notifications: newMemNotifications(),
	})
	return srv.Router(), srv
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func withBearer(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func withRefreshCookie(value string) func(*http.Request) {
	return func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: value})
	}
}

func refreshCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookie {
			return c
		}
	}
	t.Fatal("no refresh cookie in response")
	return nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerUser drives the register endpoint and returns the access token
// and refresh cookie.
func registerUser(t *testing.T, router *gin.Engine, username, email, pw string) (userID, access string, refresh *http.Cookie) {
	t.Helper()

	w := doRequest(t, router, http.MethodPost, "/auth/register", gin.H{
		"username": username, "email": email, "password": pw,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	access = data["access_token"].(string)
	userID = data["user"].(map[string]any)["id"].(string)
	return userID, access, refreshCookieFrom(t, w)
}

package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/maurya-kamminana/taskmaster/internal/auth"
	"github.com/maurya-kamminana/taskmaster/internal/models"
	"github.com/maurya-kamminana/taskmaster/internal/notify"
	"github.com/maurya-kamminana/taskmaster/internal/token"
)

// ProjectStore is the project and role persistence the handlers need.
type ProjectStore interface {
	Create(ctx context.Context, project models.Project) (models.Project, error)
	ListForUser(ctx context.Context, userID string) ([]models.Project, error)
	FindByID(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, project models.Project) error
	Delete(ctx context.Context, id string) (bool, error)
	FindRole(ctx context.Context, userID, projectID string) (*models.Role, error)
	AddRole(ctx context.Context, userID, projectID string, role models.ProjectRole) error
	RemoveRole(ctx context.Context, userID, projectID string) (bool, error)
	ListMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error)
}

// TaskStore is the task persistence the handlers need.
type TaskStore interface {
	Create(ctx context.Context, task models.Task) (models.Task, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ListForProject(ctx context.Context, projectID string) ([]models.Task, error)
	Update(ctx context.Context, task models.Task) error
	Delete(ctx context.Context, id string) (bool, error)
}

// CommentStore is the comment persistence the handlers need.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) (models.Comment, error)
	ListForTask(ctx context.Context, taskID string) ([]models.Comment, error)
}

// NotificationStore is the notification persistence the handlers need.
type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	FindByID(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Deps collects everything the server needs.
type Deps struct {
	Auth          *auth.Service
	Codec         *token.Codec
	Users         auth.UserStore
	Projects      ProjectStore
	Tasks         TaskStore
	Comments      CommentStore
	Notifications NotificationStore
	Publisher     *notify.Publisher
	Log           *logrus.Logger

	// DBPing and StorePing feed /healthz. Either may be nil.
	DBPing    Pinger
	StorePing Pinger
}

// Server holds the handler dependencies.
type Server struct {
	auth          *auth.Service
	codec         *token.Codec
	users         auth.UserStore
	projects      ProjectStore
	tasks         TaskStore
	comments      CommentStore
	notifications NotificationStore
	publisher     *notify.Publisher
	log           *logrus.Logger
	dbPing        Pinger
	storePing     Pinger
}

// NewServer builds a Server from its dependencies.
func NewServer(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		auth:          deps.Auth,
		codec:         deps.Codec,
		users:         deps.Users,
		projects:      deps.Projects,
		tasks:         deps.Tasks,
		comments:      deps.Comments,
		notifications: deps.Notifications,
		publisher:     deps.Publisher,
		log:           log,
		dbPing:        deps.DBPing,
		storePing:     deps.StorePing,
	}
}

// Router assembles the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), measureRequests())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", s.handleRegister)
		authRoutes.POST("/login", s.handleLogin)
		authRoutes.POST("/refresh-token", s.handleRefresh)
		authRoutes.POST("/logout", s.handleLogout)
	}

	protected := r.Group("/", s.requireAuth())
	{
		protected.POST("/auth/logout-all", s.handleLogoutAll)

		protected.GET("/users/:id", s.handleGetUser)

		protected.GET("/projects", s.handleListProjects)
		protected.POST("/projects", s.handleCreateProject)
		protected.GET("/projects/:id", s.handleGetProject)
		protected.PATCH("/projects/:id", s.handleUpdateProject)
		protected.DELETE("/projects/:id", s.handleDeleteProject)
		protected.GET("/projects/:id/users", s.handleListProjectUsers)
		protected.POST("/projects/:id/users", s.handleAddProjectUser)
		protected.DELETE("/projects/:id/users", s.handleRemoveProjectUser)
		protected.GET("/projects/:id/tasks", s.handleListProjectTasks)
		protected.POST("/projects/:id/tasks", s.handleCreateTask)

		protected.GET("/tasks/:id", s.handleGetTask)
		protected.PUT("/tasks/:id", s.handleUpdateTask)
		protected.DELETE("/tasks/:id", s.handleDeleteTask)
		protected.GET("/tasks/:id/comments", s.handleListComments)
		protected.POST("/tasks/:id/comments", s.handleCreateComment)

		protected.GET("/notifications", s.handleListNotifications)
		protected.POST("/notifications", s.handleCreateNotification)
		protected.GET("/notifications/:id", s.handleGetNotification)
		protected.PATCH("/notifications", s.handleMarkAllNotificationsRead)
		protected.PATCH("/notifications/:id/read", s.handleMarkNotificationRead)
		protected.DELETE("/notifications/:id", s.handleDeleteNotification)
		protected.DELETE("/notifications", s.handleDeleteAllNotifications)
	}

	return r
}

// handleHealth pings the database and the revocation store.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true
	for name, ping := range map[string]Pinger{"database": s.dbPing, "store": s.storePing} {
		if ping == nil {
			continue
		}
		if err := ping(ctx); err != nil {
			s.log.WithError(err).WithField("check", name).Warn("health check failed")
			checks[name] = "unreachable"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": healthy, "checks": checks})
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/otpas-api/internal/middleware"
	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/internal/policy"
)

type policyEvaluator interface {
	Evaluate(ctx context.Context, req *policy.Request, chain ...policy.Policy) error
}

// Router binds handlers to their routes and per-route policy chains.
type Router struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Projects    *ProjectHandler
	Departments *DepartmentHandler
	Tutorials   *TutorialHandler
	Messages    *MessageHandler
	Metrics     *MetricsHandler

	// Authenticate is the JWT gate applied to every protected route.
	Authenticate gin.HandlerFunc
	Engine       policyEvaluator
	// MessageAudit runs after a message is sent; optional.
	MessageAudit gin.HandlerFunc
}

// Register mounts the health and metrics endpoints at the root and the API under prefix.
func (rt *Router) Register(r *gin.Engine, prefix string) {
	r.GET("/health", rt.Metrics.Health)
	r.GET("/ready", rt.Metrics.Ready)
	r.GET("/metrics", rt.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", rt.Auth.Login)
	auth.POST("/refresh", rt.Auth.Refresh)

	protected := api.Group("")
	protected.Use(rt.Authenticate)
	protected.POST("/auth/logout", rt.Auth.Logout)
	protected.GET("/auth/me", rt.Auth.Me)

	protected.GET("/users/:userId", rt.guard(policy.SelfAccessOnly()), rt.Users.Get)

	student := rt.guard(policy.RequireRole(models.RoleStudent))
	instructor := rt.guard(policy.RequireRole(models.RoleInstructor))
	protected.POST("/projects", student, rt.Projects.Submit)
	protected.GET("/projects/mine", student, rt.Projects.ListMine)
	protected.GET("/students/:studentId/projects", rt.guard(policy.RequireRole(models.RoleInstructor), policy.InstructorOwnsStudent()), rt.Projects.ListForStudent)
	protected.POST("/projects/:projectId/approve", instructor, rt.Projects.Approve)
	protected.POST("/projects/:projectId/reject", instructor, rt.Projects.Reject)
	protected.POST("/projects/:projectId/files", student, rt.Projects.Upload)
	protected.POST("/projects/:projectId/evaluations", rt.guard(policy.RequirePermission(policy.PermEvaluationCreate)), rt.Projects.CreateEvaluation)
	protected.GET("/projects/:projectId/evaluations", rt.guard(policy.RequireRole(models.RoleInstructor), policy.InstructorOwnsProject()), rt.Projects.ListEvaluations)

	protected.GET("/departments/:departmentId/projects", rt.guard(policy.RequireRole(models.RoleDepartmentHead), policy.DepartmentHeadScope()), rt.Departments.ListProjects)
	protected.GET("/department/reports/projects", rt.guard(policy.RequirePermission(policy.PermReportView), policy.RequireRole(models.RoleDepartmentHead), policy.DepartmentHeadScope()), rt.Departments.Report)

	protected.POST("/tutorials/:tutorialId/materials", rt.guard(policy.RequireRole(models.RoleInstructor, models.RoleDepartmentHead, models.RoleAdmin, models.RoleSuperAdmin), policy.TutorialUploadPermission()), rt.Tutorials.UploadMaterial)
	protected.GET("/tutorials/:tutorialId/materials", rt.guard(policy.TutorialMaterialAccess()), rt.Tutorials.ListMaterials)

	send := []gin.HandlerFunc{rt.guard(policy.MessagingPermission())}
	if rt.MessageAudit != nil {
		send = append(send, rt.MessageAudit)
	}
	protected.POST("/messages", append(send, rt.Messages.Send)...)
	protected.GET("/messages", rt.Messages.Inbox)
	protected.POST("/messages/:messageId/read", rt.Messages.MarkRead)
}

func (rt *Router) guard(chain ...policy.Policy) gin.HandlerFunc {
	return middleware.Authorize(rt.Engine, chain...)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/middleware"
	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/internal/policy"
	"github.com/noah-isme/otpas-api/internal/service"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
	"github.com/noah-isme/otpas-api/pkg/middleware/cors"
	"github.com/noah-isme/otpas-api/pkg/response"
)

const apiPrefix = "/api/v1"

type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredential, "token is invalid")
	}
	return claims, nil
}

type fakeResolver struct {
	assignments map[[2]string]bool
	heads       map[string]string
	projects    map[string]*models.Project
	tutorials   map[string]*models.Tutorial
	courseLinks map[[2]string]bool
	users       map[string]*models.User
}

func (f *fakeResolver) IsInstructorAssignedToStudent(_ context.Context, instructorID, studentID string) (bool, error) {
	return f.assignments[[2]string{instructorID, studentID}], nil
}

func (f *fakeResolver) DepartmentOf(_ context.Context, userID string) (string, error) {
	dept, ok := f.heads[userID]
	if !ok {
		return "", policy.ErrNotFound
	}
	return dept, nil
}

func (f *fakeResolver) ResolveStudentFromProject(ctx context.Context, projectID string) (string, error) {
	project, err := f.Project(ctx, projectID)
	if err != nil {
		return "", err
	}
	return project.StudentID, nil
}

func (f *fakeResolver) Project(_ context.Context, projectID string) (*models.Project, error) {
	project, ok := f.projects[projectID]
	if !ok {
		return nil, policy.ErrNotFound
	}
	return project, nil
}

func (f *fakeResolver) Tutorial(_ context.Context, tutorialID string) (*models.Tutorial, error) {
	tutorial, ok := f.tutorials[tutorialID]
	if !ok {
		return nil, policy.ErrNotFound
	}
	return tutorial, nil
}

func (f *fakeResolver) InstructorTeachesCourse(_ context.Context, instructorID, courseID string) (bool, error) {
	return f.courseLinks[[2]string{instructorID, courseID}], nil
}

func (f *fakeResolver) User(_ context.Context, userID string) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, policy.ErrNotFound
	}
	return user, nil
}

type stubAuth struct{}

func (stubAuth) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{TokenPair: models.TokenPair{AccessToken: "access"}}, nil
}

func (stubAuth) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{TokenPair: models.TokenPair{AccessToken: "access"}}, nil
}

func (stubAuth) Logout(context.Context, string, string, models.LoginRequest) error { return nil }

func (stubAuth) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID}, nil
}

type stubProfiles struct{}

func (stubProfiles) Profile(_ context.Context, userID string) (*models.UserProfile, error) {
	return &models.UserProfile{ID: userID}, nil
}

type stubProjects struct {
	calls      []string
	studentArg string
	upload     dto.FileUpload
	uploadBody string
}

func (s *stubProjects) SubmitTitle(_ context.Context, actor policy.Subject, req dto.SubmitTitleRequest) (*models.Project, error) {
	s.calls = append(s.calls, "submit")
	return &models.Project{ID: "p-new", StudentID: actor.ID, Title: req.Title, Status: models.ProjectStatusPending}, nil
}

func (s *stubProjects) ListMine(context.Context, policy.Subject) ([]models.Project, error) {
	s.calls = append(s.calls, "mine")
	return []models.Project{}, nil
}

func (s *stubProjects) ListForStudent(_ context.Context, studentID string) ([]models.Project, error) {
	s.calls = append(s.calls, "student")
	s.studentArg = studentID
	return []models.Project{{ID: "p1", StudentID: studentID}}, nil
}

func (s *stubProjects) Approve(_ context.Context, _ policy.Subject, projectID string) (*models.Project, error) {
	s.calls = append(s.calls, "approve")
	return &models.Project{ID: projectID, Status: models.ProjectStatusApproved}, nil
}

func (s *stubProjects) Reject(_ context.Context, _ policy.Subject, projectID string, _ dto.RejectProjectRequest) (*models.Project, error) {
	s.calls = append(s.calls, "reject")
	return &models.Project{ID: projectID, Status: models.ProjectStatusRejected}, nil
}

func (s *stubProjects) UploadFile(_ context.Context, _ policy.Subject, projectID string, upload dto.FileUpload) (*models.ProjectFile, error) {
	s.calls = append(s.calls, "upload")
	s.upload = upload
	raw, _ := io.ReadAll(upload.Content)
	s.uploadBody = string(raw)
	return &models.ProjectFile{ID: "f1", ProjectID: projectID, OriginalName: upload.Filename}, nil
}

func (s *stubProjects) CreateEvaluation(_ context.Context, _ policy.Subject, projectID string, req dto.CreateEvaluationRequest) (*models.Evaluation, error) {
	s.calls = append(s.calls, "evaluate")
	return &models.Evaluation{ID: "e1", ProjectID: projectID, Type: req.Type}, nil
}

func (s *stubProjects) ListEvaluations(context.Context, string) ([]models.Evaluation, error) {
	s.calls = append(s.calls, "evaluations")
	return []models.Evaluation{}, nil
}

type stubDepartments struct {
	departmentArg string
}

func (s *stubDepartments) ListProjects(_ context.Context, departmentID string) ([]models.DepartmentProjectRow, error) {
	s.departmentArg = departmentID
	return []models.DepartmentProjectRow{}, nil
}

func (s *stubDepartments) Report(_ context.Context, departmentID string) (*dto.DepartmentReport, bool, error) {
	s.departmentArg = departmentID
	return &dto.DepartmentReport{DepartmentID: departmentID}, true, nil
}

func (s *stubDepartments) Render(_ context.Context, departmentID string, format dto.ReportFormat) (*dto.RenderedReport, error) {
	s.departmentArg = departmentID
	return &dto.RenderedReport{Filename: "department-" + departmentID + "." + string(format), ContentType: "text/csv", Body: []byte("Project,Title\n")}, nil
}

type stubTutorials struct {
	uploads int
}

func (s *stubTutorials) UploadMaterial(_ context.Context, actorID, tutorialID string, upload dto.FileUpload) (*models.TutorialMaterial, error) {
	s.uploads++
	return &models.TutorialMaterial{ID: "m1", TutorialID: tutorialID, UploadedBy: actorID, OriginalName: upload.Filename}, nil
}

func (s *stubTutorials) ListMaterials(_ context.Context, tutorialID string, level models.AccessLevel) (*service.TutorialMaterials, error) {
	return &service.TutorialMaterials{Tutorial: models.Tutorial{ID: tutorialID}, AccessLevel: level, Materials: []models.TutorialMaterial{}}, nil
}

type stubMessages struct {
	sent []dto.SendMessageRequest
}

func (s *stubMessages) Send(_ context.Context, senderID string, req dto.SendMessageRequest) (*models.Message, error) {
	s.sent = append(s.sent, req)
	return &models.Message{ID: "m1", SenderID: &senderID, RecipientID: req.RecipientID}, nil
}

func (s *stubMessages) Inbox(context.Context, string, dto.InboxQuery) ([]models.Message, error) {
	return []models.Message{}, nil
}

func (s *stubMessages) MarkRead(context.Context, string, string) error {
	return appErrors.Clone(appErrors.ErrNotFound, "message not found")
}

type routerFixture struct {
	engine      *gin.Engine
	resolver    *fakeResolver
	projects    *stubProjects
	departments *stubDepartments
	tutorials   *stubTutorials
	messages    *stubMessages
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	perms, err := policy.DefaultPermissions()
	require.NoError(t, err)
	dept3 := "d3"
	resolver := &fakeResolver{
		assignments: map[[2]string]bool{{"i1", "s1"}: true},
		heads:       map[string]string{"h1": "d3"},
		projects:    map[string]*models.Project{"p1": {ID: "p1", StudentID: "s1", Status: models.ProjectStatusPending}},
		tutorials:   map[string]*models.Tutorial{"t1": {ID: "t1", CourseID: "c1", IsPublished: true}, "t2": {ID: "t2", CourseID: "c1"}},
		courseLinks: map[[2]string]bool{{"i1", "c1"}: true, {"h1", "c1"}: true},
		users: map[string]*models.User{
			"i1": {ID: "i1", Role: models.RoleInstructor},
			"i2": {ID: "i2", Role: models.RoleInstructor},
			"s1": {ID: "s1", Role: models.RoleStudent, DepartmentID: &dept3},
		},
	}
	engine := policy.NewEngine(policy.Env{Resolver: resolver, Permissions: perms}, nil, nil)
	tokens := staticTokens{
		"student":    {UserID: "s1", Role: models.RoleStudent},
		"instructor": {UserID: "i1", Role: models.RoleInstructor},
		"stranger":   {UserID: "i2", Role: models.RoleInstructor},
		"head":       {UserID: "h1", Role: models.RoleDepartmentHead},
		"admin":      {UserID: "a1", Role: models.RoleAdmin},
	}

	fx := &routerFixture{
		resolver:    resolver,
		projects:    &stubProjects{},
		departments: &stubDepartments{},
		tutorials:   &stubTutorials{},
		messages:    &stubMessages{},
	}
	r := gin.New()
	r.Use(cors.New(nil))
	router := &Router{
		Auth:         NewAuthHandler(stubAuth{}),
		Users:        NewUserHandler(stubProfiles{}),
		Projects:     NewProjectHandler(fx.projects),
		Departments:  NewDepartmentHandler(fx.departments),
		Tutorials:    NewTutorialHandler(fx.tutorials),
		Messages:     NewMessageHandler(fx.messages),
		Metrics:      NewMetricsHandler(nil, nil),
		Authenticate: middleware.JWT(tokens),
		Engine:       engine,
	}
	router.Register(r, apiPrefix)
	fx.engine = r
	return fx
}

func (fx *routerFixture) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, apiPrefix+path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	fx.engine.ServeHTTP(w, req)
	return w
}

func (fx *routerFixture) doJSON(method, path, token, body string) *httptest.ResponseRecorder {
	return fx.do(method, path, token, strings.NewReader(body), "application/json")
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestProtectedRoutesRequireCredential(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(http.MethodGet, "/projects/mine", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrMissingCredential.Code, envelope(t, w).Error.Code)

	w = fx.do(http.MethodGet, "/projects/mine", "forged", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrInvalidCredential.Code, envelope(t, w).Error.Code)
	assert.Empty(t, fx.projects.calls)
}

func TestPreflightNeverReachesHandlers(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(http.MethodOptions, "/projects/p1/approve", "", nil, "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, fx.projects.calls)
}

func TestUnassignedInstructorCannotListStudentProjects(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(http.MethodGet, "/students/s1/projects", "stranger", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, policy.ReasonInstructorNotAssigned, envelope(t, w).Error.Message)

	w = fx.do(http.MethodGet, "/students/s1/projects", "instructor", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", fx.projects.studentArg)
}

func TestEvaluationsListRequiresProjectAssignment(t *testing.T) {
	fx := newRouterFixture(t)

	assert.Equal(t, http.StatusOK, fx.do(http.MethodGet, "/projects/p1/evaluations", "instructor", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, fx.do(http.MethodGet, "/projects/p1/evaluations", "stranger", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, fx.do(http.MethodGet, "/projects/missing/evaluations", "instructor", nil, "").Code)
}

func TestEvaluationsListIgnoresForeignStudentID(t *testing.T) {
	fx := newRouterFixture(t)
	fx.resolver.assignments[[2]string{"i2", "s9"}] = true

	w := fx.do(http.MethodGet, "/projects/p1/evaluations?studentId=s9", "stranger", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), policy.ReasonInstructorNotAssigned)

	w = fx.do(http.MethodGet, "/projects/p1/evaluations", "stranger", strings.NewReader(`{"studentId":"s9"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, fx.projects.calls)
}

func TestPathTutorialWinsOverQuery(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(http.MethodGet, "/tutorials/t2/materials?tutorialId=t1", "student", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), policy.ReasonTutorialUnpublished)
}

func TestPathDepartmentWinsOverQuery(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(http.MethodGet, "/departments/d7/projects?departmentId=d3", "head", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), policy.ReasonOutsideDepartment)
}

func TestEvaluationCreateNeedsPermission(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.doJSON(http.MethodPost, "/projects/p1/evaluations", "student", `{"type":"final","score":90}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = fx.doJSON(http.MethodPost, "/projects/p1/evaluations", "instructor", `{"type":"final","score":90}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"evaluate"}, fx.projects.calls)
}

func TestDepartmentHeadIsConfinedToOwnDepartment(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(http.MethodGet, "/departments/d7/projects", "head", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, policy.ReasonOutsideDepartment, envelope(t, w).Error.Message)

	w = fx.do(http.MethodGet, "/departments/d3/projects", "head", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "d3", fx.departments.departmentArg)

	w = fx.do(http.MethodGet, "/department/reports/projects?departmentId=d7", "head", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = fx.do(http.MethodGet, "/department/reports/projects", "instructor", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDepartmentReportFormats(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(http.MethodGet, "/department/reports/projects", "head", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, envelope(t, w).Meta["cache_hit"])

	w = fx.do(http.MethodGet, "/department/reports/projects?format=csv", "head", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "department-d3.csv")

	w = fx.do(http.MethodGet, "/department/reports/projects?format=xml", "head", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile(uploadField, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestDepartmentHeadCannotUploadTutorialMaterial(t *testing.T) {
	fx := newRouterFixture(t)

	body, contentType := multipartBody(t, "notes.pdf", "%PDF")
	w := fx.do(http.MethodPost, "/tutorials/t1/materials", "head", body, contentType)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, policy.ReasonHeadCannotUpload, envelope(t, w).Error.Message)

	body, contentType = multipartBody(t, "notes.pdf", "%PDF")
	w = fx.do(http.MethodPost, "/tutorials/t1/materials", "instructor", body, contentType)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, fx.tutorials.uploads)
}

func TestTutorialMaterialAccessLevelInMeta(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(http.MethodGet, "/tutorials/t1/materials", "student", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(models.AccessReadOnly), envelope(t, w).Meta["accessLevel"])

	w = fx.do(http.MethodGet, "/tutorials/t2/materials", "student", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = fx.do(http.MethodGet, "/tutorials/t2/materials", "instructor", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(models.AccessFull), envelope(t, w).Meta["accessLevel"])
}

func TestProjectUploadPassesMultipartFile(t *testing.T) {
	fx := newRouterFixture(t)

	body, contentType := multipartBody(t, "chapter1.pdf", "%PDF-1.7")
	w := fx.do(http.MethodPost, "/projects/p1/files", "student", body, contentType)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "chapter1.pdf", fx.projects.upload.Filename)
	assert.Equal(t, "%PDF-1.7", fx.projects.uploadBody)

	w = fx.do(http.MethodPost, "/projects/p1/files", "student", strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.do(http.MethodPost, "/projects/p1/files", "instructor", strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjectTransitionsRequireInstructorRole(t *testing.T) {
	fx := newRouterFixture(t)

	assert.Equal(t, http.StatusForbidden, fx.do(http.MethodPost, "/projects/p1/approve", "student", nil, "").Code)
	assert.Equal(t, http.StatusOK, fx.do(http.MethodPost, "/projects/p1/approve", "instructor", nil, "").Code)
	assert.Equal(t, http.StatusOK, fx.do(http.MethodPost, "/projects/p1/reject", "instructor", nil, "").Code)
	assert.Equal(t, http.StatusCreated, fx.doJSON(http.MethodPost, "/projects", "student", `{"title":"t","description":"a description long enough"}`).Code)
	assert.Equal(t, []string{"approve", "reject", "submit"}, fx.projects.calls)
}

func TestUsersSelfAccessOnly(t *testing.T) {
	fx := newRouterFixture(t)

	assert.Equal(t, http.StatusForbidden, fx.do(http.MethodGet, "/users/i1", "student", nil, "").Code)
	assert.Equal(t, http.StatusOK, fx.do(http.MethodGet, "/users/s1", "student", nil, "").Code)
}

func TestMessagingPermissionOnSend(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.doJSON(http.MethodPost, "/messages", "student", `{"recipientId":"i1","subject":"Hi","body":"Question"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = fx.doJSON(http.MethodPost, "/messages", "student", `{"recipientId":"i2","subject":"Hi","body":"Question"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = fx.doJSON(http.MethodPost, "/messages", "student", `{"recipientId":"ghost","subject":"Hi","body":"Question"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = fx.doJSON(http.MethodPost, "/messages", "student", `{"recipientId":"s1","subject":"Hi","body":"Question"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Len(t, fx.messages.sent, 1)
	assert.Equal(t, "i1", fx.messages.sent[0].RecipientID)

	w = fx.do(http.MethodPost, "/messages/m9/read", "student", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRoutes(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.doJSON(http.MethodPost, "/auth/login", "", `{"email":"s1@example.com","password":"secret"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = fx.doJSON(http.MethodPost, "/auth/login", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.do(http.MethodGet, "/auth/me", "head", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"h1"`)

	w = fx.doJSON(http.MethodPost, "/auth/logout", "head", `{"refresh_token":"r"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

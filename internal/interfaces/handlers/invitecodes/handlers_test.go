package invitecodes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	icsvc "soa-backend/internal/application/invitecodes"
	"soa-backend/internal/domain"
	"soa-backend/internal/infrastructure/database"
	"soa-backend/internal/middleware"
	"soa-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db  *gorm.DB
	h   *Handlers
	org domain.Organization
	gp  domain.OrganizationRegion
	wc  domain.OrganizationRegion
}

func setupInviteCodesTest(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	env := &testEnv{db: db}
	env.org = domain.Organization{Name: "Soil of Africa", Slug: "soa"}
	require.NoError(t, db.Create(&env.org).Error)
	env.gp = domain.OrganizationRegion{OrganizationID: env.org.ID, Name: "Gauteng", Code: "GP", IsActive: true}
	env.wc = domain.OrganizationRegion{OrganizationID: env.org.ID, Name: "Western Cape", Code: "WC", IsActive: true}
	require.NoError(t, db.Create(&env.gp).Error)
	require.NoError(t, db.Create(&env.wc).Error)
	env.h = &Handlers{Service: &icsvc.Service{DB: db, JoinBaseURL: "https://join.example.org"}}
	return env
}

func (env *testEnv) app(role string, region *domain.OrganizationRegion) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role == "" {
			c.Locals("user", nil)
			return c.Next()
		}
		user := map[string]interface{}{
			"user_id": uuid.New().String(), "role": role, "email": "mgr@example.com",
			"fullname": "Manager", "org_id": env.org.ID.String(),
		}
		if region != nil {
			user["region_id"] = region.ID.String()
		}
		c.Locals("user", user)
		return c.Next()
	})
	g := app.Group("/invite-codes", middleware.RequireAuth())
	g.Post("/create-code", middleware.AuthorizePermission(constants.IssueInviteCode), env.h.CreateCode)
	g.Get("/view-codes", middleware.AuthorizePermission(constants.ViewInviteCodes), env.h.ViewCodes)
	g.Patch("/toggle-code/:id", middleware.AuthorizePermission(constants.IssueInviteCode), env.h.ToggleCode)
	g.Post("/share-code/:id", middleware.AuthorizePermission(constants.IssueInviteCode), env.h.ShareCode)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestCreateCode_Unauthenticated(t *testing.T) {
	env := setupInviteCodesTest(t)
	status, _ := doJSON(t, env.app("", nil), "POST", "/invite-codes/create-code", map[string]interface{}{})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCreateCode_MemberForbidden(t *testing.T) {
	env := setupInviteCodesTest(t)
	status, out := doJSON(t, env.app(constants.Member, &env.gp), "POST", "/invite-codes/create-code",
		map[string]interface{}{"allowed_member_types": []string{"learner"}})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "User is Forbidden from performing this action", out["error"].(map[string]interface{})["message"])
}

func TestCreateCode_RegionalManager(t *testing.T) {
	env := setupInviteCodesTest(t)
	status, out := doJSON(t, env.app(constants.RegionalManager, &env.gp), "POST", "/invite-codes/create-code",
		map[string]interface{}{"allowed_member_types": []string{"learner"}, "max_uses": 50, "description": "Soweto drive"})
	require.Equal(t, fiber.StatusCreated, status)
	data := out["data"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(data["code"].(string), "SOA-GP-"))
	assert.Equal(t, float64(50), data["max_uses"])
	assert.Equal(t, env.gp.ID.String(), data["region_id"])
}

func TestCreateCode_OtherRegionForbidden(t *testing.T) {
	env := setupInviteCodesTest(t)
	status, _ := doJSON(t, env.app(constants.RegionalManager, &env.gp), "POST", "/invite-codes/create-code",
		map[string]interface{}{"allowed_member_types": []string{"learner"}, "region_id": env.wc.ID.String()})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestCreateCode_ValidationErrors(t *testing.T) {
	env := setupInviteCodesTest(t)
	app := env.app(constants.NationalAdmin, &env.gp)

	status, _ := doJSON(t, app, "POST", "/invite-codes/create-code", map[string]interface{}{"allowed_member_types": []string{}})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, "POST", "/invite-codes/create-code",
		map[string]interface{}{"allowed_member_types": []string{"pilot"}})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, "POST", "/invite-codes/create-code",
		map[string]interface{}{"allowed_member_types": []string{"learner"}, "region_id": "nope"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, "POST", "/invite-codes/create-code",
		map[string]interface{}{"allowed_member_types": []string{"learner"}, "region_id": uuid.NewString()})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestViewAndToggleCodes(t *testing.T) {
	env := setupInviteCodesTest(t)
	app := env.app(constants.NationalAdmin, &env.gp)
	for _, region := range []domain.OrganizationRegion{env.gp, env.wc} {
		status, _ := doJSON(t, app, "POST", "/invite-codes/create-code",
			map[string]interface{}{"allowed_member_types": []string{"volunteer"}, "region_id": region.ID.String()})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, out := doJSON(t, app, "GET", "/invite-codes/view-codes", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 2)

	status, out = doJSON(t, app, "GET", "/invite-codes/view-codes?region_id="+env.wc.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, status)
	codes := out["data"].([]interface{})
	require.Len(t, codes, 1)
	id := codes[0].(map[string]interface{})["id"].(string)

	status, out = doJSON(t, app, "PATCH", "/invite-codes/toggle-code/"+id, map[string]interface{}{"is_active": false})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Invite code deactivated", out["message"])

	status, out = doJSON(t, app, "GET", "/invite-codes/view-codes?active=true", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)

	status, _ = doJSON(t, app, "PATCH", "/invite-codes/toggle-code/"+id, map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = doJSON(t, app, "PATCH", "/invite-codes/toggle-code/"+uuid.NewString(), map[string]interface{}{"is_active": true})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestShareCode_EmailUnavailable(t *testing.T) {
	env := setupInviteCodesTest(t)
	app := env.app(constants.RegionalManager, &env.gp)
	status, out := doJSON(t, app, "POST", "/invite-codes/create-code",
		map[string]interface{}{"allowed_member_types": []string{"learner"}})
	require.Equal(t, fiber.StatusCreated, status)
	id := out["data"].(map[string]interface{})["id"].(string)

	status, _ = doJSON(t, app, "POST", "/invite-codes/share-code/"+id, map[string]interface{}{"email": "friend@example.com"})
	assert.Equal(t, fiber.StatusServiceUnavailable, status)

	status, _ = doJSON(t, app, "POST", "/invite-codes/share-code/"+id, map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestViewCodes_StoreFailureSurfacesCause(t *testing.T) {
	env := setupInviteCodesTest(t)
	require.NoError(t, env.db.Migrator().DropTable(&domain.InviteCode{}))

	status, out := doJSON(t, env.app(constants.NationalAdmin, nil), "GET", "/invite-codes/view-codes", nil)
	require.Equal(t, fiber.StatusInternalServerError, status)
	errBody := out["error"].(map[string]interface{})
	assert.Equal(t, "Internal Server Error", errBody["message"])
	cause := errBody["details"].(map[string]interface{})["error"].(string)
	assert.Contains(t, cause, "list invite codes")
}

package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"soa-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentUser_PointerAndStringIDs(t *testing.T) {
	org, region := "org-1", "region-1"
	cases := map[string]map[string]interface{}{
		"in-process": {"user_id": "u1", "role": constants.RegionalManager, "org_id": &org, "region_id": &region},
		"from redis": {"user_id": "u1", "role": constants.RegionalManager, "org_id": "org-1", "region_id": "region-1"},
	}
	for name, user := range cases {
		t.Run(name, func(t *testing.T) {
			app := fiber.New()
			var got *SessionUser
			app.Get("/", func(c *fiber.Ctx) error {
				c.Locals("user", user)
				got = CurrentUser(c)
				return c.SendStatus(fiber.StatusOK)
			})
			_, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "u1", got.UserID)
			require.NotNil(t, got.OrgID)
			assert.Equal(t, "org-1", *got.OrgID)
			require.NotNil(t, got.RegionID)
			assert.Equal(t, "region-1", *got.RegionID)
		})
	}
}

func TestCurrentUser_NilRegion(t *testing.T) {
	app := fiber.New()
	var got *SessionUser
	app.Get("/", func(c *fiber.Ctx) error {
		var none *string
		c.Locals("user", map[string]interface{}{"user_id": "u1", "region_id": none})
		got = CurrentUser(c)
		return nil
	})
	_, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.RegionID)
	assert.Nil(t, got.OrgID)
}

func TestAuthorizePermission(t *testing.T) {
	run := func(role string) int {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			if role != "" {
				c.Locals("user", map[string]interface{}{"user_id": "u1", "role": role})
			}
			return c.Next()
		})
		app.Get("/", AuthorizePermission(constants.IssueInviteCode), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		})
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		return resp.StatusCode
	}
	assert.Equal(t, fiber.StatusNoContent, run(constants.BranchManager))
	assert.Equal(t, fiber.StatusForbidden, run(constants.Member))
	assert.Equal(t, fiber.StatusUnauthorized, run(""))
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".soilofafrica.org", DevPassword: "letmein"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://join.soilofafrica.org")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://join.soilofafrica.org", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req.Header.Set("dev-password", "letmein")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSession_PersistsOnlyWithUser(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	app := fiber.New()
	app.Use(SessionWithClient(rdb))
	app.Get("/anon", func(c *fiber.Ctx) error {
		RegenerateSessionID(c)
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/login", func(c *fiber.Ctx) error {
		sid := RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: "u1", Role: constants.NationalAdmin})
		return c.SendString(sid)
	})
	app.Get("/me", func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(u.Role)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/anon", nil))
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())

	resp, err := app.Test(httptest.NewRequest("GET", "/login", nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	sid := string(raw)
	assert.True(t, mr.Exists(SessionRedisPrefix+sid))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:"+sid)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTracing_ReusesIncomingID(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	incoming := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(TraceIDHeader, incoming)
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, incoming, string(raw))
	assert.Equal(t, incoming, resp.Header.Get(TraceIDHeader))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(TraceIDHeader, "not-a-uuid")
	resp, err = app.Test(req)
	require.NoError(t, err)
	minted := resp.Header.Get(TraceIDHeader)
	_, err = uuid.Parse(minted)
	assert.NoError(t, err)
}

func TestTracing_ErrorBodyCarriesTraceID(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", AuthorizePermission(constants.IssueInviteCode), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	var body struct {
		Error struct {
			TraceID string `json:"traceId"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, resp.Header.Get(TraceIDHeader), body.Error.TraceID)
	assert.NotEmpty(t, body.Error.TraceID)
}

func TestAuthorizePermission_RegionScope(t *testing.T) {
	gp := uuid.New()
	run := func(user map[string]interface{}) (int, string) {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user", user)
			return c.Next()
		})
		app.Get("/", AuthorizePermission(constants.ViewMembers), func(c *fiber.Ctx) error {
			id, scoped := RegionScope(c)
			switch {
			case !scoped:
				return c.SendString("national")
			case id == nil:
				return c.SendString("none")
			}
			return c.SendString(id.String())
		})
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(raw)
	}

	role := constants.RegionalManager
	region := gp.String()
	status, body := run(map[string]interface{}{"user_id": "u1", "role": &role, "region_id": &region})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, gp.String(), body)

	_, body = run(map[string]interface{}{"user_id": "u1", "role": constants.BranchManager})
	assert.Equal(t, "none", body)

	_, body = run(map[string]interface{}{"user_id": "u1", "role": constants.NationalAdmin, "region_id": region})
	assert.Equal(t, "national", body)
}

func TestCORS_MultipleSuffixesExposeTraceHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".soilofafrica.org, .soa-join.vercel.app"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://preview.soa-join.vercel.app")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, TraceIDHeader, resp.Header.Get("Access-Control-Expose-Headers"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), TraceIDHeader)
}

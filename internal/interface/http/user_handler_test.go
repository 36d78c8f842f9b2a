package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/domain/entity"
	"github.com/oksasatya/go-user-service/internal/domain/repository"
	"github.com/oksasatya/go-user-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-user-service/pkg/response"
	"github.com/oksasatya/go-user-service/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	os.Exit(m.Run())
}

// ---- fakes ----

type fakeService struct {
	application.Service
	listPagedFn func(int, int) (application.Result[entity.PagedResult[entity.User]], error)
	updateFn    func(string, application.UserInput) (application.Result[bool], error)
	resetFn     func(string) (application.Result[bool], error)
}

func (f *fakeService) ListPaged(ctx context.Context, p, s int) (application.Result[entity.PagedResult[entity.User]], error) {
	if f.listPagedFn != nil {
		return f.listPagedFn(p, s)
	}
	return f.Service.ListPaged(ctx, p, s)
}

func (f *fakeService) Update(ctx context.Context, id string, in application.UserInput) (application.Result[bool], error) {
	if f.updateFn != nil {
		return f.updateFn(id, in)
	}
	return f.Service.Update(ctx, id, in)
}

func (f *fakeService) RequestPasswordReset(ctx context.Context, id string) (application.Result[bool], error) {
	if f.resetFn != nil {
		return f.resetFn(id)
	}
	return f.Service.RequestPasswordReset(ctx, id)
}

type fakeSearcher struct {
	hits []map[string]any
	err  error
	q    string
	size int
}

func (f *fakeSearcher) Search(_ context.Context, q string, size int) ([]map[string]any, error) {
	f.q, f.size = q, size
	return f.hits, f.err
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }

// ---- helpers ----

func newFakeService() (*fakeService, *memory.Store) {
	store := memory.NewStore()
	svc := application.NewService(store, plainHasher{}, nil, application.Channels{})
	return &fakeService{Service: *svc}, store
}

func newTestRouter(svc UserService, search Searcher) *gin.Engine {
	r := gin.New()
	h := NewUserHandler(svc, search)
	users := r.Group("/api/users")
	users.GET("", h.List)
	users.GET("/all", h.ListAll)
	users.GET("/search", h.SearchUsers)
	users.GET("/:id", h.Get)
	users.POST("", h.Create)
	users.POST("/signup", h.Signup)
	users.POST("/password-reset", h.RequestPasswordReset)
	users.PUT("/:id", h.Update)
	users.DELETE("/:id", h.Delete)
	return r
}

func doRequest(router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) response.Envelope[T] {
	t.Helper()
	var env response.Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

var validBody = map[string]any{
	"userName":  "ada@example.com",
	"password":  "secret1",
	"firstName": "Ada",
	"isActive":  true,
}

// ---- tests ----

func TestCreateUser(t *testing.T) {
	svc, _ := newFakeService()
	router := newTestRouter(svc, nil)

	t.Run("created", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/users", validBody)
		require.Equal(t, http.StatusCreated, w.Code)

		env := decode[entity.User](t, w)
		assert.True(t, env.Flag)
		assert.Equal(t, application.MsgUserCreated, env.Message)
		assert.Equal(t, "ada@example.com", env.Data.Email)
		assert.NotContains(t, w.Body.String(), "secret1")
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("validation failure", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/users", map[string]any{"userName": "not-an-email", "password": "123"})
		require.Equal(t, http.StatusBadRequest, w.Code)

		env := decode[map[string]string](t, w)
		assert.False(t, env.Flag)
		assert.Equal(t, http.StatusBadRequest, env.Code)
		assert.Equal(t, "Validation failed", env.Message)
		assert.Equal(t, "must be a valid email", env.Data["userName"])
		assert.Equal(t, "must be at least 6 characters long", env.Data["password"])
	})

	t.Run("missing fields", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/users", map[string]any{})
		require.Equal(t, http.StatusBadRequest, w.Code)
		env := decode[map[string]string](t, w)
		assert.Equal(t, "is required", env.Data["userName"])
		assert.Equal(t, "is required", env.Data["password"])
	})

	t.Run("malformed json", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSignupUser(t *testing.T) {
	svc, store := newFakeService()
	router := newTestRouter(svc, nil)

	w := doRequest(router, http.MethodPost, "/api/users/signup", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.Outbox().Messages(), 1)
	assert.Equal(t, "email.signup", store.Outbox().Messages()[0].Channel)
}

func TestGetUser(t *testing.T) {
	svc, _ := newFakeService()
	router := newTestRouter(svc, nil)

	created := decode[entity.User](t, doRequest(router, http.MethodPost, "/api/users", validBody))

	t.Run("found", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/users/"+created.Data.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[*entity.User](t, w)
		require.NotNil(t, env.Data)
		assert.Equal(t, created.Data.ID, env.Data.ID)
		assert.Equal(t, "private, max-age=30", w.Header().Get("Cache-Control"))
	})

	t.Run("absent is a successful null", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/users/"+uuid.NewString(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[*entity.User](t, w)
		assert.True(t, env.Flag)
		assert.Nil(t, env.Data)
	})

	for _, id := range []string{"not-a-uuid", uuid.Nil.String()} {
		t.Run("bad id "+id, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, "/api/users/"+id, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListUsers(t *testing.T) {
	svc, _ := newFakeService()
	router := newTestRouter(svc, nil)
	for i := 0; i < 3; i++ {
		body := map[string]any{"userName": fmt.Sprintf("u%d@example.com", i), "password": "secret1"}
		require.Equal(t, http.StatusCreated, doRequest(router, http.MethodPost, "/api/users", body).Code)
	}

	t.Run("page", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/users?pageNumber=2&pageSize=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[entity.PagedResult[entity.User]](t, w)
		assert.Equal(t, int64(3), env.Data.TotalCount)
		assert.Len(t, env.Data.Items, 1)
	})

	t.Run("defaults", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/users", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[entity.PagedResult[entity.User]](t, w)
		assert.Equal(t, 1, env.Data.PageNumber)
		assert.Equal(t, 10, env.Data.PageSize)
	})

	t.Run("invalid page", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/users?pageNumber=0", nil).Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/users?pageSize=abc", nil).Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/users?pageSize=1000000000", nil).Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/users?pageNumber=4611686018427387905&pageSize=4", nil).Code)
	})

	t.Run("all", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/users/all", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[[]entity.User](t, w)
		assert.Len(t, env.Data, 3)
		assert.Equal(t, application.MsgRecordsFetched, env.Message)
	})
}

func TestStoreFailureIsNotLeaked(t *testing.T) {
	svc, _ := newFakeService()
	svc.listPagedFn = func(int, int) (application.Result[entity.PagedResult[entity.User]], error) {
		return application.Result[entity.PagedResult[entity.User]]{}, fmt.Errorf("count users: %w: dial tcp 10.0.0.5:5432", repository.ErrStore)
	}
	router := newTestRouter(svc, nil)

	w := doRequest(router, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode[any](t, w)
	assert.Equal(t, "internal server error", env.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestUpdateUser(t *testing.T) {
	svc, _ := newFakeService()
	router := newTestRouter(svc, nil)
	created := decode[entity.User](t, doRequest(router, http.MethodPost, "/api/users", validBody))

	t.Run("updated", func(t *testing.T) {
		body := map[string]any{"userName": "grace@example.com", "password": "secret2"}
		w := doRequest(router, http.MethodPut, "/api/users/"+created.Data.ID, body)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[bool](t, w)
		assert.True(t, env.Data)
		assert.Equal(t, application.MsgUserUpdated, env.Message)
	})

	t.Run("not found keeps the 204 envelope on a 404", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/api/users/"+uuid.NewString(), validBody)
		require.Equal(t, http.StatusNotFound, w.Code)
		env := decode[bool](t, w)
		assert.Equal(t, http.StatusNoContent, env.Code)
		assert.Equal(t, "User not found", env.Message)
		assert.False(t, env.Flag)
		assert.False(t, env.Data)
	})

	t.Run("invalid body is rejected before the service", func(t *testing.T) {
		called := false
		svc.updateFn = func(string, application.UserInput) (application.Result[bool], error) {
			called = true
			return application.Result[bool]{}, nil
		}
		defer func() { svc.updateFn = nil }()

		w := doRequest(router, http.MethodPut, "/api/users/"+created.Data.ID, map[string]any{"userName": "x"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
	})
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newFakeService()
	router := newTestRouter(svc, nil)
	created := decode[entity.User](t, doRequest(router, http.MethodPost, "/api/users", validBody))

	w := doRequest(router, http.MethodDelete, "/api/users/"+created.Data.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, application.MsgUserDeleted, decode[bool](t, w).Message)

	w = doRequest(router, http.MethodDelete, "/api/users/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNoContent, decode[bool](t, w).Code)
}

func TestRequestPasswordReset(t *testing.T) {
	svc, store := newFakeService()
	router := newTestRouter(svc, nil)
	created := decode[entity.User](t, doRequest(router, http.MethodPost, "/api/users", validBody))

	t.Run("initiated", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/users/password-reset?userId="+created.Data.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[bool](t, w)
		assert.Equal(t, "Password reset initiated.", env.Message)
		require.Len(t, store.Outbox().Messages(), 1)
		assert.Equal(t, "email.passwordreset", store.Outbox().Messages()[0].Channel)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/users/password-reset?userId="+uuid.NewString(), nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", decode[any](t, w).Message)
	})

	t.Run("missing id", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/users/password-reset", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSearchUsers(t *testing.T) {
	svc, _ := newFakeService()

	t.Run("disabled returns an empty list", func(t *testing.T) {
		w := doRequest(newTestRouter(svc, nil), http.MethodGet, "/api/users/search?q=ada", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[[]map[string]any](t, w)
		assert.NotNil(t, env.Data)
		assert.Empty(t, env.Data)
	})

	t.Run("forwards query and size", func(t *testing.T) {
		s := &fakeSearcher{hits: []map[string]any{{"userName": "ada@example.com"}}}
		w := doRequest(newTestRouter(svc, s), http.MethodGet, "/api/users/search?q=ada&size=5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ada", s.q)
		assert.Equal(t, 5, s.size)
		assert.Len(t, decode[[]map[string]any](t, w).Data, 1)
	})

	t.Run("missing query", func(t *testing.T) {
		w := doRequest(newTestRouter(svc, &fakeSearcher{}), http.MethodGet, "/api/users/search", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("backend failure", func(t *testing.T) {
		s := &fakeSearcher{err: assert.AnError}
		w := doRequest(newTestRouter(svc, s), http.MethodGet, "/api/users/search?q=ada", nil)
		require.Equal(t, http.StatusBadGateway, w.Code)
	})
}

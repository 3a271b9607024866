package internal

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitalvas/routedoc/mux"
	"github.com/vitalvas/routedoc/openapi"
)

// User is the resource served by the demo API.
type User struct {
	ID        string    `json:"id" openapi:"description=User identifier,readOnly"`
	Name      string    `json:"name" openapi:"description=Display name,minLength=1,maxLength=64"`
	Email     string    `json:"email" openapi:"format=email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at" openapi:"readOnly"`
}

// UserInput is the body accepted when creating or replacing a user.
type UserInput struct {
	Name  string `json:"name" openapi:"minLength=1,maxLength=64"`
	Email string `json:"email" openapi:"format=email"`
	Role  *Role  `json:"role,omitempty"`
}

// Role is the access level of a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (Role) EnumValues() []string { return []string{string(RoleAdmin), string(RoleMember)} }

// UserPage is one page of the user listing.
type UserPage struct {
	Items []User `json:"items"`
	Total int    `json:"total"`
}

type userStore struct {
	mu    sync.RWMutex
	users map[string]User
	order []string
}

func newUserStore() *userStore {
	return &userStore{users: make(map[string]User)}
}

// registerDemo mounts the users API on r and documents it on spec.
func registerDemo(r *mux.Router, spec *openapi.Spec) {
	db := newUserStore()

	users := r.Route("/api/v1/users", nil)
	spec.Module(users, "users")

	spec.Doc(users.Get("", db.list), func(b *openapi.OperationBuilder) {
		b.Summary("List users").
			JSONResponse(http.StatusOK, "A page of users", UserPage{})
	})
	spec.Doc(users.Post("", db.create), func(b *openapi.OperationBuilder) {
		b.Summary("Create a user").
			JSONRequest(UserInput{}).
			JSONResponse(http.StatusCreated, "The created user", User{}).
			JSONResponse(http.StatusBadRequest, "Invalid input", openapi.SchemaOf[errorBody]())
	})
	users.Get("/{id}", db.get)
	users.Put("/{id}", db.replace)
	users.Delete("/{id}", db.delete)

	r.Route("/api/v1/search", nil).QueryParam("q", func(q *mux.Node) {
		q.Get("", db.search)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

type errorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	mux.ResponseJSON(w, code, errorBody{Message: msg, Code: strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")})
}

func (s *userStore) list(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := UserPage{Items: make([]User, 0, len(s.order)), Total: len(s.order)}
	for _, id := range s.order {
		page.Items = append(page.Items, s.users[id])
	}
	mux.ResponseJSON(w, http.StatusOK, page)
}

func (s *userStore) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.RLock()
	defer s.mu.RUnlock()

	page := UserPage{Items: []User{}}
	for _, id := range s.order {
		if u := s.users[id]; strings.Contains(strings.ToLower(u.Name), q) {
			page.Items = append(page.Items, u)
		}
	}
	page.Total = len(page.Items)
	mux.ResponseJSON(w, http.StatusOK, page)
}

func (s *userStore) get(w http.ResponseWriter, r *http.Request) {
	id, _ := mux.VarGet(r, "id")

	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	mux.ResponseJSON(w, http.StatusOK, u)
}

func (s *userStore) create(w http.ResponseWriter, r *http.Request) {
	u, ok := decodeUser(w, r)
	if !ok {
		return
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.users[u.ID] = u
	s.order = append(s.order, u.ID)
	s.mu.Unlock()

	mux.ResponseJSON(w, http.StatusCreated, u)
}

func (s *userStore) replace(w http.ResponseWriter, r *http.Request) {
	id, _ := mux.VarGet(r, "id")
	u, ok := decodeUser(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, found := s.users[id]
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	u.ID = id
	u.CreatedAt = old.CreatedAt
	s.users[id] = u
	mux.ResponseJSON(w, http.StatusOK, u)
}

func (s *userStore) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := mux.VarGet(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	delete(s.users, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	w.WriteHeader(http.StatusNoContent)
}

func decodeUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	var in UserInput
	if err := mux.BindJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return User{}, false
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return User{}, false
	}

	role := RoleMember
	if in.Role != nil {
		role = *in.Role
	}
	return User{Name: in.Name, Email: in.Email, Role: role}, true
}

package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/prefkit/errors"
	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/sse"
	"github.com/kbukum/prefkit/uri"
	"github.com/kbukum/prefkit/validation"
	"github.com/kbukum/prefkit/workspace"
)

// Preferences is the engine surface the API serves. *provider.Manager
// satisfies it.
type Preferences interface {
	Resolve(ctx context.Context, name string, resource uri.URI) preference.ResolveResult
	Preferences(ctx context.Context, resource uri.URI) map[string]any
	SetPreference(ctx context.Context, name string, value any, resource uri.URI) bool
	Domain() []string
}

// Roots manages the open workspace folders. *workspace.Service satisfies it.
type Roots interface {
	TryGetRoots() []workspace.Folder
	AddRoot(f workspace.Folder) bool
	RemoveRoot(u uri.URI) bool
}

// API serves preferences, roots and change events.
type API struct {
	prefs Preferences
	roots Roots
	hub   *sse.Hub
	log   *logger.Logger
}

// NewAPI creates the handlers. hub may be nil, which disables /events.
func NewAPI(prefs Preferences, roots Roots, hub *sse.Hub) *API {
	return &API{prefs: prefs, roots: roots, hub: hub, log: logger.Get("api")}
}

// Mount registers the routes on s. The event stream goes on the mux
// directly so its writer can drop the server write deadline.
func (a *API) Mount(s *Server) {
	a.Register(s.GinEngine())
	if a.hub != nil {
		s.Handle("/events", a.EventsHandler())
	}
}

// Register mounts the JSON routes on r.
func (a *API) Register(r gin.IRouter) {
	r.GET("/preferences", a.listPreferences)
	r.GET("/preferences/:name", a.getPreference)
	r.PUT("/preferences/:name", a.setPreference)
	r.DELETE("/preferences/:name", a.deletePreference)
	r.GET("/domain", a.domain)

	r.GET("/roots", a.listRoots)
	r.POST("/roots", a.addRoot)
	r.DELETE("/roots", a.removeRoot)
}

// ResolvedPreference is the body of a single preference lookup.
type ResolvedPreference struct {
	Name      string  `json:"name"`
	Value     any     `json:"value"`
	ConfigURI uri.URI `json:"configUri"`
}

type setRequest struct {
	Value any `json:"value"`
}

type rootRequest struct {
	URI  string `json:"uri" binding:"required"`
	Name string `json:"name"`
}

// request validates the resource query parameter and, when named is set,
// the name path parameter. It writes the error response on failure.
func request(c *gin.Context, named bool) (string, uri.URI, bool) {
	name := c.Param("name")
	v := validation.New().ResourceURI("resource", c.Query("resource"))
	if named {
		v.PreferenceName("name", name)
	}
	if verr := v.Validate(); verr != nil {
		RespondWithError(c, verr)
		return "", uri.URI{}, false
	}
	res, err := uri.Parse(c.Query("resource"))
	if err != nil {
		RespondWithError(c, err)
		return "", uri.URI{}, false
	}
	return name, res, true
}

func (a *API) listPreferences(c *gin.Context) {
	_, res, ok := request(c, false)
	if !ok {
		return
	}
	RespondOK(c, a.prefs.Preferences(c.Request.Context(), res))
}

func (a *API) getPreference(c *gin.Context) {
	name, res, ok := request(c, true)
	if !ok {
		return
	}
	result := a.prefs.Resolve(c.Request.Context(), name, res)
	if !result.Found() {
		RespondWithError(c, errors.NotFound("preference", name))
		return
	}
	RespondOK(c, ResolvedPreference{Name: name, Value: result.Value, ConfigURI: result.ConfigURI})
}

func (a *API) setPreference(c *gin.Context) {
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, errors.InvalidInput("value", err.Error()))
		return
	}
	if req.Value == nil {
		RespondWithError(c, errors.InvalidInput("value", "value is required, use DELETE to remove a preference"))
		return
	}
	a.write(c, req.Value)
}

func (a *API) deletePreference(c *gin.Context) {
	a.write(c, nil)
}

func (a *API) write(c *gin.Context, value any) {
	name, res, ok := request(c, true)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if !a.prefs.SetPreference(ctx, name, value, res) {
		RespondWithError(c, errors.Rejected(name))
		return
	}
	if value == nil {
		RespondNoContent(c)
		return
	}
	result := a.prefs.Resolve(ctx, name, res)
	RespondOK(c, ResolvedPreference{Name: name, Value: result.Value, ConfigURI: result.ConfigURI})
}

func (a *API) domain(c *gin.Context) {
	RespondOK(c, a.prefs.Domain())
}

func (a *API) listRoots(c *gin.Context) {
	RespondOK(c, a.roots.TryGetRoots())
}

func (a *API) addRoot(c *gin.Context) {
	var req rootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, errors.InvalidInput("uri", err.Error()))
		return
	}
	u, err := uri.Parse(req.URI)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	f := workspace.NewFolder(u)
	if req.Name != "" {
		f.Name = req.Name
	}
	if !a.roots.AddRoot(f) {
		c.JSON(http.StatusOK, DataResponse{Data: f})
		return
	}
	a.log.Info("root added", logger.Fields(logger.FieldFolder, u.String()))
	RespondCreated(c, f)
}

func (a *API) removeRoot(c *gin.Context) {
	u, err := uri.Parse(c.Query("uri"))
	if err != nil || u.IsZero() {
		if err == nil {
			err = errors.InvalidInput("uri", "uri is required")
		}
		RespondWithError(c, err)
		return
	}
	if !a.roots.RemoveRoot(u) {
		RespondWithError(c, errors.NotFound("root", u.String()))
		return
	}
	a.log.Info("root removed", logger.Fields(logger.FieldFolder, u.String()))
	RespondNoContent(c)
}

// EventsHandler streams bus topics as server-sent events. Repeat the topic
// query parameter to filter.
func (a *API) EventsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		var opts []sse.ClientOption
		if topics := r.URL.Query()["topic"]; len(topics) > 0 {
			opts = append(opts, sse.WithTopics(topics...))
		}
		sse.ServeSSE(a.hub, w, r, uuid.NewString(), opts...)
	})
}

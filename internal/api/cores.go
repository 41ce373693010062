package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-qsys/internal/bridge"
	"github.com/nerrad567/gray-logic-qsys/internal/qrc"
	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// maxQueryParamLen bounds path and query parameters.
const maxQueryParamLen = 256

// componentSource is the part of *qrc.Core the component routes read.
// Cores in the directory that do not implement it report no components.
type componentSource interface {
	Components() []*qsys.Component
	TryGetComponent(name string) (*qsys.Component, bool)
}

// statsSource is the part of *qrc.Core the cores route reads.
type statsSource interface {
	Stats() qrc.Stats
}

type coreView struct {
	ID         string             `json:"id"`
	Session    *bridge.CoreHealth `json:"session,omitempty"`
	Components int                `json:"components"`
}

type componentView struct {
	Name     string   `json:"name"`
	Controls []string `json:"controls"`
}

type controlView struct {
	Name       string          `json:"name"`
	Subscribed bool            `json:"subscribed"`
	State      *qsys.StateData `json:"state,omitempty"`
}

func (s *Server) handleListCores(w http.ResponseWriter, _ *http.Request) {
	cores := s.directory.Cores()
	views := make([]coreView, 0, len(cores))
	for _, core := range cores {
		v := coreView{ID: core.ID()}
		if src, ok := core.(statsSource); ok {
			h := bridge.NewCoreHealth(src.Stats())
			v.Session = &h
		}
		if src, ok := core.(componentSource); ok {
			v.Components = len(src.Components())
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{
		"cores": views,
		"count": len(views),
	})
}

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	core, ok := s.lookupCore(w, r)
	if !ok {
		return
	}

	var views []componentView
	if src, ok := core.(componentSource); ok {
		for _, comp := range src.Components() {
			views = append(views, componentView{
				Name:     comp.Name(),
				Controls: controlNames(comp),
			})
		}
	}
	if views == nil {
		views = []componentView{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"core":       core.ID(),
		"components": views,
		"count":      len(views),
	})
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	core, ok := s.lookupCore(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "component")
	if name == "" || len(name) > maxQueryParamLen {
		writeBadRequest(w, "invalid component name")
		return
	}

	src, ok := core.(componentSource)
	if !ok {
		writeNotFound(w, "component not found")
		return
	}
	comp, ok := src.TryGetComponent(name)
	if !ok {
		writeNotFound(w, "component not found")
		return
	}

	controls := comp.GetControls()
	views := make([]controlView, 0, len(controls))
	for _, c := range controls {
		v := controlView{Name: c.Name(), Subscribed: c.Subscribed()}
		if state, ok := c.State(); ok {
			v.State = &state
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"core":      core.ID(),
		"component": comp.Name(),
		"controls":  views,
	})
}

// lookupCore resolves {core}, writing the error response on failure.
func (s *Server) lookupCore(w http.ResponseWriter, r *http.Request) (qsys.Core, bool) {
	id := chi.URLParam(r, "core")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid core ID")
		return nil, false
	}
	core, ok := s.directory.Lookup(id)
	if !ok {
		writeNotFound(w, "core not connected")
		return nil, false
	}
	return core, true
}

func controlNames(comp *qsys.Component) []string {
	controls := comp.GetControls()
	names := make([]string, 0, len(controls))
	for _, c := range controls {
		names = append(names, c.Name())
	}
	return names
}

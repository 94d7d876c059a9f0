package web

import (
	"net/http"
	"strconv"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer
}

// HandleCatalog handles GET /capsules: the catalog with install states.
func (h *Handlers) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	state := r.URL.Query().Get("state")

	result, err := ops.Catalog(r.Context(), h.env, ops.CatalogInput{
		Source: source,
		State:  capsule.InstallState(state),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	items := make([]CatalogItem, 0, len(result.Items))
	for _, s := range result.Items {
		items = append(items, CatalogItem{Summary: s, DescriptionHTML: renderMarkdown(s.Description)})
	}

	if source == "" {
		source = capsule.AllSources
	}
	h.renderer.renderPage(w, r, "catalog", CatalogPageData{
		PageData: PageData{
			Title:   "Capsules",
			Version: h.renderer.version,
			Nav:     "capsules",
		},
		Items:     items,
		Sources:   result.Sources,
		Source:    source,
		State:     state,
		Origin:    result.Origin,
		FetchedAt: result.FetchedAt,
		Stale:     result.Stale,
		LastError: result.LastError,
	})
}

// HandleRefresh handles POST /capsules/refresh: refetch the manifest.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Refresh(r.Context(), h.env)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	redirect(w, r, "/capsules")
}

// HandleInstall handles POST /capsules/{id}/install.
func (h *Handlers) HandleInstall(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := ops.Install(r.Context(), h.env, ops.InstallInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondAction(w, r, result.Status, result)
}

// HandleUpdate handles POST /capsules/{id}/update. A form or query value
// force=true reinstalls even when the installed version is current.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	id := r.PathValue("id")
	result, err := ops.Update(r.Context(), h.env, ops.InstallInput{
		ID:    id,
		Force: parseBool(r.FormValue("force")),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondAction(w, r, result.Status, result)
}

// HandleRemove handles DELETE /capsules/{id}.
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := ops.Remove(r.Context(), h.env, ops.RemoveInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondAction(w, r, result.Status, result)
}

// HandleModules handles GET /modules: the dashboard module order.
func (h *Handlers) HandleModules(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListModules(h.env)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderModules(w, r, result.Items)
}

// HandleModuleMove handles POST /modules/{id}/move with direction=up|down.
func (h *Handlers) HandleModuleMove(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	result, err := ops.MoveModule(h.env, ops.MoveModuleInput{
		ID:        r.PathValue("id"),
		Direction: r.FormValue("direction"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	if isPartial(r) {
		h.renderModules(w, r, result.Items)
		return
	}
	http.Redirect(w, r, "/modules", http.StatusFound)
}

// HandleHistory handles GET /history: journaled operations, newest first.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	capsuleID := r.URL.Query().Get("capsule_id")

	result, err := ops.History(r.Context(), h.env, ops.HistoryInput{
		CapsuleID: capsuleID,
		Limit:     parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:    parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "history", HistoryPageData{
		PageData: PageData{
			Title:   "History",
			Version: h.renderer.version,
			Nav:     "history",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		CapsuleID:  capsuleID,
	})
}

func (h *Handlers) renderModules(w http.ResponseWriter, r *http.Request, items []capsule.Module) {
	h.renderer.renderPage(w, r, "modules", ModulesPageData{
		PageData: PageData{
			Title:   "Modules",
			Version: h.renderer.version,
			Nav:     "modules",
		},
		Items: items,
	})
}

// respondAction answers a finished install, update or remove: JSON output,
// a status fragment for partial requests, or a redirect back to the catalog.
func (h *Handlers) respondAction(w http.ResponseWriter, r *http.Request, status ops.Status, result any) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	if isPartial(r) {
		renderStatus(w, status)
		return
	}
	redirect(w, r, "/capsules")
}

// redirect sends browsers back to target after a POST or DELETE.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isPartial(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBool accepts "true" and "1".
func parseBool(s string) bool {
	return s == "true" || s == "1"
}

package ui

import (
	"net/http"
	"strconv"

	"finitefield.org/quran-web/internal/juz"
)

type homeBody struct {
	Lang              string
	Descending        bool
	GridURL           string
	AscendingGridURL  string
	DescendingGridURL string
}

type gridBody struct {
	Lang string
	Grid juz.Grid
}

// Home renders the Juz index shell. The grid itself is loaded as a fragment.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	descending := r.URL.Query().Get("sort") == "desc"
	body := homeBody{
		Lang:              lang,
		Descending:        descending,
		GridURL:           juz.GridURL(descending, 0, 0),
		AscendingGridURL:  juz.GridURL(false, 0, 0),
		DescendingGridURL: juz.GridURL(true, 0, 0),
	}
	h.renderPage(w, r, http.StatusOK, "home", h.bundle.T(lang, "home:title"), body)
}

// JuzGrid renders one window of the Juz grid. The first window comes wrapped
// in the grid container; later windows replace the reveal sentinel.
func (h *Handlers) JuzGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	descending := parseBool(q.Get("desc"))
	columns, _ := strconv.Atoi(q.Get("cols"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	mapping, err := juz.Load(r.Context(), h.juz, descending)
	if err != nil {
		h.fail(w, r, http.StatusBadGateway, err)
		return
	}
	lang := h.lang(r)
	if len(mapping) == 0 {
		h.renderFragment(w, r, http.StatusOK, "juz_empty", nil)
		return
	}

	grid, err := juz.BuildGrid(mapping, descending, columns, offset, juz.Deps{Chapters: h.chapters, Bundle: h.bundle, Lang: lang})
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	fragment := "juz_grid"
	if grid.Offset > 0 {
		fragment = "juz_rows"
	}
	h.renderFragment(w, r, http.StatusOK, fragment, gridBody{Lang: lang, Grid: grid})
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

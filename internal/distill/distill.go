// Package distill renders the community site into a static, servable file
// tree: templated pages from store state, plus the collected assets.
package distill

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/models"
	"github.com/li-boxuan/community/pkg/store"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Distiller renders the static site
type Distiller struct {
	store     store.Store
	logger    *logging.Logger
	templates *template.Template
	org       string
}

// New creates a distiller
func New(st store.Store, logger *logging.Logger, org string) (*Distiller, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Distiller{
		store:     st,
		logger:    logger,
		templates: templates,
		org:       org,
	}, nil
}

// pageData feeds the site templates
type pageData struct {
	Org          string
	GeneratedAt  time.Time
	Participants []*models.Participant
}

// Render distills the site into publicDir. siteDir supplies the collected
// static assets. force removes any existing publicDir first; without it an
// existing tree is refreshed in place.
func (d *Distiller) Render(publicDir, siteDir string, force bool) error {
	if force {
		if err := os.RemoveAll(publicDir); err != nil {
			return fmt.Errorf("failed to clear %s: %w", publicDir, err)
		}
	}
	if err := os.MkdirAll(publicDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", publicDir, err)
	}

	participants, err := Rankings(d.store)
	if err != nil {
		return err
	}

	data := pageData{
		Org:          d.org,
		GeneratedAt:  time.Now().UTC(),
		Participants: participants,
	}

	if err := d.renderPage("index.html.tmpl", filepath.Join(publicDir, "index.html"), data); err != nil {
		return err
	}
	metaDir := filepath.Join(publicDir, "meta-review")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return err
	}
	if err := d.renderPage("meta_review.html.tmpl", filepath.Join(metaDir, "index.html"), data); err != nil {
		return err
	}

	// Bring the collected assets along when they exist
	staticSrc := filepath.Join(siteDir, "static")
	if _, err := os.Stat(staticSrc); err == nil {
		if _, err := copyTree(staticSrc, filepath.Join(publicDir, "static")); err != nil {
			return fmt.Errorf("failed to copy static assets: %w", err)
		}
	}

	d.logger.Info("site distilled", map[string]interface{}{
		"public": publicDir, "participants": len(participants),
	})
	return nil
}

func (d *Distiller) renderPage(name, target string, data pageData) error {
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if err := d.templates.ExecuteTemplate(f, name, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return f.Close()
}

// Rankings returns all ranked participants ordered by rank, then score.
// Participants never ranked are left out, they have not taken part yet.
func Rankings(st store.Store) ([]*models.Participant, error) {
	all, err := st.GetAllParticipants()
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	ranked := make([]*models.Participant, 0, len(all))
	for _, p := range all {
		if p.Active() {
			ranked = append(ranked, p)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Rank != ranked[j].Rank {
			return ranked[i].Rank < ranked[j].Rank
		}
		return ranked[i].Login < ranked[j].Login
	})
	return ranked, nil
}

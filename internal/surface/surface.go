// Package surface is the minimal rendering target for wiki cards.
//
// The core never depends on a UI toolkit. Front ends implement Surface;
// Terminal draws with lipgloss and Noop discards everything for headless runs.
package surface

import (
	"fmt"
	"strings"

	"github.com/starford/wikifeed/internal/models"
)

// Surface receives render calls.
type Surface interface {
	// Container groups the calls made by body under a title.
	Container(title string, body func(Surface))
	Text(text string)
	Metric(label, value string)
	Button(label, actionID string)
	Progress(label string, percent int)
}

// Noop discards every call. Container still runs its body.
type Noop struct{}

func (Noop) Container(_ string, body func(Surface)) {
	if body != nil {
		body(Noop{})
	}
}
func (Noop) Text(string)           {}
func (Noop) Metric(string, string) {}
func (Noop) Button(string, string) {}
func (Noop) Progress(string, int)  {}

// RenderCard draws one card.
func RenderCard(s Surface, c models.Card) {
	title := strings.TrimSpace(c.IconTag + " " + c.Title)
	if c.Status != models.StatusSuccess {
		s.Container(title, func(s Surface) {
			s.Text(c.Summary)
		})
		return
	}
	s.Container(title, func(s Surface) {
		s.Text(c.Summary)
		s.Metric("Priority", string(c.Priority))
		s.Metric("Read time", c.ContentStats.ReadTime)
		s.Metric("Features", fmt.Sprintf("%d", c.ContentStats.FeatureCount))
		s.Progress("Engagement "+c.EngagementLabel, c.EngagementScore)
		for _, a := range c.Actions {
			s.Button(a.Icon+" "+a.Label, a.ActionID)
		}
	})
}

// RenderTimeline draws cards in the given order.
func RenderTimeline(s Surface, cards []models.Card) {
	if len(cards) == 0 {
		s.Text("No wiki pages yet.")
		return
	}
	for _, c := range cards {
		RenderCard(s, c)
	}
}

// RenderStats draws the header summary.
func RenderStats(s Surface, st models.StatsSummary) {
	s.Container("Wiki", func(s Surface) {
		s.Metric("Pages", fmt.Sprintf("%d", st.TotalPages))
		s.Metric("Features", fmt.Sprintf("%d", st.TotalFeatures))
		s.Metric("Status", st.Status)
	})
}

// RenderRoadmap draws each phase with its progress.
func RenderRoadmap(s Surface, phases []models.Phase) {
	s.Container("Roadmap", func(s Surface) {
		for _, p := range phases {
			s.Progress(fmt.Sprintf("%s (%s)", p.Phase, p.Status), p.Progress)
			if len(p.Features) > 0 {
				s.Text(strings.Join(p.Features, ", "))
			}
		}
	})
}

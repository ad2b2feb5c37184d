package source

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/id/uuid"
)

// channels serves a static list of live HLS channels.
type channels struct {
	name  string
	items []content.CandidateItem
}

func newChannels(spec Spec, ids *uuid.Generator) *channels {
	kind := spec.probeKind(content.ProbeStreamManifest)
	items := lo.FilterMap(spec.Channels, func(ch Channel, _ int) (content.CandidateItem, bool) {
		link := strings.TrimSpace(ch.URL)
		if link == "" {
			return content.CandidateItem{}, false
		}
		group := ch.Group
		if group == "" {
			group = "News"
		}
		item := content.CandidateItem{
			ID:           ids.ItemID(spec.Name, link),
			Title:        ch.Name + " Live",
			Description:  content.Ptr(group),
			StreamURLs:   []string{link},
			DownloadURLs: []string{},
			Quality:      []string{"Live HD"},
			Genre:        []string{group},
			Language:     []string{"en"},
			StreamKind:   kind,
		}
		if ch.Logo != "" {
			item.ImageURL = content.Ptr(ch.Logo)
		}
		return item, true
	})
	return &channels{name: spec.Name, items: items}
}

func (c *channels) Name() string { return c.name }

// List returns a copy of the configured channels.
func (c *channels) List(context.Context) ([]content.CandidateItem, error) {
	return append([]content.CandidateItem(nil), c.items...), nil
}

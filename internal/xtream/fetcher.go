package xtream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"telecast/models"
)

// Fetcher builds per-source clients on demand and normalizes provider
// records into catalog shapes. It satisfies the channel and guide fetch
// interfaces consumed by the catalog and EPG services.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(httpClient *http.Client) *Fetcher {
	return &Fetcher{client: httpClient}
}

// Channels fetches and normalizes the live channel list for one source.
// Category names become group titles; provider channel numbers drive the
// per-source sort order.
func (f *Fetcher) Channels(ctx context.Context, src models.Source) ([]models.Channel, error) {
	if src.Type != models.SourceTypeXtream {
		return nil, fmt.Errorf("unsupported source type %q", src.Type)
	}

	client := NewClient(src, f.client)

	groupNames := make(map[string]string)
	categories, err := client.LiveCategories(ctx)
	if err != nil {
		// Channel list is still usable without group titles.
		groupNames = nil
	} else {
		for _, cat := range categories {
			groupNames[cat.CategoryID] = cat.CategoryName
		}
	}

	streams, err := client.LiveStreams(ctx)
	if err != nil {
		return nil, err
	}

	channels := make([]models.Channel, 0, len(streams))
	for _, stream := range streams {
		streamID := stream.StreamID.String()
		if streamID == "" {
			continue
		}

		// Providers expose both an internal channel number and a stream
		// id; keep the number as the primary id so either key resolves.
		id := stream.Num.String()
		if id == "" {
			id = streamID
		}

		ch := models.Channel{
			ID:           id,
			SourceID:     src.ID,
			StreamID:     streamID,
			Name:         stream.Name,
			LogoURL:      stream.StreamIcon,
			CategoryID:   stream.CategoryID,
			EPGChannelID: stream.EPGChannelID,
		}
		if n, err := stream.Num.Int64(); err == nil {
			ch.SortOrder = int(n)
		}
		if groupNames != nil {
			ch.GroupTitle = groupNames[stream.CategoryID]
		}
		channels = append(channels, ch)
	}

	sort.SliceStable(channels, func(i, j int) bool {
		return channels[i].SortOrder < channels[j].SortOrder
	})

	return channels, nil
}

// Guide fetches the XMLTV document for one source.
func (f *Fetcher) Guide(ctx context.Context, src models.Source) (io.ReadCloser, error) {
	if src.Type != models.SourceTypeXtream {
		return nil, fmt.Errorf("unsupported source type %q", src.Type)
	}
	return NewClient(src, f.client).Guide(ctx)
}

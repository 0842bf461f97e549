package search

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

// Commons searches Wikimedia Commons for image files.
type Commons struct {
	Client
	BaseURL string // defaults to https://commons.wikimedia.org/w/api.php
}

func (c *Commons) Name() string { return "commons" }

// ImageSearch implements ImageProvider.
func (c *Commons) ImageSearch(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = 4
	}
	base := c.BaseURL
	if base == "" {
		base = "https://commons.wikimedia.org/w/api.php"
	}
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"generator":     {"search"},
		"gsrsearch":     {"filetype:bitmap " + query},
		"gsrnamespace":  {"6"},
		"gsrlimit":      {strconv.Itoa(maxResults)},
		"prop":          {"imageinfo"},
		"iiprop":        {"url"},
	}

	body, err := c.get(ctx, base+"?"+params.Encode(), "application/json")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("commons: invalid JSON response")
	}

	type ranked struct {
		index int64
		url   string
	}
	var found []ranked
	gjson.GetBytes(body, "query.pages").ForEach(func(_, page gjson.Result) bool {
		if u := page.Get("imageinfo.0.url").String(); u != "" {
			found = append(found, ranked{index: page.Get("index").Int(), url: u})
		}
		return true
	})
	sort.SliceStable(found, func(i, j int) bool { return found[i].index < found[j].index })

	urls := make([]string, 0, len(found))
	for _, f := range found {
		if len(urls) == maxResults {
			break
		}
		urls = append(urls, f.url)
	}
	return urls, nil
}

package urlsource

import "github.com/tsilvers/newsdesk/internal/remoteapi"

// specialFeeds are synthesized query feeds every remote-backed account
// gets, gated by Config.Remote.IncludeSpecialFeeds.
var specialFeeds = []Subscription{
	{URL: "query:starred:flags # \"*\"", Tags: []string{"~Starred"}},
	{URL: "query:shared:flags # \"S\"", Tags: []string{"~Shared"}},
}

// RemoteProvider delegates subscription discovery to a Remote API client.
// It is read-only: the server is the source of truth for the list.
type RemoteProvider struct {
	Client              remoteapi.SubscriptionLister
	IncludeSpecialFeeds bool
}

func (p *RemoteProvider) Load() (*Result, error) {
	remote, err := p.Client.ListSubscriptions()
	if err != nil {
		return nil, err
	}

	subs := make([]Subscription, 0, len(remote)+len(specialFeeds))
	if p.IncludeSpecialFeeds {
		subs = append(subs, specialFeeds...)
	}
	for _, r := range remote {
		subs = append(subs, Subscription{URL: r.RSSURL, Tags: r.Tags})
	}

	return newResult(subs), nil
}

func (p *RemoteProvider) Write(urls []Subscription) error {
	// Remote-managed subscriptions are read-only from this side.
	return nil
}

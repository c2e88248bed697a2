package collector

import "github.com/gauthierbraillon/moltwatch/internal/moltbook"

// PullKind distinguishes the three kinds of upstream call.
type PullKind int

const (
	KindGlobal PullKind = iota
	KindChannel
	KindInfo
)

// Pull describes one upstream call. Each pull carries everything needed to
// issue it, so pulls can run in any order.
type Pull struct {
	Kind    PullKind
	Channel string
	Sort    string
	Limit   int
}

// Path returns the API path the pull requests.
func (p Pull) Path() string {
	switch p.Kind {
	case KindGlobal:
		return moltbook.GlobalNewPath(p.Limit)
	case KindInfo:
		return moltbook.ChannelsPath
	default:
		return moltbook.ChannelFeedPath(p.Channel, p.Sort, p.Limit)
	}
}

// Label names the pull's scope for logs.
func (p Pull) Label() string {
	if p.Kind == KindGlobal {
		return "(global)"
	}
	return p.Channel
}

// Plan lists the pulls of one run: the global new feed, then the hot feed,
// new feed and metadata of each channel.
func Plan(cfg Config) []Pull {
	cfg = cfg.withDefaults()
	pulls := make([]Pull, 0, 1+3*len(cfg.Channels))
	pulls = append(pulls, Pull{Kind: KindGlobal, Sort: moltbook.SortNew, Limit: cfg.GlobalLimit})
	for _, ch := range cfg.Channels {
		pulls = append(pulls, Pull{Kind: KindChannel, Channel: ch, Sort: moltbook.SortHot, Limit: cfg.ChannelLimit})
	}
	for _, ch := range cfg.Channels {
		pulls = append(pulls, Pull{Kind: KindChannel, Channel: ch, Sort: moltbook.SortNew, Limit: cfg.ChannelLimit})
	}
	for _, ch := range cfg.Channels {
		pulls = append(pulls, Pull{Kind: KindInfo, Channel: ch})
	}
	return pulls
}

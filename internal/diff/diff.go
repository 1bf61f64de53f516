// Package diff computes page and insight level differences between two
// snapshots of a website and scores a website against its competitors.
package diff

import (
	"sort"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// DefaultWordCountThreshold is the word-count delta at or below which a
// modified page's word count is treated as noise.
const DefaultWordCountThreshold = 50

// Options tunes how two snapshots are compared.
type Options struct {
	WordCountThreshold int
	// Weights multiplies insight changes per bucket when counting
	// improvements and regressions. Missing buckets weigh zero.
	Weights map[entity.InsightBucket]int
}

func DefaultOptions() Options {
	return Options{
		WordCountThreshold: DefaultWordCountThreshold,
		Weights: map[entity.InsightBucket]int{
			entity.BucketImmediate:      1,
			entity.BucketNeedsAttention: 1,
			entity.BucketGoodPractice:   0,
		},
	}
}

// Compare diffs the pages of a baseline and a current snapshot. The result
// does not depend on input order, and swapping the arguments swaps
// added/removed and improvements/regressions.
func Compare(baseline, current []*entity.PageRecord, opts Options) *entity.Comparison {
	before := byURL(baseline)
	after := byURL(current)

	cmp := &entity.Comparison{
		PageChanges:    []entity.PageChange{},
		InsightChanges: []entity.InsightChange{},
	}

	for _, u := range unionKeys(before, after) {
		old, inOld := before[u]
		cur, inCur := after[u]

		switch {
		case inOld && inCur:
			if old.ContentHash != cur.ContentHash {
				cmp.PagesModified++
				cmp.PageChanges = append(cmp.PageChanges, entity.PageChange{
					URL:        u,
					ChangeType: entity.ChangeModified,
					Changes:    pageDetail(old, cur, opts.WordCountThreshold),
				})
			}
			if ic, ok := insightChange(u, old.Insights, cur.Insights); ok {
				cmp.InsightChanges = append(cmp.InsightChanges, ic)
				tally(cmp, ic, opts.Weights)
			}
		case inCur:
			cmp.PagesAdded++
			cmp.PageChanges = append(cmp.PageChanges, entity.PageChange{URL: u, ChangeType: entity.ChangeAdded})
		default:
			cmp.PagesRemoved++
			cmp.PageChanges = append(cmp.PageChanges, entity.PageChange{URL: u, ChangeType: entity.ChangeRemoved})
		}
	}
	return cmp
}

func tally(cmp *entity.Comparison, ic entity.InsightChange, weights map[entity.InsightBucket]int) {
	for bucket, change := range ic.Changes {
		w := weights[bucket]
		if bucket.Negative() {
			cmp.SEOImprovements += w * len(change.Removed)
			cmp.SEORegressions += w * len(change.Added)
			cmp.ResolvedIssues += len(change.Removed)
			cmp.NewIssues += len(change.Added)
			continue
		}
		cmp.SEOImprovements += w * len(change.Added)
		cmp.SEORegressions += w * len(change.Removed)
	}
}

func pageDetail(old, cur *entity.PageRecord, threshold int) *entity.PageDetail {
	d := &entity.PageDetail{}
	if old.Title != cur.Title {
		d.Title = &entity.TextChange{Old: old.Title, New: cur.Title}
	}
	if old.MetaDescription != cur.MetaDescription {
		d.MetaDescription = &entity.TextChange{Old: old.MetaDescription, New: cur.MetaDescription}
	}
	if delta := cur.WordCount - old.WordCount; abs(delta) > threshold {
		d.WordCount = &entity.CountChange{Old: old.WordCount, New: cur.WordCount, Change: delta}
	}
	if sc, ok := setChange(old.H1Tags, cur.H1Tags); ok {
		d.H1Tags = &sc
	}
	if sc, ok := setChange(old.H2Tags, cur.H2Tags); ok {
		d.H2Tags = &sc
	}
	return d
}

func insightChange(u string, old, cur entity.Insights) (entity.InsightChange, bool) {
	changes := map[entity.InsightBucket]entity.SetChange{}
	for _, bucket := range entity.InsightBuckets {
		if sc, ok := setChange(old[bucket], cur[bucket]); ok {
			changes[bucket] = sc
		}
	}
	if len(changes) == 0 {
		return entity.InsightChange{}, false
	}
	return entity.InsightChange{URL: u, Changes: changes}, true
}

// setChange returns the sorted set differences of two string lists.
func setChange(old, cur []string) (entity.SetChange, bool) {
	oldSet := toSet(old)
	curSet := toSet(cur)
	sc := entity.SetChange{Added: []string{}, Removed: []string{}}
	for s := range curSet {
		if !oldSet[s] {
			sc.Added = append(sc.Added, s)
		}
	}
	for s := range oldSet {
		if !curSet[s] {
			sc.Removed = append(sc.Removed, s)
		}
	}
	sort.Strings(sc.Added)
	sort.Strings(sc.Removed)
	return sc, len(sc.Added) > 0 || len(sc.Removed) > 0
}

func byURL(pages []*entity.PageRecord) map[string]*entity.PageRecord {
	m := make(map[string]*entity.PageRecord, len(pages))
	for _, p := range pages {
		m[p.URL] = p
	}
	return m
}

func unionKeys(a, b map[string]*entity.PageRecord) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

package entity

import "sort"

// InsightBucket is a severity class for SEO findings.
type InsightBucket string

const (
	BucketImmediate      InsightBucket = "Immediate Action Required"
	BucketNeedsAttention InsightBucket = "Needs Attention"
	BucketGoodPractice   InsightBucket = "Good Practice"
)

// InsightBuckets lists every bucket in severity order.
var InsightBuckets = []InsightBucket{BucketImmediate, BucketNeedsAttention, BucketGoodPractice}

// Negative reports whether findings in the bucket are problems.
func (b InsightBucket) Negative() bool {
	return b == BucketImmediate || b == BucketNeedsAttention
}

// Insights maps each bucket to its finding messages.
type Insights map[InsightBucket][]string

// NewInsights returns Insights with every bucket present and empty.
func NewInsights() Insights {
	in := make(Insights, len(InsightBuckets))
	for _, b := range InsightBuckets {
		in[b] = []string{}
	}
	return in
}

// Total counts the findings across all buckets.
func (in Insights) Total() int {
	n := 0
	for _, msgs := range in {
		n += len(msgs)
	}
	return n
}

// Messages returns the sorted, de-duplicated messages of one bucket.
func (in Insights) Messages(b InsightBucket) []string {
	seen := make(map[string]struct{}, len(in[b]))
	out := make([]string, 0, len(in[b]))
	for _, m := range in[b] {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

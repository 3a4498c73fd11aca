package domain

import "time"

// ThrottlePolicy limits how many reports of the same failure are emitted
// per time bucket.
type ThrottlePolicy struct {
	// Key groups failures explicitly. Empty means a fingerprint of the
	// failure's kind, message and stack.
	Key string `yaml:"key"`
	// Period is the bucket width. Sub-second periods count as one second.
	Period time.Duration `yaml:"period"`
	// Limit is the maximum number of reports per key per bucket.
	Limit int `yaml:"limit"`
}

// PeriodSeconds returns the bucket width in whole seconds, at least 1.
func (p ThrottlePolicy) PeriodSeconds() int64 {
	secs := int64(p.Period / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// BucketStart returns floor(now / period) * period in unix seconds.
func (p ThrottlePolicy) BucketStart(now time.Time) int64 {
	period := p.PeriodSeconds()
	unix := now.Unix()
	bucket := unix / period
	if unix < 0 && unix%period != 0 {
		bucket--
	}
	return bucket * period
}

// Package trends projects activity rows into daily and weekly buckets
// with continuous, gap-filled timelines per requested range. Strictly
// read-side; it never writes.
package trends

import (
	"sort"
	"strings"
	"time"

	"github.com/philippe-ths/ai-running-coach/pkg/store"
)

// Range keys and their windows in days. ALL is unbounded.
var rangeDays = map[string]int{
	"7D": 7, "30D": 30, "3M": 90, "6M": 180, "1Y": 365,
}

// DefaultRange is used when the request names no range.
const DefaultRange = "30D"

// DailyPoint is one day of a continuous series.
type DailyPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// WeeklyPoint is one ISO week (keyed by its Monday) of a continuous series.
type WeeklyPoint struct {
	WeekStart string  `json:"week_start"`
	Value     float64 `json:"value"`
}

// ZoneLoadPoint is a 3-bucket zone collapse for one day or week.
type ZoneLoadPoint struct {
	Date        string  `json:"date"`
	EasyMin     float64 `json:"easy_min"`
	ModerateMin float64 `json:"moderate_min"`
	HardMin     float64 `json:"hard_min"`
}

// EfficiencyPoint is speed per heartbeat for one qualifying activity.
type EfficiencyPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"` // m/s/bpm
}

// PacePoint is a distance-weighted daily pace for run/walk activities.
type PacePoint struct {
	Date       string  `json:"date"`
	PaceSPerKM float64 `json:"pace_s_per_km"`
}

// PeriodSummary aggregates one time window.
type PeriodSummary struct {
	ActivityCount       int     `json:"activity_count"`
	TotalDistanceM      float64 `json:"total_distance_m"`
	TotalMovingTimeS    float64 `json:"total_moving_time_s"`
	TotalElevationGainM float64 `json:"total_elevation_gain_m"`
	TotalEffort         float64 `json:"total_effort"`
}

// Response is the full trends projection for one range.
type Response struct {
	Range                string            `json:"range"`
	Since                *string           `json:"since"`
	ActivityCount        int               `json:"activity_count"`
	DailyDistanceM       []DailyPoint      `json:"daily_distance_m"`
	DailyMovingTimeS     []DailyPoint      `json:"daily_moving_time_s"`
	WeeklyDistanceM      []WeeklyPoint     `json:"weekly_distance_m"`
	WeeklyMovingTimeS    []WeeklyPoint     `json:"weekly_moving_time_s"`
	WeeklyElevationGainM []WeeklyPoint     `json:"weekly_elevation_gain_m"`
	WeeklyEffort         []WeeklyPoint     `json:"weekly_effort"`
	DailySufferScore     []DailyPoint      `json:"daily_suffer_score"`
	ZoneLoadWeekly       []ZoneLoadPoint   `json:"zone_load_weekly"`
	ZoneLoadDaily        []ZoneLoadPoint   `json:"zone_load_daily"`
	EfficiencyTrend      []EfficiencyPoint `json:"efficiency_trend"`
	PaceTrend            []PacePoint       `json:"pace_trend"`
	PreviousPeriod       *PeriodSummary    `json:"previous_period"`
}

// Aggregator builds trend projections from stored activities with
// eagerly-loaded metrics.
type Aggregator struct {
	store *store.Store
}

// NewAggregator builds a trends aggregator over the store.
func NewAggregator(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Build computes the projection for one user, range key and optional type
// filter (matched on effective type, lowercase).
func (ag *Aggregator) Build(userID, rangeKey string, typeFilter []string, now time.Time) (*Response, error) {
	rangeKey = strings.ToUpper(strings.TrimSpace(rangeKey))
	if rangeKey == "" {
		rangeKey = DefaultRange
	}
	days, bounded := rangeDays[rangeKey]
	if !bounded && rangeKey != "ALL" {
		rangeKey = DefaultRange
		days, bounded = rangeDays[rangeKey], true
	}

	today := dateOf(now)
	var since *time.Time
	if bounded {
		s := today.AddDate(0, 0, -days)
		since = &s
	}

	rows, err := ag.store.ListWithMetrics(userID, since)
	if err != nil {
		return nil, err
	}
	rows = filterByType(rows, typeFilter)

	resolvedSince := today
	if since != nil {
		resolvedSince = *since
	} else if len(rows) > 0 {
		resolvedSince = dateOf(rows[0].Activity.StartDate)
	}

	resp := &Response{
		Range:         rangeKey,
		ActivityCount: len(rows),
	}
	if bounded {
		s := dateKey(resolvedSince)
		resp.Since = &s
	}

	daily := newDailyFacts(rows)
	resp.DailyDistanceM = continuousDaily(daily, resolvedSince, today, func(f *dayFacts) float64 { return f.distanceM })
	resp.DailyMovingTimeS = continuousDaily(daily, resolvedSince, today, func(f *dayFacts) float64 { return f.movingS })
	resp.DailySufferScore = continuousDaily(daily, resolvedSince, today, func(f *dayFacts) float64 { return f.suffer })

	resp.WeeklyDistanceM = continuousWeekly(daily, resolvedSince, today, func(f *dayFacts) float64 { return f.distanceM })
	resp.WeeklyMovingTimeS = continuousWeekly(daily, resolvedSince, today, func(f *dayFacts) float64 { return f.movingS })
	resp.WeeklyElevationGainM = continuousWeekly(daily, resolvedSince, today, func(f *dayFacts) float64 { return f.elevationM })
	resp.WeeklyEffort = continuousWeekly(daily, resolvedSince, today, func(f *dayFacts) float64 { return f.effort })

	resp.ZoneLoadDaily = zoneLoadDaily(daily, resolvedSince, today)
	resp.ZoneLoadWeekly = zoneLoadWeekly(daily, resolvedSince, today)
	resp.EfficiencyTrend = efficiencyTrend(rows)
	resp.PaceTrend = paceTrend(rows)

	if bounded {
		prevFrom := resolvedSince.AddDate(0, 0, -days)
		prev, err := ag.store.ListWithMetricsBetween(userID, prevFrom, resolvedSince)
		if err != nil {
			return nil, err
		}
		prev = filterByType(prev, typeFilter)
		resp.PreviousPeriod = summarize(prev)
	}

	return resp, nil
}

// DistinctTypes lists the effective types seen across the user's
// activities, lowercase, alphabetically.
func (ag *Aggregator) DistinctTypes(userID string) ([]string, error) {
	rows, err := ag.store.ListWithMetrics(userID, nil)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for i := range rows {
		seen[strings.ToLower(rows[i].Activity.EffectiveType())] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// dayFacts are the per-local-date sums.
type dayFacts struct {
	distanceM  float64
	movingS    float64
	elevationM float64
	effort     float64
	suffer     float64
	zoneEasyS  float64
	zoneModS   float64
	zoneHardS  float64
}

func newDailyFacts(rows []store.ActivityWithMetric) map[string]*dayFacts {
	daily := make(map[string]*dayFacts)
	for i := range rows {
		a := &rows[i].Activity
		key := dateKey(dateOf(a.StartDate))
		f := daily[key]
		if f == nil {
			f = &dayFacts{}
			daily[key] = f
		}
		f.distanceM += float64(a.DistanceM)
		f.movingS += float64(a.MovingTimeS)
		f.elevationM += a.ElevationGainM
		if a.SufferScore != nil {
			f.suffer += *a.SufferScore
		}
		if m := rows[i].Metric; m != nil {
			f.effort += m.EffortScore
			if m.TimeInZones != nil {
				f.zoneEasyS += float64(m.TimeInZones["Z1"] + m.TimeInZones["Z2"])
				f.zoneModS += float64(m.TimeInZones["Z3"])
				f.zoneHardS += float64(m.TimeInZones["Z4"] + m.TimeInZones["Z5"])
			}
		}
	}
	return daily
}

func continuousDaily(daily map[string]*dayFacts, since, today time.Time, pick func(*dayFacts) float64) []DailyPoint {
	var out []DailyPoint
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		var v float64
		if f := daily[dateKey(d)]; f != nil {
			v = pick(f)
		}
		out = append(out, DailyPoint{Date: dateKey(d), Value: v})
	}
	return out
}

func continuousWeekly(daily map[string]*dayFacts, since, today time.Time, pick func(*dayFacts) float64) []WeeklyPoint {
	sums := weeklySums(daily, pick)
	var out []WeeklyPoint
	for w := mondayOf(since); !w.After(mondayOf(today)); w = w.AddDate(0, 0, 7) {
		out = append(out, WeeklyPoint{WeekStart: dateKey(w), Value: sums[dateKey(w)]})
	}
	return out
}

func weeklySums(daily map[string]*dayFacts, pick func(*dayFacts) float64) map[string]float64 {
	sums := make(map[string]float64)
	for key, f := range daily {
		d, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		sums[dateKey(mondayOf(d))] += pick(f)
	}
	return sums
}

func zoneLoadDaily(daily map[string]*dayFacts, since, today time.Time) []ZoneLoadPoint {
	var out []ZoneLoadPoint
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		p := ZoneLoadPoint{Date: dateKey(d)}
		if f := daily[dateKey(d)]; f != nil {
			p.EasyMin = f.zoneEasyS / 60
			p.ModerateMin = f.zoneModS / 60
			p.HardMin = f.zoneHardS / 60
		}
		out = append(out, p)
	}
	return out
}

func zoneLoadWeekly(daily map[string]*dayFacts, since, today time.Time) []ZoneLoadPoint {
	easy := weeklySums(daily, func(f *dayFacts) float64 { return f.zoneEasyS })
	moderate := weeklySums(daily, func(f *dayFacts) float64 { return f.zoneModS })
	hard := weeklySums(daily, func(f *dayFacts) float64 { return f.zoneHardS })

	var out []ZoneLoadPoint
	for w := mondayOf(since); !w.After(mondayOf(today)); w = w.AddDate(0, 0, 7) {
		key := dateKey(w)
		out = append(out, ZoneLoadPoint{
			Date:        key,
			EasyMin:     easy[key] / 60,
			ModerateMin: moderate[key] / 60,
			HardMin:     hard[key] / 60,
		})
	}
	return out
}

func efficiencyTrend(rows []store.ActivityWithMetric) []EfficiencyPoint {
	var out []EfficiencyPoint
	for i := range rows {
		a := &rows[i].Activity
		if a.DistanceM < 1000 || a.AverageHR == nil || *a.AverageHR < 1 || a.MovingTimeS <= 0 {
			continue
		}
		speed := float64(a.DistanceM) / float64(a.MovingTimeS)
		out = append(out, EfficiencyPoint{
			Date:  dateKey(dateOf(a.StartDate)),
			Value: speed / *a.AverageHR,
		})
	}
	return out
}

// paceTrend emits a distance-weighted daily pace for run and walk
// activities; days without qualifying movement are skipped.
func paceTrend(rows []store.ActivityWithMetric) []PacePoint {
	type sums struct{ distanceM, movingS float64 }
	byDay := map[string]*sums{}
	var order []string
	for i := range rows {
		a := &rows[i].Activity
		t := strings.ToLower(a.EffectiveType())
		if !strings.Contains(t, "run") && !strings.Contains(t, "walk") {
			continue
		}
		if a.MovingTimeS <= 0 || a.DistanceM <= 0 {
			continue
		}
		key := dateKey(dateOf(a.StartDate))
		s := byDay[key]
		if s == nil {
			s = &sums{}
			byDay[key] = s
			order = append(order, key)
		}
		s.distanceM += float64(a.DistanceM)
		s.movingS += float64(a.MovingTimeS)
	}

	sort.Strings(order)
	var out []PacePoint
	for _, key := range order {
		s := byDay[key]
		out = append(out, PacePoint{
			Date:       key,
			PaceSPerKM: s.movingS / (s.distanceM / 1000),
		})
	}
	return out
}

func summarize(rows []store.ActivityWithMetric) *PeriodSummary {
	summary := &PeriodSummary{ActivityCount: len(rows)}
	for i := range rows {
		a := &rows[i].Activity
		summary.TotalDistanceM += float64(a.DistanceM)
		summary.TotalMovingTimeS += float64(a.MovingTimeS)
		summary.TotalElevationGainM += a.ElevationGainM
		if m := rows[i].Metric; m != nil {
			summary.TotalEffort += m.EffortScore
		}
	}
	return summary
}

func filterByType(rows []store.ActivityWithMetric, typeFilter []string) []store.ActivityWithMetric {
	if len(typeFilter) == 0 {
		return rows
	}
	wanted := make(map[string]bool, len(typeFilter))
	for _, t := range typeFilter {
		wanted[strings.ToLower(strings.TrimSpace(t))] = true
	}
	var out []store.ActivityWithMetric
	for i := range rows {
		if wanted[strings.ToLower(rows[i].Activity.EffectiveType())] {
			out = append(out, rows[i])
		}
	}
	return out
}

// dateOf truncates a timezone-aware instant to its local calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// mondayOf returns the ISO-week Monday of the given date.
func mondayOf(t time.Time) time.Time {
	d := dateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

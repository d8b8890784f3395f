package monitor

import (
	"sort"
	"time"
)

// DeviceSummary is the dashboard listing row for one logical device. When
// several registered IDs share a deviceName they are merged into a single
// summary: counts summed, protocols and IPs unioned, LastSeen taken as the
// latest.
type DeviceSummary struct {
	ID                 string        `json:"id"`
	Username           string        `json:"username"`
	DeviceName         string        `json:"deviceName"`
	Status             Status        `json:"status"`
	LastSeen           time.Time     `json:"lastSeen"`
	RegisteredAt       time.Time     `json:"registeredAt"`
	ConnectionCount    int           `json:"connectionCount"`
	MeterReadingCount  int           `json:"meterReadingCount"`
	Protocols          []Protocol    `json:"protocols"`
	UniqueIPs          []string      `json:"uniqueIps"`
	LatestMeterReading *MeterReading `json:"latestMeterReading,omitempty"`
}

// TrafficSummary aggregates a device's connection log.
type TrafficSummary struct {
	TotalConnections int        `json:"totalConnections"`
	Protocols        []Protocol `json:"protocols"`
	UniqueSourceIPs  []string   `json:"uniqueSourceIps"`
	UniqueDestIPs    []string   `json:"uniqueDestIps"`
	TotalBytesIn     int64      `json:"totalBytesIn"`
	TotalBytesOut    int64      `json:"totalBytesOut"`
	TotalPacketsIn   int64      `json:"totalPacketsIn"`
	TotalPacketsOut  int64      `json:"totalPacketsOut"`
}

// DeviceDetail is the full dashboard view of one device record: histories
// plus aggregate traffic stats.
type DeviceDetail struct {
	Device
	Summary TrafficSummary `json:"summary"`
}

// effectiveStatus applies the staleness override: a device that has been
// silent longer than the configured window reads as offline no matter what
// it last reported.
func (r *Registry) effectiveStatus(d *Device, now time.Time) Status {
	if now.Sub(d.LastSeen) > r.opts.StaleAfter {
		return StatusOffline
	}
	return d.Status
}

// Overview builds the dashboard listing as of the given instant. Records
// sharing a deviceName are always merged; the earliest-registered record
// supplies the merged identity. A merged device is online if any of its
// constituents is online after the staleness override.
func (r *Registry) Overview(now time.Time) []DeviceSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := r.listLocked()

	groups := make(map[string][]*Device)
	order := make([]string, 0, len(devices))
	for _, d := range devices {
		if _, seen := groups[d.DeviceName]; !seen {
			order = append(order, d.DeviceName)
		}
		groups[d.DeviceName] = append(groups[d.DeviceName], d)
	}

	summaries := make([]DeviceSummary, 0, len(order))
	for _, name := range order {
		summaries = append(summaries, r.mergeGroup(groups[name], now))
	}
	return summaries
}

// mergeGroup folds all records sharing a deviceName into one summary.
// The group is ordered by RegisteredAt, so the first entry is the identity.
func (r *Registry) mergeGroup(group []*Device, now time.Time) DeviceSummary {
	head := group[0]
	summary := DeviceSummary{
		ID:           head.ID,
		Username:     head.Username,
		DeviceName:   head.DeviceName,
		Status:       StatusOffline,
		LastSeen:     head.LastSeen,
		RegisteredAt: head.RegisteredAt,
	}

	protocols := make(map[Protocol]struct{})
	ips := make(map[string]struct{})
	var latest *MeterReading

	for _, d := range group {
		if r.effectiveStatus(d, now) == StatusOnline {
			summary.Status = StatusOnline
		}
		if d.LastSeen.After(summary.LastSeen) {
			summary.LastSeen = d.LastSeen
		}
		summary.ConnectionCount += len(d.Connections)
		summary.MeterReadingCount += len(d.MeterReadings)

		for _, c := range d.Connections {
			protocols[c.Protocol] = struct{}{}
			if c.SourceIP != "" {
				ips[c.SourceIP] = struct{}{}
			}
			if c.DestIP != "" {
				ips[c.DestIP] = struct{}{}
			}
		}
		for i := range d.MeterReadings {
			m := &d.MeterReadings[i]
			if m.IP != "" && m.IP != "unknown" {
				ips[m.IP] = struct{}{}
			}
			if latest == nil || m.Timestamp.After(latest.Timestamp) {
				latest = m
			}
		}
	}

	summary.Protocols = sortedProtocols(protocols)
	summary.UniqueIPs = sortedStrings(ips)
	if latest != nil {
		clone := *latest
		summary.LatestMeterReading = &clone
	}
	return summary
}

// Detail returns the full view of a single device record as of the given
// instant, with the staleness override applied.
func (r *Registry) Detail(id string, now time.Time) (*DeviceDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.store.Get(id)
	if !ok {
		return nil, ErrDeviceNotFound
	}

	dev := device.DeepCopy()
	dev.Status = r.effectiveStatus(dev, now)

	detail := &DeviceDetail{Device: *dev}

	protocols := make(map[Protocol]struct{})
	srcIPs := make(map[string]struct{})
	dstIPs := make(map[string]struct{})

	for _, c := range dev.Connections {
		protocols[c.Protocol] = struct{}{}
		if c.SourceIP != "" {
			srcIPs[c.SourceIP] = struct{}{}
		}
		if c.DestIP != "" {
			dstIPs[c.DestIP] = struct{}{}
		}
		detail.Summary.TotalBytesIn += c.BytesIn
		detail.Summary.TotalBytesOut += c.BytesOut
		detail.Summary.TotalPacketsIn += c.PacketsIn
		detail.Summary.TotalPacketsOut += c.PacketsOut
	}

	detail.Summary.TotalConnections = len(dev.Connections)
	detail.Summary.Protocols = sortedProtocols(protocols)
	detail.Summary.UniqueSourceIPs = sortedStrings(srcIPs)
	detail.Summary.UniqueDestIPs = sortedStrings(dstIPs)

	return detail, nil
}

func sortedProtocols(set map[Protocol]struct{}) []Protocol {
	out := make([]Protocol, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedStrings(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

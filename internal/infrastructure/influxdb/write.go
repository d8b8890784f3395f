package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/gridwatch/gridwatch-core/internal/monitor"
)

// WriteMeterReading records an accepted electrical reading as a point in the
// meter_reading measurement, tagged by device. The write is non-blocking;
// points are batched and flushed asynchronously.
func (c *Client) WriteMeterReading(deviceID string, reading *monitor.MeterReading) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"meter_reading",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"voltage_v":           reading.VoltageV,
			"current_a":           reading.CurrentA,
			"active_power_kw":     reading.ActivePowerKW,
			"reactive_power_kvar": reading.ReactivePowerKVAR,
			"apparent_power_kva":  reading.ApparentPowerKVA,
			"power_factor":        reading.PowerFactor,
			"frequency_hz":        reading.FrequencyHz,
			"cumulative_kwh":      reading.CumulativeKWh,
		},
		reading.Timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionTraffic records an observed connection's cumulative counters
// in the connection_traffic measurement.
func (c *Client) WriteConnectionTraffic(deviceID string, conn *monitor.Connection) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"connection_traffic",
		map[string]string{
			"device_id": deviceID,
			"protocol":  string(conn.Protocol),
		},
		map[string]interface{}{
			"bytes_in":    conn.BytesIn,
			"bytes_out":   conn.BytesOut,
			"packets_in":  conn.PacketsIn,
			"packets_out": conn.PacketsOut,
		},
		conn.LastUpdated,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

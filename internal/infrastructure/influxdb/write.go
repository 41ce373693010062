package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// ControlMeasurement is the measurement every control feedback point is
// written to. Tags: core, component, control. Fields: value, position and
// string (string only when non-empty).
const ControlMeasurement = "qsys_control"

// WriteControlState records one feedback observation for a control.
// It satisfies history.MetricWriter.
//
// Parameters:
//   - coreID, component, control: Written as tags
//   - value, position: Numeric fields
//   - stringValue: String field, omitted when empty
//   - ts: Observation time
//
// The write is non-blocking; errors surface through SetOnError.
func (c *Client) WriteControlState(coreID, component, control string, value, position float64, stringValue string, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newControlPoint(coreID, component, control, value, position, stringValue, ts))
}

func newControlPoint(coreID, component, control string, value, position float64, stringValue string, ts time.Time) *write.Point {
	fields := map[string]interface{}{
		"value":    value,
		"position": position,
	}
	if stringValue != "" {
		fields["string"] = stringValue
	}

	return write.NewPoint(
		ControlMeasurement,
		map[string]string{
			"core":      coreID,
			"component": component,
			"control":   control,
		},
		fields,
		ts,
	)
}

// WritePoint writes an arbitrary point stamped with the current time.
// The bridge uses it for per-core session counters.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

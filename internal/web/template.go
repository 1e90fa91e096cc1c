package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/tide-clock/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"hms": func(sec int64) string {
		sign := ""
		if sec < 0 {
			sign, sec = "-", -sec
		}
		return fmt.Sprintf("%s%02d:%02d:%02d", sign, sec/3600, sec/60%60, sec%60)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Tide Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.tracking { color: green; font-weight: bold; }
.paused { color: #888; }
.uninitialized { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Tide Clock</h1>

<h2>Tide</h2>
<table>
<tr><th>State</th><td class="{{if eq .State "TRACKING"}}tracking{{else if eq .State "PAUSED"}}paused{{else}}uninitialized{{end}}">{{.State}}</td></tr>
{{if .Clock.Target.Valid}}<tr><th>Next tide</th><td>{{.Clock.Target.Kind}} at {{.Clock.Target.Time.UTC.Format "2006-01-02 15:04Z"}}</td></tr>
<tr><th>Time to tide</th><td>{{hms .Clock.SecToTarget}}</td></tr>
{{if .Clock.MissedCycle}}<tr><th>Missed cycle</th><td>yes</td></tr>{{end}}{{else}}<tr><th>Next tide</th><td class="uninitialized">unknown</td></tr>{{end}}
<tr><th>Steps</th><td>{{.Clock.StepsTaken}} / {{.Clock.StepsNeeded}}</td></tr>
<tr><th>Pulses</th><td>{{.Clock.Pulses}}</td></tr>
{{if .LastEvent}}<tr><th>Last event</th><td>{{.LastEvent.Type}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Station</th><td>{{.Config.Station}}</td></tr>
<tr><th>Face</th><td>{{.Config.Face}}</td></tr>
<tr><th>Motor</th><td>{{.Config.Motor}} ({{.Config.Backend}})</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/history.json">History</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	state := string(snap.Clock.State)
	if state == "" {
		state = "UNKNOWN"
	}
	// Snapshot has an Uptime method but the template needs values.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		State  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		State:    state,
	}
	return indexTmpl.Execute(w, data)
}

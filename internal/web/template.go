package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/reaction-timer/internal/status"
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"ms": func(d time.Duration) string {
		if d <= 0 {
			return "-"
		}
		return fmt.Sprintf("%d ms", d.Milliseconds())
	},
	"pct": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Reaction Timer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
pre.lcd { background: #203020; color: #c8f0c8; padding: 8px; display: inline-block; }
.ready { color: green; font-weight: bold; }
.halted { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Reaction Timer</h1>

<h2>Device</h2>
<table>
<tr><th>State</th><td id="state" class="{{if eq (stateOrUnknown (printf "%s" .Session.State)) "HALTED"}}halted{{else if eq (stateOrUnknown (printf "%s" .Session.State)) "UNKNOWN"}}unknown{{else}}ready{{end}}">{{stateOrUnknown (printf "%s" .Session.State)}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
{{if .Session.Error}}<tr><th>Error</th><td class="halted">{{.Session.Error}}</td></tr>{{end}}
<tr><th>User</th><td>{{.Session.UserID}}</td></tr>
{{if .Session.MenuItem}}<tr><th>Menu</th><td>{{.Session.MenuItem}}</td></tr>{{end}}
</table>
{{if .Display}}<pre class="lcd">{{range .Display}}{{.}}
{{end}}</pre>{{end}}

<h2>Block</h2>
<table>
<tr><th>Mode</th><td>{{if .Session.Mode}}{{.Session.Mode}}{{if .Session.Practice}} (practice){{end}}{{else}}-{{end}}</td></tr>
<tr><th>Round</th><td>{{.Session.Round}} / {{.Session.MaxRounds}}</td></tr>
<tr><th>Target</th><td>{{.Session.Target}}{{if .Session.Lit}} (lit){{end}}</td></tr>
<tr><th>Last</th><td>{{ms .Session.LastLatency}}</td></tr>
<tr><th>Best</th><td>{{ms .Session.Best}}</td></tr>
<tr><th>Average</th><td>{{ms .Session.Average}}</td></tr>
<tr><th>Accuracy</th><td>{{pct .Session.Accuracy}}</td></tr>
<tr><th>Incorrect</th><td>{{.Session.Incorrect}}</td></tr>
</table>

<h2>Since Startup</h2>
<table>
<tr><th>Sessions</th><td>{{.Session.Counts.Sessions}}</td></tr>
<tr><th>Cancelled</th><td>{{.Session.Counts.Cancelled}}</td></tr>
<tr><th>Rounds</th><td>{{.Session.Counts.Rounds}}</td></tr>
<tr><th>Incorrect</th><td>{{.Session.Counts.Incorrect}}</td></tr>
<tr><th>Too fast</th><td>{{.Session.Counts.TooFast}}</td></tr>
<tr><th>Timeouts</th><td>{{.Session.Counts.Timeouts}}</td></tr>
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
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Rounds</th><td>{{.Config.RoundsNormal}} test, {{.Config.RoundsPractice}} practice</td></tr>
<tr><th>Delay</th><td>{{.Config.DelayMinMs}}-{{.Config.DelayMaxMs}}ms</td></tr>
<tr><th>Timeout</th><td>{{.Config.TimeoutMs}}ms</td></tr>
<tr><th>Too fast</th><td>&lt; {{.Config.TooFastMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
{{if .Config.HistoryPath}}<tr><th>History</th><td>{{.Config.HistoryPath}}</td></tr>{{end}}
{{if .Config.ResultsPath}}<tr><th>Results</th><td>{{.Config.ResultsPath}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a> | <a href="/sessions.json">Sessions</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() and Ready() methods but the template reads fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
	}
	return indexTmpl.Execute(w, data)
}

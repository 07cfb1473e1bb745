package render

import (
	"html/template"
	"io"
	"strconv"
)

var funcMap = template.FuncMap{
	"content":   func(c *Card) CardContent { return c.Content() },
	"remaining": func(c *Card) string { return c.Remaining() },
	"width": func(v float64) template.CSS {
		return template.CSS("width:" + formatWidth(v) + "%")
	},
	"bg": func(color string) template.CSS {
		return template.CSS("background:" + color)
	},
}

func formatWidth(v float64) string {
	return strconv.FormatFloat(clampPercent(v), 'f', 1, 64)
}

var boardTmpl = template.Must(template.New("board").Funcs(funcMap).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>Live Production</title>
<style>
body{font-family:sans-serif;background:#f4f5f7;margin:0;padding:16px}
.location{margin-bottom:24px}
.cards{display:flex;flex-wrap:wrap;gap:12px}
.card{background:#fff;border-radius:6px;padding:12px;width:260px;box-shadow:0 1px 3px rgba(0,0,0,.15)}
.status{font-size:12px;text-transform:uppercase;color:#555}
.bar{background:#e9ecef;height:10px;border-radius:5px;overflow:hidden}
.bar div{height:10px}
.nojob{color:#888;font-style:italic}
.next{font-size:12px;color:#555;margin-top:6px}
</style>
</head>
<body>
<header>{{.Session.Identity}} ({{.Session.Role}}, {{.Session.LocationScope}})</header>
{{range .Locations}}
<section class="location">
<h2>{{.Name}}</h2>
<div class="cards">
{{range .Cards}}{{$c := content .}}
<div class="card" id="machine-{{$c.MachineID}}" data-machine-id="{{$c.MachineID}}">
<h3>{{$c.Name}}</h3>
<div class="status">{{$c.Status}}</div>
{{if $c.Job}}
<div>WO: {{$c.Job.WorkOrder}} &middot; Size: {{$c.Job.Size}}</div>
<div>{{$c.Job.CompletedQty}} / {{$c.Job.TotalQty}}</div>
<div class="bar"><div style="{{width $c.Job.ProgressWidth}};{{bg $c.Job.ProgressColor}}"></div></div>
<div>{{$c.Job.Progress}}% &middot; <span class="remaining">{{remaining .}}</span></div>
{{else}}
<div class="nojob">No Job</div>
{{end}}
{{if $c.NextJob}}<div class="next">Next: {{$c.NextJob.WorkOrder}} ({{$c.NextJob.TotalQty}}) ETA {{$c.NextJob.ETA}}</div>{{end}}
{{if or $c.Controls.Start $c.Controls.Rename}}
<form method="post" action="/ui/machines">
<input type="hidden" name="location" value="{{$c.Location}}">
<input type="hidden" name="machine_id" value="{{$c.MachineID}}">
{{if $c.Controls.Start}}<button name="action" value="start">Start</button>{{end}}
{{if $c.Controls.Pause}}<button name="action" value="pause">Pause</button>{{end}}
{{if $c.Controls.Stop}}<button name="action" value="stop">Stop</button>{{end}}
{{if $c.Controls.Rename}}<input name="new_name" placeholder="New name"><button name="action" value="rename">Rename</button>{{end}}
</form>
{{end}}
</div>
{{end}}
</div>
</section>
{{else}}
<p>No machines match the current filters.</p>
{{end}}
</body>
</html>
`))

// WriteHTML renders the board as an HTML page.
func WriteHTML(w io.Writer, v View) error {
	return boardTmpl.Execute(w, v)
}

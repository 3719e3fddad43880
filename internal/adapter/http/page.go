package http

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
)

var pageFuncs = template.FuncMap{
	"tierClass": func(tier string) string { return "tier-" + strings.ToLower(tier) },
	"isDays":    func(a, b int) bool { return a == b },
	"deref":     func(v *float64) float64 { return *v },
}

var pageTemplate = template.Must(template.New("dashboard").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8"/>
  <title>Earthquake Dashboard</title>
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
  <style>
    :root { --bg:#0f172a; --card:#1e293b; --text:#e2e8f0; --muted:#94a3b8; --high:#dc2626; --mid:#f97316; --low:#14b8a6; }
    body { font-family: system-ui, sans-serif; margin:0; background:var(--bg); color:var(--text); }
    header { display:flex; gap:1rem; align-items:center; padding:1rem; background:var(--card); flex-wrap:wrap; }
    main { display:grid; grid-template-columns: 2fr 1fr; gap:1rem; padding:1rem; }
    section { background:var(--card); border-radius:6px; padding:1rem; }
    #map { height:420px; border-radius:6px; }
    .stats { display:flex; gap:2rem; }
    .stat b { display:block; font-size:1.6rem; }
    .error { color:#fca5a5; }
    .empty { color:var(--muted); font-style:italic; }
    ul.events { list-style:none; padding:0; max-height:480px; overflow-y:auto; }
    ul.events li { padding:.4rem; border-left:4px solid var(--low); margin-bottom:.3rem; cursor:pointer; }
    ul.events li.tier-mid { border-color:var(--mid); }
    ul.events li.tier-high { border-color:var(--high); }
    #toasts { position:fixed; right:1rem; bottom:1rem; display:flex; flex-direction:column; gap:.5rem; }
    .toast { background:#334155; padding:.6rem 1rem; border-radius:4px; }
    .toast.critical { background:#7f1d1d; }
  </style>
</head>
<body>
<header>
  <h1>Earthquakes</h1>
  <label>Range
    <select id="range">
      <option value="1"{{if isDays .Dashboard.DaysBack 1}} selected{{end}}>Past day</option>
      <option value="7"{{if isDays .Dashboard.DaysBack 7}} selected{{end}}>Past week</option>
      <option value="30"{{if isDays .Dashboard.DaysBack 30}} selected{{end}}>Past 30 days</option>
    </select>
  </label>
  <button id="refresh">Refresh now</button>
  <label><input type="checkbox" id="auto"{{if .Refresh.Enabled}} checked{{end}}/> Auto-refresh</label>
  <label>every <input type="number" id="interval" min="5" value="{{.Refresh.IntervalSeconds}}" style="width:4rem"/> s</label>
  <span id="countdown">{{.Refresh.CountdownLabel}}</span>
</header>
<main>
  <div>
    <section><div id="map"></div></section>
    <section>
      <h2>Last 7 days</h2>
      <canvas id="chart" height="120"></canvas>
    </section>
  </div>
  <div>
    <section id="stats">
      <h2>Statistics</h2>
      {{with .Dashboard.Stats}}
      {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
      <div class="stats">
        <div class="stat">Last 24h<b id="count24">{{.Count24h}}</b></div>
        <div class="stat">Last 7d<b id="count7">{{.Count7d}}</b></div>
        <div class="stat">Largest 24h<b id="largest">{{.Largest24h}}</b></div>
      </div>
      {{end}}
    </section>
    <section id="highlight">
      <h2>Significant earthquake</h2>
      {{with .Dashboard.Highlight}}
        {{if .Error}}<p class="error">{{.Error}}</p>
        {{else if .Event}}
          <p><b>{{.Event.Magnitude}}</b> {{.Event.Place}}</p>
          <p>{{.Event.TimeLabel}}{{if .Event.DepthKm}} · depth {{printf "%.1f" (deref .Event.DepthKm)}} km{{end}}</p>
          <p><a href="{{.Event.URL}}" target="_blank" rel="noopener">Details</a>
          {{if .Event.HasCoordinates}} <button id="focus-highlight">Show on map</button>{{end}}</p>
        {{else}}<p class="empty">No significant earthquakes in the last 30 days.</p>{{end}}
      {{end}}
    </section>
    <section>
      <h2>Events</h2>
      {{with .Dashboard.Events}}
        {{if .Error}}<p class="error">{{.Error}}</p>
        {{else if not .Items}}<p class="empty">No earthquakes in the selected range.</p>
        {{else}}
        <ul class="events">
          {{range .Items}}
          <li class="{{tierClass .Tier}}" data-id="{{.ID}}"><b>{{.Magnitude}}</b> {{.Place}}<br/><small>{{.TimeLabel}}</small></li>
          {{end}}
        </ul>
        {{end}}
      {{end}}
    </section>
  </div>
</main>
<div id="toasts"></div>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4"></script>
<script>
const state = {{.}};
const map = L.map('map');
L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {attribution: '&copy; OpenStreetMap'}).addTo(map);
const layer = L.layerGroup().addTo(map);
let temp = null, chart = null, chartRev = 0, cycles = state.refresh.cycles_run;

function drawMap(m) {
  map.setView([m.center_lat, m.center_lon], m.zoom);
  layer.clearLayers();
  for (const k of m.markers) {
    L.circleMarker([k.lat, k.lon], {radius: k.radius, color: k.color, fillOpacity: .6}).bindPopup(k.popup).addTo(layer);
  }
  if (temp) { map.removeLayer(temp); temp = null; }
  if (m.temporary) {
    const t = m.temporary;
    temp = L.circleMarker([t.lat, t.lon], {radius: t.radius + 6, color: t.color, dashArray: '6 4', fill: false}).bindPopup(t.popup).addTo(map);
  }
}

function drawChart(c) {
  if (!c.created || c.revision === chartRev) return;
  chartRev = c.revision;
  if (!chart) {
    chart = new Chart(document.getElementById('chart'), {type: 'bar', data: {labels: c.labels, datasets: [{data: c.data, backgroundColor: c.colors}]}, options: {plugins: {legend: {display: false}}}});
    return;
  }
  chart.data.labels = c.labels;
  chart.data.datasets[0].data = c.data;
  chart.data.datasets[0].backgroundColor = c.colors;
  chart.update();
}

function toast(n, ms) {
  const el = document.createElement('div');
  el.className = 'toast ' + n.level;
  el.textContent = n.title + ' - ' + n.body;
  document.getElementById('toasts').appendChild(el);
  setTimeout(() => el.remove(), ms);
}

async function send(method, url, body) {
  const res = await fetch(url, {method, headers: {'Content-Type': 'application/json'}, body: body && JSON.stringify(body)});
  return res.json();
}

document.getElementById('refresh').onclick = () => send('POST', '/api/refresh').then(() => location.reload());
document.getElementById('auto').onchange = e => send('PUT', '/api/refresh/enabled', {enabled: e.target.checked});
document.getElementById('interval').onchange = e => send('PUT', '/api/refresh/interval', {interval: e.target.value})
  .then(v => { e.target.value = v.refresh.interval_seconds; });
document.getElementById('range').onchange = e => send('PUT', '/api/range', {days_back: +e.target.value})
  .then(() => send('POST', '/api/refresh')).then(() => location.reload());
for (const li of document.querySelectorAll('ul.events li')) {
  li.onclick = () => send('POST', '/api/map/focus/' + encodeURIComponent(li.dataset.id)).then(drawMap);
}
const fh = document.getElementById('focus-highlight');
if (fh) fh.onclick = () => send('POST', '/api/map/focus-highlight').then(drawMap);

const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = e => {
  const msg = JSON.parse(e.data);
  if (msg.type === 'notification') toast(msg.data, new Date(msg.data.expires_at) - new Date(msg.data.created_at));
  if (msg.type === 'status') {
    document.getElementById('countdown').textContent = msg.data.countdown_label;
    if (msg.data.in_flight === 0 && msg.data.cycles_run !== cycles) location.reload();
  }
};

drawMap(state.dashboard.map);
drawChart(state.dashboard.chart);
// Toasts survive the reload that follows each cycle until they expire.
for (const n of state.dashboard.notifications || []) {
  const ms = new Date(n.expires_at) - Date.now();
  if (ms > 0) toast(n, ms);
}
</script>
</body>
</html>
`))

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, s.view()); err != nil {
		s.logger.Error("render dashboard page", "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
